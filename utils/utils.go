package utils

import (
	"encoding/json"
	"net/http"

	"github.com/nijaru/yt-blog/errors"
	"github.com/sirupsen/logrus"
)

// HandleError writes {"error": message} with the given status.
func HandleError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// RespondWithError logs err with its full cause chain and sends the client
// only the AppError message. Errors without a kind become a generic 500.
func RespondWithError(w http.ResponseWriter, logger *logrus.Entry, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.Internal("utils.RespondWithError", err, "Internal server error")
	}

	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	entry := logger.WithFields(logrus.Fields{
		"status_code": appErr.Code,
		"kind":        appErr.Kind,
		"op":          appErr.Op,
	}).WithError(err)
	if appErr.Code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	HandleError(w, appErr.Message, appErr.Code)
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).Error("Failed to encode JSON response")
		HandleError(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}
