package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies an AppError. Handlers map kinds to status codes and
// metrics use them as labels, so the string values are stable.
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindTitleFetchFailed    Kind = "title_fetch_failed"
	KindTranscriptionFailed Kind = "transcription_failed"
	KindGenerationFailed    Kind = "generation_failed"
	KindPersistenceFailed   Kind = "persistence_failed"
	KindUnauthenticated     Kind = "unauthenticated"
	KindNotFound            Kind = "not_found"
	KindForbidden           Kind = "forbidden"
	KindConflict            Kind = "conflict"
	KindMethodNotAllowed    Kind = "method_not_allowed"
	KindInternal            Kind = "internal"
)

type AppError struct {
	Kind    Kind   `json:"-"`
	Code    int    `json:"-"`
	Message string `json:"error"`
	Op      string `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func E(kind Kind, code int, op string, err error, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func InvalidInput(op string, err error, message string) *AppError {
	return E(KindInvalidInput, http.StatusBadRequest, op, err, message)
}

func TitleFetchFailed(op string, err error, message string) *AppError {
	return E(KindTitleFetchFailed, http.StatusInternalServerError, op, err, message)
}

func TranscriptionFailed(op string, err error, message string) *AppError {
	return E(KindTranscriptionFailed, http.StatusInternalServerError, op, err, message)
}

func GenerationFailed(op string, err error, message string) *AppError {
	return E(KindGenerationFailed, http.StatusInternalServerError, op, err, message)
}

func PersistenceFailed(op string, err error, message string) *AppError {
	return E(KindPersistenceFailed, http.StatusInternalServerError, op, err, message)
}

func Unauthenticated(op string, err error, message string) *AppError {
	return E(KindUnauthenticated, http.StatusUnauthorized, op, err, message)
}

func NotFound(op string, err error, message string) *AppError {
	return E(KindNotFound, http.StatusNotFound, op, err, message)
}

func Forbidden(op string, err error, message string) *AppError {
	return E(KindForbidden, http.StatusForbidden, op, err, message)
}

func Conflict(op string, err error, message string) *AppError {
	return E(KindConflict, http.StatusConflict, op, err, message)
}

func MethodNotAllowed(op string, message string) *AppError {
	return E(KindMethodNotAllowed, http.StatusMethodNotAllowed, op, nil, message)
}

func Internal(op string, err error, message string) *AppError {
	return E(KindInternal, http.StatusInternalServerError, op, err, message)
}

// As returns the outermost AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf reports the kind of err, or KindInternal for errors that carry none.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// StatusCode reports the HTTP status for err.
func StatusCode(err error) int {
	if appErr, ok := As(err); ok && appErr.Code != 0 {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

func IsNotFound(err error) bool        { return err != nil && KindOf(err) == KindNotFound }
func IsForbidden(err error) bool       { return err != nil && KindOf(err) == KindForbidden }
func IsConflict(err error) bool        { return err != nil && KindOf(err) == KindConflict }
func IsInvalidInput(err error) bool    { return err != nil && KindOf(err) == KindInvalidInput }
func IsUnauthenticated(err error) bool { return err != nil && KindOf(err) == KindUnauthenticated }
