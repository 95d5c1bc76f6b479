package auth

import (
	"context"
	"net/http"

	"github.com/nijaru/yt-blog/models"
	"github.com/sirupsen/logrus"
)

type contextKey string

const principalKey contextKey = "principal"

const LoginPath = "/login"

func WithPrincipal(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, principalKey, user)
}

// PrincipalFromContext returns the authenticated user, or nil.
func PrincipalFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(principalKey).(*models.User)
	return user
}

type Middleware struct {
	sessions *Sessions
	logger   *logrus.Logger
}

func NewMiddleware(sessions *Sessions, logger *logrus.Logger) *Middleware {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Middleware{sessions: sessions, logger: logger}
}

// RequireLogin redirects anonymous page requests to the login page.
func (m *Middleware) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := m.resolve(w, r)
		if !ok {
			return
		}
		if user == nil {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), user)))
	})
}

func (m *Middleware) resolve(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, err := m.sessions.CurrentPrincipal(r)
	if err != nil {
		m.logger.WithError(err).WithField("path", r.URL.Path).Error("Failed to load session user")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	return user, true
}
