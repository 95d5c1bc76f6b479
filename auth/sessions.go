package auth

import (
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nijaru/yt-blog/config"
	"github.com/nijaru/yt-blog/errors"
	"github.com/nijaru/yt-blog/models"
	"github.com/nijaru/yt-blog/repository"
	"github.com/sirupsen/logrus"
)

const issuer = "yt-blog"

// Sessions keeps the principal in a signed JWT cookie.
type Sessions struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
	users      repository.UserRepository
	logger     *logrus.Logger
	now        func() time.Time
}

func NewSessions(cfg config.SessionConfig, users repository.UserRepository, logger *logrus.Logger) *Sessions {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Sessions{
		secret:     []byte(cfg.Secret),
		cookieName: cfg.CookieName,
		ttl:        cfg.TTL,
		secure:     cfg.Secure,
		users:      users,
		logger:     logger,
		now:        time.Now,
	}
}

// Issue logs the user in by setting the session cookie.
func (s *Sessions) Issue(w http.ResponseWriter, user *models.User) error {
	const op = "Sessions.Issue"

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   strconv.FormatInt(user.ID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return errors.Internal(op, err, "Failed to create session")
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear logs the user out.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// CurrentPrincipal returns the logged-in user, or nil when the request has
// no valid session. An error means the user could not be loaded.
func (s *Sessions) CurrentPrincipal(r *http.Request) (*models.User, error) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		s.logger.WithError(err).Debug("Ignoring invalid session")
		return nil, nil
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, nil
	}

	user, err := s.users.Get(r.Context(), id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}
