package auth

import (
	"context"

	"github.com/nijaru/yt-blog/errors"
	"github.com/nijaru/yt-blog/models"
	"github.com/nijaru/yt-blog/repository"
	"github.com/nijaru/yt-blog/validation"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgPasswordMismatch   = "Password do not match"
	msgCreateFailed       = "Error creating account"
	msgInvalidCredentials = "Invalid username or password"
)

type SignupForm struct {
	Username       string
	Email          string
	Password       string
	RepeatPassword string
}

// Service manages accounts and verifies credentials.
type Service struct {
	users  repository.UserRepository
	logger *logrus.Logger
	cost   int
	// dummyHash is compared against when the user does not exist so both
	// failure paths take the same time.
	dummyHash []byte
}

func NewService(users repository.UserRepository, logger *logrus.Logger) *Service {
	return newService(users, logger, bcrypt.DefaultCost)
}

func newService(users repository.UserRepository, logger *logrus.Logger, cost int) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("dummy-password"), cost)
	return &Service{users: users, logger: logger, cost: cost, dummyHash: dummy}
}

// Signup creates an account. Nothing is stored when the passwords differ.
func (s *Service) Signup(ctx context.Context, form SignupForm) (*models.User, error) {
	const op = "auth.Signup"

	if form.Password != form.RepeatPassword {
		return nil, errors.InvalidInput(op, nil, msgPasswordMismatch)
	}
	if err := validation.ValidateUsername(form.Username); err != nil {
		return nil, err
	}
	if err := validation.ValidateEmail(form.Email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(form.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), s.cost)
	if err != nil {
		return nil, errors.Internal(op, err, msgCreateFailed)
	}

	user := &models.User{
		Username:     form.Username,
		Email:        form.Email,
		PasswordHash: string(hash),
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		s.logger.WithError(err).WithField("username", form.Username).Warn("Account creation failed")
		if errors.IsConflict(err) {
			return nil, errors.Conflict(op, err, msgCreateFailed)
		}
		return nil, errors.Internal(op, err, msgCreateFailed)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("Account created")

	return user, nil
}

// Authenticate returns the user for valid credentials. Unknown users and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	const op = "auth.Authenticate"

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.IsNotFound(err) {
			bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, errors.Unauthenticated(op, nil, msgInvalidCredentials)
		}
		return nil, errors.Internal(op, err, "Error logging in")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errors.Unauthenticated(op, nil, msgInvalidCredentials)
	}

	return user, nil
}
