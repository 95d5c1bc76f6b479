package resilience

import (
	stderrors "errors"

	"github.com/nijaru/yt-blog/errors"
)

// permanentError marks a failure caused by the caller's input rather than
// by the provider. The breaker counts it as a success.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the breaker does not count it against the
// provider. A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent or is an
// invalid-input application error.
func IsPermanent(err error) bool {
	var p *permanentError
	return stderrors.As(err, &p) || errors.IsInvalidInput(err)
}
