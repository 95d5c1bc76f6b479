package services

import (
	"fmt"
	"net/http"
)

// AdapterError is returned by every remote service adapter.
type AdapterError struct {
	Provider string
	Op       string
	Err      error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

func NewAdapterError(provider, op string, err error) *AdapterError {
	return &AdapterError{Provider: provider, Op: op, Err: err}
}

// IsClientStatus reports whether a provider status blames the request
// rather than the provider. Auth, timeout and throttling statuses count
// against the provider.
func IsClientStatus(code int) bool {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return code >= 400 && code < 500
}
