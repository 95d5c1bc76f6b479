package resilience

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

type BreakerConfig struct {
	Name string
	// MaxRequests is how many calls may pass while half-open.
	MaxRequests uint32
	// Interval clears the closed-state counts.
	Interval time.Duration
	// Timeout is how long the breaker stays open.
	Timeout time.Duration
	// FailureThreshold is the failure ratio that trips the breaker.
	FailureThreshold float64
	MinRequests      uint32
}

func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// Breaker fails calls fast while a provider is unhealthy. It never retries.
type Breaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

func NewBreaker(cfg BreakerConfig, logger *logrus.Logger) *Breaker {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		// A caller giving up or sending a bad link says nothing about the
		// provider, so neither may trip a breaker shared by every user.
		IsSuccessful: func(err error) bool {
			return err == nil || stderrors.Is(err, context.Canceled) || IsPermanent(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &Breaker{
		breaker: gobreaker.NewCircuitBreaker(settings),
		name:    cfg.Name,
	}
}

func (b *Breaker) Name() string {
	return b.name
}

func (b *Breaker) State() gobreaker.State {
	return b.breaker.State()
}

func (b *Breaker) IsOpen() bool {
	return b.breaker.State() == gobreaker.StateOpen
}

// IsOpenError reports whether err came from a breaker refusing the call.
func IsOpenError(err error) bool {
	return stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests)
}

// Call runs fn through b.
func Call[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}
	return result.(T), nil
}
