// Package resilience provides reliability patterns for external service calls.
package resilience

import (
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned when the circuit breaker is open and rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Option customizes a Breaker.
type Option func(*gobreaker.Settings)

// WithName labels the breaker in state change callbacks.
func WithName(name string) Option {
	return func(s *gobreaker.Settings) { s.Name = name }
}

// WithIgnoredErrors marks errors that are returned to the caller without
// counting as failures (e.g. a cache miss).
func WithIgnoredErrors(targets ...error) Option {
	return func(s *gobreaker.Settings) {
		s.IsSuccessful = func(err error) bool {
			if err == nil {
				return true
			}
			for _, t := range targets {
				if errors.Is(err, t) {
					return true
				}
			}
			return false
		}
	}
}

// OnStateChange registers a callback fired when the breaker changes state.
func OnStateChange(fn func(name, from, to string)) Option {
	return func(s *gobreaker.Settings) {
		s.OnStateChange = func(name string, from, to gobreaker.State) {
			fn(name, from.String(), to.String())
		}
	}
}

// Breaker protects calls to an external dependency. It opens after
// maxFailures consecutive failures and allows a single trial call once the
// timeout has elapsed.
type Breaker struct {
	cb *gobreaker.CircuitBreaker[struct{}]
}

// NewBreaker creates a circuit breaker that opens after maxFailures consecutive
// failures and stays open for the given timeout before transitioning to half-open.
func NewBreaker(maxFailures uint32, timeout time.Duration, opts ...Option) *Breaker {
	settings := gobreaker.Settings{
		Name:        "breaker",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= maxFailures
		},
	}
	for _, o := range opts {
		o(&settings)
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker[struct{}](settings)}
}

// Execute runs fn if the circuit is closed or half-open.
// Returns ErrCircuitOpen if the circuit is open.
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

// State reports "closed", "half-open" or "open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}
