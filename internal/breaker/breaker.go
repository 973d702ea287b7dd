// Package breaker guards calls to remote model services with a circuit breaker.
package breaker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// ErrUnavailable is returned when a breaker rejects a call because the
// remote service has been failing.
var ErrUnavailable = errors.New("remote model service unavailable")

// Config controls when a Breaker opens and how long it stays open.
type Config struct {
	ConsecutiveFailures uint32        // Failures in a row that open the circuit
	OpenTimeout         time.Duration // Time spent open before a half-open probe
}

// DefaultConfig opens after 5 consecutive failures for 30 seconds.
var DefaultConfig = Config{
	ConsecutiveFailures: 5,
	OpenTimeout:         30 * time.Second,
}

// Breaker guards calls to a remote model service with a circuit breaker.
type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// New creates a named breaker. Zero fields in cfg take their defaults.
func New[T any](name string, cfg Config) *Breaker[T] {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = DefaultConfig.ConsecutiveFailures
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultConfig.OpenTimeout
	}

	cb := gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return &Breaker[T]{cb: cb}
}

// Execute runs fn unless the circuit is open. Rejections wrap ErrUnavailable.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	result, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, fmt.Errorf("%w: %s: %v", ErrUnavailable, b.cb.Name(), err)
	}
	return result, err
}

// State returns the breaker state as "closed", "half-open" or "open".
func (b *Breaker[T]) State() string {
	return b.cb.State().String()
}
