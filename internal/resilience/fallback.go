package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every backend in a [FallbackGroup] either
// failed or had an open breaker.
var ErrAllFailed = errors.New("all providers failed")

// FallbackConfig is the breaker configuration stamped onto each backend in a
// [FallbackGroup]. The per-backend name is filled in at registration.
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// member is one backend in the chain with its dedicated breaker.
type member[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup chains a primary backend and its fallbacks. A call runs
// against the first member whose breaker admits it and which does not fail;
// failing or open members are passed over in registration order.
//
// The chain must be fully assembled before first use; AddFallback is not
// synchronised against concurrent Execute calls.
type FallbackGroup[T any] struct {
	members []member[T]
	cfg     FallbackConfig
}

// NewFallbackGroup starts a chain with primary as its first member. Register
// the rest with [FallbackGroup.AddFallback].
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg}
	fg.AddFallback(primaryName, primary)
	return fg
}

// AddFallback appends a backend to the end of the chain.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	bc := fg.cfg.CircuitBreaker
	bc.Name = name
	fg.members = append(fg.members, member[T]{
		name:    name,
		value:   fallback,
		breaker: NewCircuitBreaker(bc),
	})
}

// Execute runs fn against each member in order until one succeeds. Members
// with an open breaker are skipped. When the whole chain fails, the returned
// error wraps [ErrAllFailed] around the last failure.
func (fg *FallbackGroup[T]) Execute(fn func(T) error) error {
	_, err := ExecuteWithResult(fg, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// ExecuteWithResult is [FallbackGroup.Execute] for calls that produce a
// value. It is a package function because methods cannot introduce their own
// type parameters.
func ExecuteWithResult[T any, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var lastErr error
	for i := range fg.members {
		m := &fg.members[i]

		var out R
		err := m.breaker.Execute(func() error {
			var callErr error
			out, callErr = fn(m.value)
			return callErr
		})
		if err == nil {
			return out, nil
		}
		lastErr = err

		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping provider, circuit open", "provider", m.name)
		} else {
			slog.Warn("provider failed, trying next", "provider", m.name, "error", err)
		}
	}

	var zero R
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
