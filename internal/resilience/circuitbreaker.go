// Package resilience keeps the transcription pipeline usable when a speech
// or LLM backend starts failing.
//
// [CircuitBreaker] is a three-state breaker (closed, open, half-open) that
// stops hammering a backend after repeated failures. [FallbackGroup] chains
// several backends of one kind behind per-backend breakers, so a dead
// primary whisper instance or LLM endpoint is skipped in favour of the next
// configured one. [STTFallback] and [LLMFallback] are the typed chains the
// server actually wires.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] while the breaker
// rejects calls and the reset timeout has not yet elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects every call with [ErrCircuitOpen]. Entered after too
	// many consecutive failures, left once the reset timeout elapses.
	StateOpen

	// StateHalfOpen lets a bounded number of probe calls through. Enough
	// successes close the breaker; any failure re-opens it.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig tunes a [CircuitBreaker].
type CircuitBreakerConfig struct {
	// Name labels the breaker in logs, typically the backend name from the
	// providers config ("whisper-large", "openai", ...).
	Name string

	// MaxFailures is how many consecutive failures trip the breaker open.
	// Default 5.
	MaxFailures int

	// ResetTimeout is how long the breaker rejects calls before allowing
	// half-open probes. Default 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is the probe budget in the half-open state. Default 3.
	HalfOpenMax int
}

// CircuitBreaker tracks consecutive failures of one backend and short-circuits
// calls once the backend looks dead.
type CircuitBreaker struct {
	log          *slog.Logger
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int

	mu          sync.Mutex
	state       State
	failureRun  int // consecutive failures while closed
	lastFailure time.Time
	probes      int // calls admitted while half-open
	probeFails  int
}

// NewCircuitBreaker creates a breaker from cfg, substituting defaults for
// zero-valued fields.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	return &CircuitBreaker{
		log:          slog.Default().With("breaker", cfg.Name),
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
		state:        StateClosed,
	}
}

// Execute runs fn unless the breaker is rejecting calls, then feeds the
// outcome back into the failure accounting.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	probing, err := cb.admit()
	if err != nil {
		return err
	}

	err = fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.onFailure(probing)
	} else {
		cb.onSuccess(probing)
	}
	return err
}

// admit decides whether the next call may proceed, handling the open to
// half-open transition. The bool reports whether the call counts against the
// half-open probe budget.
func (cb *CircuitBreaker) admit() (bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailure) < cb.resetTimeout {
			return false, ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probes = 0
		cb.probeFails = 0
		cb.log.Info("breaker half-open, probing backend")

	case StateHalfOpen:
		if cb.probes >= cb.halfOpenMax {
			return false, ErrCircuitOpen
		}
	}

	if cb.state == StateHalfOpen {
		cb.probes++
		return true, nil
	}
	return false, nil
}

// onFailure must be called with cb.mu held.
func (cb *CircuitBreaker) onFailure(probing bool) {
	cb.lastFailure = time.Now()

	if probing {
		// One failed probe is enough evidence the backend is still down.
		cb.probeFails++
		cb.state = StateOpen
		cb.failureRun = cb.maxFailures
		cb.log.Warn("breaker re-opened, probe failed")
		return
	}

	cb.failureRun++
	if cb.failureRun >= cb.maxFailures {
		cb.state = StateOpen
		cb.log.Warn("breaker opened", "consecutive_failures", cb.failureRun)
	}
}

// onSuccess must be called with cb.mu held.
func (cb *CircuitBreaker) onSuccess(probing bool) {
	if !probing {
		cb.failureRun = 0
		return
	}
	if cb.probes-cb.probeFails >= cb.halfOpenMax {
		cb.state = StateClosed
		cb.failureRun = 0
		cb.probes = 0
		cb.probeFails = 0
		cb.log.Info("breaker closed, backend recovered")
	}
}

// State reports the current state. An open breaker whose reset timeout has
// elapsed reports [StateHalfOpen]; the stored transition happens on the next
// [CircuitBreaker.Execute].
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && time.Since(cb.lastFailure) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to [StateClosed] and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failureRun = 0
	cb.probes = 0
	cb.probeFails = 0
	cb.log.Info("breaker manually reset")
}
