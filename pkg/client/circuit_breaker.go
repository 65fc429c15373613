package client

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without contacting the server while the breaker
// is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitBreakerState string

const (
	CircuitBreakerClosed   CircuitBreakerState = "closed"
	CircuitBreakerOpen     CircuitBreakerState = "open"
	CircuitBreakerHalfOpen CircuitBreakerState = "half_open"
)

// CircuitBreaker fails fast after FailureThreshold consecutive failures and
// lets a single probe through once RecoveryTimeout has passed.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	recoveryTimeout  time.Duration
	now              func() time.Time

	state           CircuitBreakerState
	failures        int
	openedAt        time.Time
	probeInFlight   bool
	stateChanges    int64
	rejectedRequest int64
}

type CircuitBreakerStats struct {
	State        CircuitBreakerState `json:"state"`
	Failures     int                 `json:"failures"`
	StateChanges int64               `json:"state_changes"`
	Rejected     int64               `json:"rejected"`
}

// NewCircuitBreaker returns nil when threshold is not positive; a nil
// breaker allows everything.
func NewCircuitBreaker(threshold int, recovery time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		return nil
	}
	return &CircuitBreaker{
		failureThreshold: threshold,
		recoveryTimeout:  recovery,
		now:              time.Now,
		state:            CircuitBreakerClosed,
	}
}

// Allow reports whether a request may be sent.
func (cb *CircuitBreaker) Allow() error {
	if cb == nil {
		return nil
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitBreakerOpen:
		if cb.now().Sub(cb.openedAt) < cb.recoveryTimeout {
			cb.rejectedRequest++
			return ErrCircuitOpen
		}
		cb.transition(CircuitBreakerHalfOpen)
		cb.probeInFlight = true
		return nil
	case CircuitBreakerHalfOpen:
		if cb.probeInFlight {
			cb.rejectedRequest++
			return ErrCircuitOpen
		}
		cb.probeInFlight = true
		return nil
	default:
		return nil
	}
}

func (cb *CircuitBreaker) RecordSuccess() {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.probeInFlight = false
	if cb.state != CircuitBreakerClosed {
		cb.transition(CircuitBreakerClosed)
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.probeInFlight = false
	if cb.state == CircuitBreakerHalfOpen || cb.failures >= cb.failureThreshold {
		cb.openedAt = cb.now()
		if cb.state != CircuitBreakerOpen {
			cb.transition(CircuitBreakerOpen)
		}
	}
}

func (cb *CircuitBreaker) State() CircuitBreakerState {
	if cb == nil {
		return CircuitBreakerClosed
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	if cb == nil {
		return CircuitBreakerStats{State: CircuitBreakerClosed}
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerStats{
		State:        cb.state,
		Failures:     cb.failures,
		StateChanges: cb.stateChanges,
		Rejected:     cb.rejectedRequest,
	}
}

func (cb *CircuitBreaker) transition(to CircuitBreakerState) {
	cb.state = to
	cb.stateChanges++
}
