package infra

import (
	"errors"
	"sync"
	"time"
)

// The alert webhook sits outside our control; when it goes down, every
// queued alert would otherwise burn a full HTTP timeout per delivery
// attempt. The breaker fast-fails those attempts while the endpoint is
// known-bad and lets a probe through once OpenTimeout has elapsed.

// CBState is the breaker position: closed (traffic flows), open
// (fast-fail), or half-open (probing recovery).
type CBState int

const (
	CBClosed CBState = iota
	CBOpen
	CBHalfOpen
)

var cbStateNames = map[CBState]string{
	CBClosed:   "closed",
	CBOpen:     "open",
	CBHalfOpen: "half-open",
}

func (s CBState) String() string {
	if name, ok := cbStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// ErrCircuitOpen is returned by Execute while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitBreakerConfig struct {
	// FailureThreshold is the consecutive-failure streak that opens the
	// breaker from closed.
	FailureThreshold int
	// SuccessThreshold is how many consecutive probes must succeed in
	// half-open before the breaker closes again.
	SuccessThreshold int
	// OpenTimeout is how long the breaker stays open before allowing a probe.
	OpenTimeout time.Duration
}

func DefaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      60 * time.Second,
	}
}

type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu        sync.Mutex
	state     CBState
	failures  int // consecutive failures (closed state)
	successes int // consecutive probe successes (half-open state)
	openedAt  time.Time
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCBConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	return &CircuitBreaker{cfg: cfg, state: CBClosed}
}

// State reports the current position, promoting open → half-open once the
// open timeout has elapsed.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// Execute runs fn unless the breaker is open, in which case it returns
// ErrCircuitOpen without invoking fn. The outcome of fn feeds the breaker's
// state machine.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	if cb.currentState() == CBOpen {
		cb.mu.Unlock()
		return ErrCircuitOpen
	}
	cb.mu.Unlock()

	// fn runs outside the lock; a slow webhook call must not serialize
	// State() readers (the health endpoint polls it).
	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.record(err == nil)
	return err
}

// currentState must be called under mu.
func (cb *CircuitBreaker) currentState() CBState {
	if cb.state == CBOpen && time.Since(cb.openedAt) >= cb.cfg.OpenTimeout {
		cb.state = CBHalfOpen
		cb.successes = 0
	}
	return cb.state
}

// record must be called under mu.
func (cb *CircuitBreaker) record(ok bool) {
	switch cb.state {
	case CBClosed:
		if ok {
			cb.failures = 0
			return
		}
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.trip()
		}
	case CBHalfOpen:
		if !ok {
			// Failed probe: back to open for another full timeout.
			cb.trip()
			return
		}
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.state = CBClosed
			cb.failures = 0
			cb.successes = 0
		}
	}
}

func (cb *CircuitBreaker) trip() {
	cb.state = CBOpen
	cb.openedAt = time.Now()
	cb.failures = 0
	cb.successes = 0
}
