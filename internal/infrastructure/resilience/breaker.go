package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a request without
// invoking it.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior.
type Settings struct {
	// FailureThreshold is the number of consecutive failures that trips the
	// breaker open
	FailureThreshold uint32
	// Timeout is the period of the open state until a probe is admitted
	Timeout time.Duration
	// OnStateChange is called whenever the state changes
	OnStateChange func(name string, from State, to State)
}

// Breaker guards a repeatedly failing collaborator, such as a prediction
// service that stopped responding, so each query cycle can fail fast to its
// fallback instead of waiting out the watchdog every time.
//
// Consecutive failures trip it open; after Timeout one probe request is
// admitted. The probe's outcome either closes the breaker or reopens it for
// another Timeout.
type Breaker struct {
	name     string
	settings Settings

	mu       sync.Mutex
	state    State
	failures uint32
	openedAt time.Time
	probing  bool
}

// New creates a new circuit breaker with the given settings.
func New(name string, settings Settings) *Breaker {
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 5
	}
	if settings.Timeout == 0 {
		settings.Timeout = 60 * time.Second
	}

	return &Breaker{
		name:     name,
		settings: settings,
		state:    StateClosed,
	}
}

// State returns the current state of the circuit breaker.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState(time.Now())
}

// Execute runs fn if the breaker admits the request, recording the outcome.
// Rejected requests return ErrCircuitOpen without invoking fn.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}

	defer func() {
		if e := recover(); e != nil {
			b.record(false)
			panic(e)
		}
	}()

	err := fn()
	b.record(err == nil)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentState(time.Now()) {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		// One probe at a time.
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state := b.currentState(now)

	switch {
	case success && state == StateHalfOpen:
		b.probing = false
		b.setState(StateClosed, now)
	case success:
		b.failures = 0
	case state == StateHalfOpen:
		b.probing = false
		b.setState(StateOpen, now)
	case state == StateClosed:
		b.failures++
		if b.failures >= b.settings.FailureThreshold {
			b.setState(StateOpen, now)
		}
	}
}

// currentState folds the open-timeout expiry into the state. Callers hold
// the lock.
func (b *Breaker) currentState(now time.Time) State {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.settings.Timeout {
		b.setState(StateHalfOpen, now)
	}
	return b.state
}

func (b *Breaker) setState(state State, now time.Time) {
	if b.state == state {
		return
	}

	prev := b.state
	b.state = state
	b.failures = 0
	if state == StateOpen {
		b.openedAt = now
	}

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}
