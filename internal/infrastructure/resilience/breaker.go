package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrOpen is returned while the breaker rejects calls.
	ErrOpen = errors.New("circuit breaker is open")
	// ErrProbeInFlight is returned when a half-open probe is already running.
	ErrProbeInFlight = errors.New("circuit breaker probe in flight")
)

// State is the breaker state.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

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

// Settings configures a Breaker.
type Settings struct {
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold int
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration
	// IsFailure classifies errors; nil counts every non-nil error.
	IsFailure func(err error) bool
	// OnStateChange is called on every transition, outside the lock.
	OnStateChange func(name string, from, to State)
}

// Breaker implements the circuit breaker pattern.
type Breaker struct {
	name     string
	settings Settings
	now      func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// New creates a closed breaker.
func New(name string, settings Settings) *Breaker {
	if settings.Threshold <= 0 {
		settings.Threshold = 5
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = 30 * time.Second
	}
	if settings.IsFailure == nil {
		settings.IsFailure = func(err error) bool { return err != nil }
	}
	return &Breaker{name: name, settings: settings, now: time.Now}
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state, accounting for an elapsed cooldown.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.settings.Cooldown {
		return StateHalfOpen
	}
	return b.state
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Execute runs fn if the breaker admits it and records the result.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}

	var err error
	defer func() {
		if r := recover(); r != nil {
			b.record(true)
			panic(r)
		}
		b.record(b.settings.IsFailure(err))
	}()

	err = fn()
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	var change *transition
	defer func() {
		b.mu.Unlock()
		b.notify(change)
	}()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.settings.Cooldown {
			return ErrOpen
		}
		change = b.setLocked(StateHalfOpen)
		b.probing = true
		return nil
	case StateHalfOpen:
		if b.probing {
			return ErrProbeInFlight
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

func (b *Breaker) record(failed bool) {
	b.mu.Lock()
	var change *transition
	defer func() {
		b.mu.Unlock()
		b.notify(change)
	}()

	wasProbe := b.state == StateHalfOpen
	b.probing = false

	if !failed {
		b.failures = 0
		if wasProbe {
			change = b.setLocked(StateClosed)
		}
		return
	}

	b.failures++
	if wasProbe || b.failures >= b.settings.Threshold {
		b.openedAt = b.now()
		change = b.setLocked(StateOpen)
	}
}

type transition struct {
	from, to State
}

func (b *Breaker) setLocked(to State) *transition {
	if b.state == to {
		return nil
	}
	from := b.state
	b.state = to
	return &transition{from: from, to: to}
}

func (b *Breaker) notify(t *transition) {
	if t != nil && b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, t.from, t.to)
	}
}
