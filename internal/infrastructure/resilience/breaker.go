package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrOpen is returned without calling through while the breaker is open.
	ErrOpen = errors.New("circuit breaker is open")
	// ErrProbeLimit is returned when the half-open probe quota is used up.
	ErrProbeLimit = errors.New("circuit breaker probe limit reached")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
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

// Settings configures a Breaker. Zero values take the defaults noted.
type Settings struct {
	// Probes is how many calls a half-open breaker lets through, and how
	// many must succeed to close it again (default 1).
	Probes uint32
	// Window clears the closed-state counts periodically (default 1m).
	Window time.Duration
	// Cooldown is how long the breaker stays open (default 30s).
	Cooldown time.Duration
	// Trip decides, after a failure while closed, whether to open
	// (default: 5 failures in a row).
	Trip func(Counts) bool
	// OnStateChange observes transitions.
	OnStateChange func(name string, from, to State)
	// now is replaced in tests.
	now func() time.Time
}

// Counts are the calls seen in the current generation.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

func (c *Counts) success() {
	c.TotalSuccesses++
	c.ConsecutiveSuccesses++
	c.ConsecutiveFailures = 0
}

func (c *Counts) failure() {
	c.TotalFailures++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
}

// Breaker stops calling an endpoint that keeps failing.
type Breaker struct {
	name string
	cfg  Settings

	mu         sync.Mutex
	state      State
	generation uint64
	counts     Counts
	deadline   time.Time
}

// New creates a closed breaker.
func New(name string, cfg Settings) *Breaker {
	if cfg.Probes == 0 {
		cfg.Probes = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Trip == nil {
		cfg.Trip = func(c Counts) bool { return c.ConsecutiveFailures >= 5 }
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	b := &Breaker{name: name, cfg: cfg}
	b.deadline = cfg.now().Add(cfg.Window)
	return b
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.advance(b.cfg.now())
}

// Counts returns a copy of the internal counts
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Do runs fn through b. A panic in fn counts as a failure and is re-raised.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	gen, err := b.admit()
	if err != nil {
		return zero, err
	}

	ok := false
	defer func() {
		b.settle(gen, ok)
	}()

	v, err := fn()
	ok = err == nil
	return v, err
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.advance(b.cfg.now()) {
	case StateOpen:
		return 0, ErrOpen
	case StateHalfOpen:
		if b.counts.Requests >= b.cfg.Probes {
			return 0, ErrProbeLimit
		}
	}
	b.counts.Requests++
	return b.generation, nil
}

// settle records an outcome unless the breaker moved on since admit.
func (b *Breaker) settle(gen uint64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.cfg.now()
	state := b.advance(now)
	if gen != b.generation {
		return
	}
	if ok {
		b.counts.success()
		if state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.cfg.Probes {
			b.transition(StateClosed, now)
		}
		return
	}
	b.counts.failure()
	if state == StateHalfOpen || b.cfg.Trip(b.counts) {
		b.transition(StateOpen, now)
	}
}

// advance applies time-based transitions. Caller holds mu.
func (b *Breaker) advance(now time.Time) State {
	switch b.state {
	case StateClosed:
		if now.After(b.deadline) {
			b.generation++
			b.counts = Counts{}
			b.deadline = now.Add(b.cfg.Window)
		}
	case StateOpen:
		if now.After(b.deadline) {
			b.transition(StateHalfOpen, now)
		}
	}
	return b.state
}

// transition starts a new generation in state. Caller holds mu.
func (b *Breaker) transition(state State, now time.Time) {
	if b.state == state {
		return
	}
	prev := b.state
	b.state = state
	b.generation++
	b.counts = Counts{}

	switch state {
	case StateClosed:
		b.deadline = now.Add(b.cfg.Window)
	case StateOpen:
		b.deadline = now.Add(b.cfg.Cooldown)
	case StateHalfOpen:
		b.deadline = time.Time{}
	}

	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.name, prev, state)
	}
}
