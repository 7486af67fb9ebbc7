// Package resilience provides a circuit breaker for the REDCap transport.
//
// The breaker counts transient network failures only: a completed exchange,
// whatever its status code, is a transport-level success. Opening the circuit
// sheds attempts against a server that is unreachable, without ever
// classifying an application rejection as an outage.
package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/clindata/redcap/invoke"
)

// ErrCircuitOpen is returned while the breaker is shedding requests.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state.
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

// Counts holds breaker statistics for the current generation.
type Counts struct {
	Sends               uint32
	TotalFailures       uint32
	ConsecutiveFailures uint32
}

// Settings configures the breaker.
type Settings struct {
	// FailureThreshold is the number of consecutive transient failures that
	// opens the circuit.
	FailureThreshold uint32
	// Cooldown is how long the circuit stays open before probing again.
	Cooldown time.Duration
	// OnStateChange is called whenever the state changes.
	OnStateChange func(from, to State)
}

// Breaker implements the circuit breaker pattern over transport sends.
type Breaker struct {
	settings Settings

	mu         sync.Mutex
	state      State
	counts     Counts
	generation uint64
	openedAt   time.Time
}

// New creates a breaker. Zero-valued settings get conservative defaults.
func New(settings Settings) *Breaker {
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 5
	}
	if settings.Cooldown == 0 {
		settings.Cooldown = 60 * time.Second
	}
	return &Breaker{settings: settings}
}

// State returns the current state, transitioning open circuits to half-open
// once the cooldown has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState(time.Now())
}

// Counts returns a copy of the statistics for the current generation.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Do runs one transport send under the breaker. While the circuit is open it
// returns ErrCircuitOpen without touching the network. Only transient
// failures count against the circuit; completed exchanges close it.
func (b *Breaker) Do(send func() (*invoke.Response, error)) (*invoke.Response, error) {
	gen, err := b.before()
	if err != nil {
		return nil, err
	}

	resp, err := send()
	b.after(gen, !invoke.IsTransient(err))
	return resp, err
}

func (b *Breaker) before() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.currentState(time.Now()) == StateOpen {
		return b.generation, ErrCircuitOpen
	}
	b.counts.Sends++
	return b.generation, nil
}

func (b *Breaker) after(gen uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if gen != b.generation {
		return
	}
	state := b.currentState(now)

	if success {
		if state == StateHalfOpen {
			b.setState(StateClosed, now)
			return
		}
		b.counts.ConsecutiveFailures = 0
		return
	}

	b.counts.TotalFailures++
	b.counts.ConsecutiveFailures++
	if state == StateHalfOpen || b.counts.ConsecutiveFailures >= b.settings.FailureThreshold {
		b.setState(StateOpen, now)
	}
}

func (b *Breaker) currentState(now time.Time) State {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.settings.Cooldown {
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
	b.generation++
	b.counts = Counts{}
	if state == StateOpen {
		b.openedAt = now
	}
	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(prev, state)
	}
}
