// Package breaker guards calls to payment providers with a per-provider
// circuit. State is held in process memory, which is only valid for
// single-instance deployments; the registry is constructor-injected so a
// shared backing store can replace it.
package breaker

import (
	"sync"
	"time"

	"github.com/cokeastorga/paylane/pkg/enums"
)

// State of one provider circuit.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

const (
	DefaultErrorThreshold  = 5
	DefaultRecoveryTimeout = 60 * time.Second
)

// Options tunes the registry.
type Options struct {
	ErrorThreshold  int
	RecoveryTimeout time.Duration
	Now             func() time.Time
}

// Snapshot is a point-in-time view of a circuit, used for error context.
type Snapshot struct {
	Provider          enums.Provider `json:"provider"`
	State             State          `json:"state"`
	ConsecutiveErrors int            `json:"consecutive_errors"`
	LastOpenedAt      *time.Time     `json:"last_opened_at,omitempty"`
}

type circuit struct {
	state             State
	consecutiveErrors int
	lastOpenedAt      time.Time
}

// Registry tracks one circuit per provider.
type Registry struct {
	mu              sync.Mutex
	circuits        map[enums.Provider]*circuit
	errorThreshold  int
	recoveryTimeout time.Duration
	now             func() time.Time
}

// NewRegistry builds a registry with the given options.
func NewRegistry(opts Options) *Registry {
	if opts.ErrorThreshold <= 0 {
		opts.ErrorThreshold = DefaultErrorThreshold
	}
	if opts.RecoveryTimeout <= 0 {
		opts.RecoveryTimeout = DefaultRecoveryTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{
		circuits:        make(map[enums.Provider]*circuit),
		errorThreshold:  opts.ErrorThreshold,
		recoveryTimeout: opts.RecoveryTimeout,
		now:             opts.Now,
	}
}

func (r *Registry) circuitFor(provider enums.Provider) *circuit {
	c, ok := r.circuits[provider]
	if !ok {
		c = &circuit{state: StateClosed}
		r.circuits[provider] = c
	}
	return c
}

// IsAvailable reports whether the provider may be called. An OPEN circuit
// whose recovery timeout has elapsed flips to HALF_OPEN and allows one probe.
func (r *Registry) IsAvailable(provider enums.Provider) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.circuitFor(provider)
	switch c.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		return true
	case StateOpen:
		if r.now().Sub(c.lastOpenedAt) >= r.recoveryTimeout {
			c.state = StateHalfOpen
			return true
		}
		return false
	default:
		return false
	}
}

// OnSuccess resets the provider circuit to CLOSED.
func (r *Registry) OnSuccess(provider enums.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.circuitFor(provider)
	c.state = StateClosed
	c.consecutiveErrors = 0
}

// OnError records a failure. Reaching the threshold, or any error while
// HALF_OPEN, forces the circuit OPEN.
func (r *Registry) OnError(provider enums.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.circuitFor(provider)
	c.consecutiveErrors++
	if c.state == StateHalfOpen || c.consecutiveErrors >= r.errorThreshold {
		c.state = StateOpen
		c.lastOpenedAt = r.now()
	}
}

// StateOf returns the provider's current circuit state.
func (r *Registry) StateOf(provider enums.Provider) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.circuitFor(provider).state
}

// Snapshots returns the state of every tracked circuit, for loud router
// failures and diagnostics.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshots := make([]Snapshot, 0, len(r.circuits))
	for provider, c := range r.circuits {
		snap := Snapshot{
			Provider:          provider,
			State:             c.state,
			ConsecutiveErrors: c.consecutiveErrors,
		}
		if !c.lastOpenedAt.IsZero() {
			opened := c.lastOpenedAt
			snap.LastOpenedAt = &opened
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots
}
