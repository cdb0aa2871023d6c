// Package subscription arms each named device subscription exactly once.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
)

var (
	ErrDuplicate = errors.New("subscription already registered")
	ErrUnknown   = errors.New("subscription not registered")
)

// State of a single subscription.
type State int

const (
	Armed State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "armed"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ActivateFunc installs the underlying listener.
type ActivateFunc func(ctx context.Context) error

type entry struct {
	state    State
	pending  bool // activation in flight
	activate ActivateFunc
}

// Status is one row of Registrar.States.
type Status struct {
	Name  string `json:"name"`
	State State  `json:"state"`
}

// Registrar tracks subscriptions by name. Once a name is active, further
// activation attempts only log a warning.
type Registrar struct {
	mu      sync.Mutex
	entries map[string]*entry
	logger  *log.Logger
}

func NewRegistrar(logger *log.Logger) *Registrar {
	if logger == nil {
		logger = log.Default()
	}
	return &Registrar{entries: make(map[string]*entry), logger: logger}
}

// Register adds name in the armed state.
func (r *Registrar) Register(name string, fn ActivateFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	r.entries[name] = &entry{state: Armed, activate: fn}
	return nil
}

// Activate runs name's activation function if it is still armed and reports
// whether it did. A failed activation leaves the entry armed. The lock is not
// held across the activation call; a concurrent attempt on the same name is
// refused with a warning.
func (r *Registrar) Activate(ctx context.Context, name string) (bool, error) {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	if e.state == Active {
		r.mu.Unlock()
		r.logger.Printf("WARN The [%s] subscription is already active, unable to fire it again", name)
		return false, nil
	}
	if e.pending {
		r.mu.Unlock()
		r.logger.Printf("WARN The [%s] subscription is being activated, unable to fire it again", name)
		return false, nil
	}
	e.pending = true
	r.mu.Unlock()

	err := e.activate(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	e.pending = false
	if err != nil {
		return false, fmt.Errorf("activate %s: %w", name, err)
	}
	e.state = Active
	return true, nil
}

// ActivateAll activates every registered name in lexicographic order and
// stops at the first failure. The caller must not run with a partial set.
func (r *Registrar) ActivateAll(ctx context.Context) ([]string, error) {
	names := r.Names()
	var activated []string
	for _, name := range names {
		ok, err := r.Activate(ctx, name)
		if err != nil {
			return activated, err
		}
		if ok {
			activated = append(activated, name)
		}
	}
	r.logger.Printf("Subscriptions Set: total=%d active=[%s]", len(names), strings.Join(activated, ", "))
	return activated, nil
}

// Names returns registered names, sorted.
func (r *Registrar) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// State returns the state of name.
func (r *Registrar) State(name string) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return Armed, false
	}
	return e.state, true
}

// States returns every subscription with its state, sorted by name.
func (r *Registrar) States() []Status {
	names := r.Names()
	out := make([]Status, 0, len(names))
	for _, name := range names {
		st, _ := r.State(name)
		out = append(out, Status{Name: name, State: st})
	}
	return out
}
