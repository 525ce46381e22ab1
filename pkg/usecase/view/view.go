// Package view implements the fetch state of a single page panel: every load
// is tagged with a generation and only the latest one may settle the view.
package view

import (
	"context"
	"sync"

	"github.com/m-mizutani/lifebook/pkg/utils/logging"
)

// State of a view
type State int

const (
	// Idle is a detail view with nothing selected
	Idle State = iota
	Loading
	Ready
	Failed
	// AwaitingUser is a user-scoped view with no selected user
	AwaitingUser
)

func (x State) String() string {
	switch x {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	case AwaitingUser:
		return "awaiting-user"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent copy of a view. Data keeps the last successfully
// loaded value while Loading or Failed; HasData tells whether there is one.
type Snapshot[T any] struct {
	State      State
	Data       T
	HasData    bool
	Err        error
	Generation uint64
}

// Loader fetches the data of a view
type Loader[T any] func(ctx context.Context) (T, error)

// View holds the state of one panel
type View[T any] struct {
	name string

	mu   sync.Mutex
	gen  uint64
	snap Snapshot[T]
}

// New creates an Idle view. name is used in logs only.
func New[T any](name string) *View[T] {
	return &View[T]{name: name}
}

// Name returns the view name
func (x *View[T]) Name() string {
	return x.name
}

// Snapshot returns the current state
func (x *View[T]) Snapshot() Snapshot[T] {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.snap
}

// begin starts a new generation and enters Loading
func (x *View[T]) begin() uint64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.gen++
	x.snap.State = Loading
	x.snap.Generation = x.gen
	return x.gen
}

// Load runs loader and settles the view with its result unless a newer load,
// AwaitUser or Reset happened meanwhile. The loader error is returned only
// when it settled the view.
func (x *View[T]) Load(ctx context.Context, loader Loader[T]) error {
	gen := x.begin()
	data, err := loader(ctx)

	x.mu.Lock()
	defer x.mu.Unlock()

	logger := logging.From(ctx).With("view", x.name, "generation", gen)
	if gen != x.gen {
		logger.Debug("discarding stale response", "latest", x.gen)
		return nil
	}

	if err != nil {
		logger.Warn("failed to load view", "error", err)
		x.snap.State = Failed
		x.snap.Err = err
		return err
	}

	x.snap = Snapshot[T]{
		State:      Ready,
		Data:       data,
		HasData:    true,
		Generation: gen,
	}
	return nil
}

// AwaitUser drops the data and enters AwaitingUser. In-flight loads become stale.
func (x *View[T]) AwaitUser() {
	x.set(AwaitingUser)
}

// Reset drops the data and returns to Idle. In-flight loads become stale.
func (x *View[T]) Reset() {
	x.set(Idle)
}

func (x *View[T]) set(state State) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.gen++
	x.snap = Snapshot[T]{State: state, Generation: x.gen}
}
