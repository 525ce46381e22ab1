package page

import (
	"context"
	"sync"

	"github.com/m-mizutani/lifebook/pkg/adapter"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/usecase/selection"
	"github.com/m-mizutani/lifebook/pkg/usecase/view"
)

// Memories compares the memories of the selected user per pipeline version
type Memories struct {
	scope
	backend  adapter.Backend
	versions []model.PipelineVersion

	mu        sync.Mutex
	sessionID model.SessionID
	list      *view.View[*view.Versioned[*model.Memory]]
	detail    *view.View[*model.Memory]
}

var _ Page = (*Memories)(nil)

func NewMemories(store *selection.Store, backend adapter.Backend, opts ...Option) *Memories {
	o := newOptions(opts)
	return &Memories{
		scope:    scope{store: store},
		backend:  backend,
		versions: o.versions,
		list:     view.New[*view.Versioned[*model.Memory]]("memories"),
		detail:   view.New[*model.Memory]("memory"),
	}
}

func (x *Memories) Mount(ctx context.Context) error {
	x.follow(func(ctx context.Context) {
		x.ClearSelection()
		_ = x.Reload(ctx)
	})
	return x.Reload(ctx)
}

func (x *Memories) Reload(ctx context.Context) error {
	sessionID := x.SessionFilter()
	return loadVersionedForUser(ctx, x.store, x.list, x.versions, func(ctx context.Context, userID model.UserID, version model.PipelineVersion) ([]*model.Memory, error) {
		return x.backend.ListMemories(ctx, adapter.MemoryFilter{
			UserID:          userID,
			SessionID:       sessionID,
			PipelineVersion: version,
		})
	})
}

// FilterSession narrows the list to one session, zero removes the filter
func (x *Memories) FilterSession(ctx context.Context, id model.SessionID) error {
	x.mu.Lock()
	x.sessionID = id
	x.mu.Unlock()
	return x.Reload(ctx)
}

// SessionFilter returns the session the list is narrowed to, zero for none
func (x *Memories) SessionFilter() model.SessionID {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.sessionID
}

func (x *Memories) Versions() []model.PipelineVersion {
	return x.versions
}

func (x *Memories) Snapshot() view.Snapshot[*view.Versioned[*model.Memory]] {
	return x.list.Snapshot()
}

func (x *Memories) Detail() view.Snapshot[*model.Memory] {
	return x.detail.Snapshot()
}

// Select fetches the full record of one memory
func (x *Memories) Select(ctx context.Context, id model.MemoryID) error {
	return x.detail.Load(ctx, func(ctx context.Context) (*model.Memory, error) {
		return x.backend.GetMemory(ctx, id)
	})
}

// ClearSelection drops the detail without touching the list
func (x *Memories) ClearSelection() {
	x.detail.Reset()
}
