package page

import (
	"context"
	"sync"

	"github.com/m-mizutani/lifebook/pkg/adapter"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/usecase/selection"
	"github.com/m-mizutani/lifebook/pkg/usecase/view"
)

// PromptRunFilter narrows the prompt run list. The user is always the
// selected one and is not part of the filter.
type PromptRunFilter struct {
	SessionID  model.SessionID
	PromptName string
	ParseOK    *bool
	Model      string
}

// PromptRuns lists the prompt runs of the selected user
type PromptRuns struct {
	scope
	backend adapter.Backend

	mu     sync.Mutex
	filter PromptRunFilter
	list   *view.View[[]*model.PromptRun]
	detail *view.View[*model.PromptRun]
}

var _ Page = (*PromptRuns)(nil)

func NewPromptRuns(store *selection.Store, backend adapter.Backend) *PromptRuns {
	return &PromptRuns{
		scope:   scope{store: store},
		backend: backend,
		list:    view.New[[]*model.PromptRun]("prompt runs"),
		detail:  view.New[*model.PromptRun]("prompt run"),
	}
}

func (x *PromptRuns) Mount(ctx context.Context) error {
	x.follow(func(ctx context.Context) {
		x.ClearSelection()
		_ = x.Reload(ctx)
	})
	return x.Reload(ctx)
}

func (x *PromptRuns) Reload(ctx context.Context) error {
	f := x.Filter()
	return loadForUser(ctx, x.store, x.list, func(ctx context.Context, userID model.UserID) ([]*model.PromptRun, error) {
		return x.backend.ListPromptRuns(ctx, adapter.PromptRunFilter{
			UserID:     userID,
			SessionID:  f.SessionID,
			PromptName: f.PromptName,
			ParseOK:    f.ParseOK,
			Model:      f.Model,
		})
	})
}

func (x *PromptRuns) Filter() PromptRunFilter {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.filter
}

// SetFilter replaces the filter and reloads the list
func (x *PromptRuns) SetFilter(ctx context.Context, f PromptRunFilter) error {
	x.mu.Lock()
	x.filter = f
	x.mu.Unlock()
	return x.Reload(ctx)
}

func (x *PromptRuns) Snapshot() view.Snapshot[[]*model.PromptRun] {
	return x.list.Snapshot()
}

func (x *PromptRuns) Detail() view.Snapshot[*model.PromptRun] {
	return x.detail.Snapshot()
}

// Select fetches one run with its full input and output
func (x *PromptRuns) Select(ctx context.Context, id model.PromptRunID) error {
	return x.detail.Load(ctx, func(ctx context.Context) (*model.PromptRun, error) {
		return x.backend.GetPromptRun(ctx, id)
	})
}

func (x *PromptRuns) ClearSelection() {
	x.detail.Reset()
}
