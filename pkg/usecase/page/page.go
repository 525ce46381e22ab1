// Package page composes views into the console pages. A page is mounted
// against the selected-user store and refreshes itself when the selection
// changes.
package page

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifebook/pkg/adapter"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/usecase/selection"
	"github.com/m-mizutani/lifebook/pkg/usecase/view"
)

var (
	ErrSubmitInProgress = goerr.New("message submission already in progress")
	ErrNoUserSelected   = goerr.New("no user selected")
	ErrEmptyMessage     = goerr.New("message text is empty")
)

// Page is a mountable console page
type Page interface {
	// Mount subscribes to selection changes and performs the first load
	Mount(ctx context.Context) error
	// Unmount stops following selection changes
	Unmount()
	// Reload fetches the page data again, the retry action of a failed view
	Reload(ctx context.Context) error
}

// Option configures pages
type Option func(*options)

type options struct {
	versions       []model.PipelineVersion
	messageOptions adapter.MessageOptions
}

func newOptions(opts []Option) options {
	o := options{versions: model.PipelineVersions}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithVersions sets the pipeline versions compared by versioned pages
func WithVersions(versions []model.PipelineVersion) Option {
	return func(o *options) {
		if len(versions) > 0 {
			o.versions = versions
		}
	}
}

// WithMessageOptions sets the initial extractor and planner selection of a
// session detail page
func WithMessageOptions(opts adapter.MessageOptions) Option {
	return func(o *options) {
		o.messageOptions = opts
	}
}

// scope tracks the selection subscription of a mounted page
type scope struct {
	store *selection.Store

	mu          sync.Mutex
	unsubscribe func()
}

// follow subscribes fn to selection changes once; mounting twice does not
// duplicate refreshes.
func (x *scope) follow(fn func(ctx context.Context)) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.unsubscribe != nil {
		return
	}
	x.unsubscribe = x.store.Subscribe(func(ctx context.Context, _ model.UserID) {
		fn(ctx)
	})
}

// Unmount stops following selection changes
func (x *scope) Unmount() {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.unsubscribe != nil {
		x.unsubscribe()
		x.unsubscribe = nil
	}
}

// loadForUser loads v for the currently selected user. Without a selection
// the view awaits a user and nothing is fetched.
func loadForUser[T any](ctx context.Context, store *selection.Store, v *view.View[T], fetch func(ctx context.Context, userID model.UserID) (T, error)) error {
	userID, ok := store.Get()
	if !ok {
		v.AwaitUser()
		return nil
	}
	return v.Load(ctx, func(ctx context.Context) (T, error) {
		return fetch(ctx, userID)
	})
}

func loadVersionedForUser[T any](ctx context.Context, store *selection.Store, v *view.View[*view.Versioned[T]], versions []model.PipelineVersion, fetch func(ctx context.Context, userID model.UserID, version model.PipelineVersion) ([]T, error)) error {
	return loadForUser(ctx, store, v, func(ctx context.Context, userID model.UserID) (*view.Versioned[T], error) {
		return view.LoadVersioned(ctx, versions, func(ctx context.Context, version model.PipelineVersion) ([]T, error) {
			return fetch(ctx, userID, version)
		})
	})
}
