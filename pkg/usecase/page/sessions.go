package page

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifebook/pkg/adapter"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/usecase/selection"
	"github.com/m-mizutani/lifebook/pkg/usecase/view"
)

// Sessions lists the sessions of the selected user
type Sessions struct {
	scope
	backend adapter.Backend
	list    *view.View[[]*model.Session]
}

var _ Page = (*Sessions)(nil)

func NewSessions(store *selection.Store, backend adapter.Backend) *Sessions {
	return &Sessions{
		scope:   scope{store: store},
		backend: backend,
		list:    view.New[[]*model.Session]("sessions"),
	}
}

func (x *Sessions) Mount(ctx context.Context) error {
	x.follow(func(ctx context.Context) { _ = x.Reload(ctx) })
	return x.Reload(ctx)
}

func (x *Sessions) Reload(ctx context.Context) error {
	return loadForUser(ctx, x.store, x.list, func(ctx context.Context, userID model.UserID) ([]*model.Session, error) {
		sessions, err := x.backend.ListSessions(ctx, adapter.SessionFilter{UserID: userID})
		if err != nil {
			return nil, err
		}

		owned := make([]*model.Session, 0, len(sessions))
		for _, s := range sessions {
			if s.UserID == userID {
				owned = append(owned, s)
			}
		}
		return owned, nil
	})
}

func (x *Sessions) Snapshot() view.Snapshot[[]*model.Session] {
	return x.list.Snapshot()
}

// Create starts a new session for the selected user and reloads the list
func (x *Sessions) Create(ctx context.Context) (*model.Session, error) {
	userID, ok := x.store.Get()
	if !ok {
		return nil, ErrNoUserSelected
	}

	session, err := x.backend.CreateSession(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create session", goerr.V("user_id", userID))
	}

	_ = x.Reload(ctx)
	return session, nil
}
