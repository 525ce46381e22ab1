// Package selection holds the user currently being inspected and announces
// changes to every mounted page.
package selection

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/repository"
	"github.com/m-mizutani/lifebook/pkg/utils/logging"
)

// Listener receives the new selection. id is zero when the selection was cleared.
type Listener func(ctx context.Context, id model.UserID)

// UserCreator is the part of the backend CreateAndSelect needs
type UserCreator interface {
	CreateUser(ctx context.Context, name string) (*model.User, error)
}

type subscription struct {
	id int
	fn Listener
}

// Store is the selected-user state container
type Store struct {
	repo repository.SelectionRepository

	// writeMu serializes mutations so persisted and in-memory values agree
	writeMu sync.Mutex

	mu        sync.RWMutex
	current   model.UserID
	selected  bool
	listeners []subscription
	nextSub   int
}

// New creates a Store initialized from repo
func New(ctx context.Context, repo repository.SelectionRepository) (*Store, error) {
	id, ok, err := repo.LoadSelection(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load selected user")
	}

	return &Store{
		repo:     repo,
		current:  id,
		selected: ok,
	}, nil
}

// Get returns the selected user id
func (x *Store) Get() (model.UserID, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.current, x.selected
}

// Subscribe registers fn for change announcements. Listeners are called in
// subscription order, outside of the store lock. The returned function
// removes the subscription.
func (x *Store) Subscribe(fn Listener) func() {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.nextSub++
	subID := x.nextSub
	x.listeners = append(x.listeners, subscription{id: subID, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			x.mu.Lock()
			defer x.mu.Unlock()
			for i, s := range x.listeners {
				if s.id == subID {
					x.listeners = append(x.listeners[:i:i], x.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Set selects id, persists it and announces the change. Selecting the user
// that is already selected is not a change.
func (x *Store) Set(ctx context.Context, id model.UserID) error {
	if id <= 0 {
		return goerr.New("invalid user id", goerr.V("id", id))
	}

	x.writeMu.Lock()
	defer x.writeMu.Unlock()

	if cur, ok := x.Get(); ok && cur == id {
		return nil
	}

	if err := x.repo.SaveSelection(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to save selected user", goerr.V("id", id))
	}

	x.mu.Lock()
	x.current, x.selected = id, true
	listeners := append([]subscription(nil), x.listeners...)
	x.mu.Unlock()

	logging.From(ctx).Debug("selected user changed", "user_id", id, "listeners", len(listeners))
	x.announce(ctx, id, listeners)
	return nil
}

// Clear drops the selection and announces it when there was one
func (x *Store) Clear(ctx context.Context) error {
	x.writeMu.Lock()
	defer x.writeMu.Unlock()

	if _, ok := x.Get(); !ok {
		return nil
	}

	if err := x.repo.ClearSelection(ctx); err != nil {
		return goerr.Wrap(err, "failed to clear selected user")
	}

	x.mu.Lock()
	x.current, x.selected = 0, false
	listeners := append([]subscription(nil), x.listeners...)
	x.mu.Unlock()

	logging.From(ctx).Debug("selected user cleared")
	x.announce(ctx, 0, listeners)
	return nil
}

func (x *Store) announce(ctx context.Context, id model.UserID, listeners []subscription) {
	for _, s := range listeners {
		s.fn(ctx, id)
	}
}

// AutoSelect keeps the stored selection when it names one of users and
// otherwise selects the first user. With no users the selection is cleared.
func (x *Store) AutoSelect(ctx context.Context, users []*model.User) (model.UserID, error) {
	if len(users) == 0 {
		return 0, x.Clear(ctx)
	}

	if cur, ok := x.Get(); ok {
		for _, u := range users {
			if u.ID == cur {
				return cur, nil
			}
		}
		logging.From(ctx).Info("stored user no longer exists, selecting first user", "user_id", cur)
	}

	if err := x.Set(ctx, users[0].ID); err != nil {
		return 0, err
	}
	return users[0].ID, nil
}

// CreateAndSelect creates a user on the backend and selects it
func (x *Store) CreateAndSelect(ctx context.Context, backend UserCreator, name string) (*model.User, error) {
	user, err := backend.CreateUser(ctx, name)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create user")
	}

	if err := x.Set(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}
