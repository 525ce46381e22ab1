package selection_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/lifebook/pkg/adapter"
	"github.com/m-mizutani/lifebook/pkg/adapter/backendtest"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/repository"
	"github.com/m-mizutani/lifebook/pkg/usecase/selection"
)

type recorder struct {
	ids []model.UserID
}

func (r *recorder) listen(ctx context.Context, id model.UserID) {
	r.ids = append(r.ids, id)
}

func newStore(t *testing.T) (*selection.Store, *repository.Memory) {
	t.Helper()
	repo := repository.NewMemory()
	store, err := selection.New(context.Background(), repo)
	gt.NoError(t, err).Required()
	return store, repo
}

func TestSetAnnouncesOnce(t *testing.T) {
	store, repo := newStore(t)
	ctx := context.Background()

	var rec recorder
	store.Subscribe(rec.listen)

	gt.NoError(t, store.Set(ctx, 3))
	gt.A(t, rec.ids).Length(1)
	gt.Equal(t, rec.ids[0], model.UserID(3))

	// same id is not a mutation
	gt.NoError(t, store.Set(ctx, 3))
	gt.A(t, rec.ids).Length(1)
	gt.Equal(t, repo.Saves(), 1)

	gt.NoError(t, store.Set(ctx, 4))
	gt.A(t, rec.ids).Length(2)
	gt.Equal(t, rec.ids[1], model.UserID(4))

	id, ok := store.Get()
	gt.True(t, ok)
	gt.Equal(t, id, model.UserID(4))
}

func TestSetRejectsInvalidID(t *testing.T) {
	store, _ := newStore(t)
	gt.Error(t, store.Set(context.Background(), 0))
	_, ok := store.Get()
	gt.False(t, ok)
}

func TestListenersInOrderAndUnsubscribe(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	var order []string
	store.Subscribe(func(ctx context.Context, id model.UserID) { order = append(order, "first") })
	unsub := store.Subscribe(func(ctx context.Context, id model.UserID) { order = append(order, "second") })
	store.Subscribe(func(ctx context.Context, id model.UserID) { order = append(order, "third") })

	gt.NoError(t, store.Set(ctx, 1))
	gt.Equal(t, order, []string{"first", "second", "third"})

	unsub()
	unsub()
	order = nil
	gt.NoError(t, store.Set(ctx, 2))
	gt.Equal(t, order, []string{"first", "third"})
}

func TestListenerCanReadStore(t *testing.T) {
	store, _ := newStore(t)

	var seen model.UserID
	store.Subscribe(func(ctx context.Context, id model.UserID) {
		seen, _ = store.Get()
	})

	gt.NoError(t, store.Set(context.Background(), 9))
	gt.Equal(t, seen, model.UserID(9))
}

func TestStoreLoadsPersistedSelection(t *testing.T) {
	repo := repository.NewMemory()
	ctx := context.Background()
	gt.NoError(t, repo.SaveSelection(ctx, 5))

	store, err := selection.New(ctx, repo)
	gt.NoError(t, err).Required()
	id, ok := store.Get()
	gt.True(t, ok)
	gt.Equal(t, id, model.UserID(5))
}

func TestClear(t *testing.T) {
	store, repo := newStore(t)
	ctx := context.Background()

	var rec recorder
	store.Subscribe(rec.listen)

	// nothing selected, nothing announced
	gt.NoError(t, store.Clear(ctx))
	gt.A(t, rec.ids).Length(0)

	gt.NoError(t, store.Set(ctx, 2))
	gt.NoError(t, store.Clear(ctx))
	gt.Equal(t, rec.ids, []model.UserID{2, 0})

	_, ok, err := repo.LoadSelection(ctx)
	gt.NoError(t, err)
	gt.False(t, ok)
}

func TestAutoSelect(t *testing.T) {
	users := []*model.User{{ID: 10, Name: "a"}, {ID: 11, Name: "b"}}
	ctx := context.Background()

	t.Run("first user when nothing stored", func(t *testing.T) {
		store, _ := newStore(t)
		var rec recorder
		store.Subscribe(rec.listen)

		id, err := store.AutoSelect(ctx, users)
		gt.NoError(t, err)
		gt.Equal(t, id, model.UserID(10))
		gt.Equal(t, rec.ids, []model.UserID{10})
	})

	t.Run("stored user is kept silently", func(t *testing.T) {
		store, repo := newStore(t)
		gt.NoError(t, store.Set(ctx, 11))
		var rec recorder
		store.Subscribe(rec.listen)

		id, err := store.AutoSelect(ctx, users)
		gt.NoError(t, err)
		gt.Equal(t, id, model.UserID(11))
		gt.A(t, rec.ids).Length(0)
		gt.Equal(t, repo.Saves(), 1)
	})

	t.Run("missing stored user falls back to first", func(t *testing.T) {
		store, _ := newStore(t)
		gt.NoError(t, store.Set(ctx, 99))
		var rec recorder
		store.Subscribe(rec.listen)

		id, err := store.AutoSelect(ctx, users)
		gt.NoError(t, err)
		gt.Equal(t, id, model.UserID(10))
		gt.Equal(t, rec.ids, []model.UserID{10})
	})

	t.Run("no users clears", func(t *testing.T) {
		store, _ := newStore(t)
		gt.NoError(t, store.Set(ctx, 1))

		id, err := store.AutoSelect(ctx, nil)
		gt.NoError(t, err)
		gt.Equal(t, id, model.UserID(0))
		_, ok := store.Get()
		gt.False(t, ok)
	})
}

func TestCreateAndSelect(t *testing.T) {
	srv := backendtest.New(t)
	client, err := adapter.NewBackend(srv.URL)
	gt.NoError(t, err).Required()

	store, _ := newStore(t)
	var rec recorder
	store.Subscribe(rec.listen)

	user, err := store.CreateAndSelect(context.Background(), client, "Bob")
	gt.NoError(t, err).Required()
	gt.Equal(t, user.Name, "Bob")
	gt.Equal(t, rec.ids, []model.UserID{user.ID})

	id, _ := store.Get()
	gt.Equal(t, id, user.ID)
}

type failingCreator struct{}

func (failingCreator) CreateUser(ctx context.Context, name string) (*model.User, error) {
	return nil, errors.New("boom")
}

func TestCreateAndSelectFailureKeepsSelection(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	gt.NoError(t, store.Set(ctx, 1))

	var rec recorder
	store.Subscribe(rec.listen)

	_, err := store.CreateAndSelect(ctx, failingCreator{}, "x")
	gt.Error(t, err)
	gt.A(t, rec.ids).Length(0)
	id, _ := store.Get()
	gt.Equal(t, id, model.UserID(1))
}
