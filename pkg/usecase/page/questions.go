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

// QuestionFilter narrows the question list of the selected user
type QuestionFilter struct {
	SessionID model.SessionID
	Status    model.QuestionStatus
}

// Questions lists follow-up questions and moves them through their status workflow
type Questions struct {
	scope
	backend adapter.Backend

	mu     sync.Mutex
	filter QuestionFilter
	list   *view.View[[]*model.Question]
}

var _ Page = (*Questions)(nil)

func NewQuestions(store *selection.Store, backend adapter.Backend) *Questions {
	return &Questions{
		scope:   scope{store: store},
		backend: backend,
		list:    view.New[[]*model.Question]("questions"),
	}
}

func (x *Questions) Mount(ctx context.Context) error {
	x.follow(func(ctx context.Context) { _ = x.Reload(ctx) })
	return x.Reload(ctx)
}

func (x *Questions) Reload(ctx context.Context) error {
	f := x.Filter()
	return loadForUser(ctx, x.store, x.list, func(ctx context.Context, userID model.UserID) ([]*model.Question, error) {
		return x.backend.ListQuestions(ctx, adapter.QuestionFilter{
			UserID:    userID,
			SessionID: f.SessionID,
			Status:    f.Status,
		})
	})
}

func (x *Questions) Filter() QuestionFilter {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.filter
}

// SetFilter replaces the filter and reloads the list
func (x *Questions) SetFilter(ctx context.Context, f QuestionFilter) error {
	if f.Status != "" {
		if err := f.Status.Validate(); err != nil {
			return err
		}
	}
	x.mu.Lock()
	x.filter = f
	x.mu.Unlock()
	return x.Reload(ctx)
}

func (x *Questions) Snapshot() view.Snapshot[[]*model.Question] {
	return x.list.Snapshot()
}

// SetStatus decides a pending question. On success the list is fetched
// again; on failure the list is left as it is and the error is returned.
func (x *Questions) SetStatus(ctx context.Context, id model.QuestionID, status model.QuestionStatus) error {
	if err := status.Validate(); err != nil {
		return err
	}

	current, err := x.current(ctx, id)
	if err != nil {
		return err
	}
	if !current.Status.CanTransitionTo(status) {
		return goerr.Wrap(model.ErrInvalidTransition, "question is already decided",
			goerr.V("question_id", id),
			goerr.V("from", current.Status),
			goerr.V("to", status))
	}

	if _, err := x.backend.UpdateQuestionStatus(ctx, id, status); err != nil {
		return goerr.Wrap(err, "failed to update question status",
			goerr.V("question_id", id),
			goerr.V("status", status))
	}

	_ = x.Reload(ctx)
	return nil
}

// current fetches the question from the backend. The loaded list may hold a
// stale status after a failed reload, so it never decides a transition.
func (x *Questions) current(ctx context.Context, id model.QuestionID) (*model.Question, error) {
	q, err := x.backend.GetQuestion(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get question", goerr.V("question_id", id))
	}
	return q, nil
}
