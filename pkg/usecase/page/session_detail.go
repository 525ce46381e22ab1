package page

import (
	"context"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifebook/pkg/adapter"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/usecase/view"
	"github.com/m-mizutani/lifebook/pkg/utils/logging"
)

// TimelineEntry is a message with the prompt runs it triggered
type TimelineEntry struct {
	Message *model.Message
	Runs    []*model.PromptRun
}

// JoinTimeline attaches runs to their messages by message id. Runs that match
// no message are dropped; message order is kept.
func JoinTimeline(messages []*model.Message, runs []*model.PromptRun) []TimelineEntry {
	byMessage := make(map[model.MessageID][]*model.PromptRun)
	for _, run := range runs {
		if run.MessageID == nil {
			continue
		}
		byMessage[*run.MessageID] = append(byMessage[*run.MessageID], run)
	}

	entries := make([]TimelineEntry, 0, len(messages))
	for _, msg := range messages {
		entries = append(entries, TimelineEntry{
			Message: msg,
			Runs:    byMessage[msg.ID],
		})
	}
	return entries
}

// SessionDetail shows one session's timeline and submits new messages
type SessionDetail struct {
	backend   adapter.Backend
	sessionID model.SessionID
	timeline  *view.View[[]TimelineEntry]

	mu         sync.Mutex
	busy       bool
	draft      string
	submitErr  error
	versions   adapter.MessageOptions
	lastResult *model.ProcessResult
	expanded   map[model.PromptRunID]bool
}

var _ Page = (*SessionDetail)(nil)

func NewSessionDetail(backend adapter.Backend, sessionID model.SessionID, opts ...Option) *SessionDetail {
	o := newOptions(opts)
	return &SessionDetail{
		backend:   backend,
		sessionID: sessionID,
		timeline:  view.New[[]TimelineEntry]("session " + sessionID.String()),
		versions:  o.messageOptions,
		expanded:  make(map[model.PromptRunID]bool),
	}
}

// SessionID returns the session shown by the page
func (x *SessionDetail) SessionID() model.SessionID {
	return x.sessionID
}

// Mount loads the timeline. The page is scoped by session, not by user.
func (x *SessionDetail) Mount(ctx context.Context) error {
	return x.Reload(ctx)
}

func (x *SessionDetail) Unmount() {}

// Reload fetches messages and prompt runs together and joins them
func (x *SessionDetail) Reload(ctx context.Context) error {
	return x.timeline.Load(ctx, func(ctx context.Context) ([]TimelineEntry, error) {
		var (
			messages []*model.Message
			runs     []*model.PromptRun
		)
		err := view.All(ctx,
			func(ctx context.Context) error {
				var err error
				messages, err = x.backend.ListMessages(ctx, x.sessionID)
				return err
			},
			func(ctx context.Context) error {
				var err error
				runs, err = x.backend.ListPromptRuns(ctx, adapter.PromptRunFilter{SessionID: x.sessionID})
				return err
			},
		)
		if err != nil {
			return nil, err
		}
		return JoinTimeline(messages, runs), nil
	})
}

func (x *SessionDetail) Snapshot() view.Snapshot[[]TimelineEntry] {
	return x.timeline.Snapshot()
}

// Submit sends text to the session. Only one submission runs at a time. On
// success the draft is cleared and the timeline reloaded; on failure the
// draft is kept and the error is recorded for display.
func (x *SessionDetail) Submit(ctx context.Context, text string) (*model.ProcessResult, error) {
	x.mu.Lock()
	if x.busy {
		x.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	x.draft = text
	if strings.TrimSpace(text) == "" {
		x.mu.Unlock()
		return nil, ErrEmptyMessage
	}
	x.busy = true
	x.submitErr = nil
	versions := x.versions
	x.mu.Unlock()

	defer func() {
		x.mu.Lock()
		x.busy = false
		x.mu.Unlock()
	}()

	result, err := x.backend.CreateMessage(ctx, x.sessionID, text, versions)
	if err != nil {
		err = goerr.Wrap(err, "failed to send message", goerr.V("session_id", x.sessionID))
		x.mu.Lock()
		x.submitErr = err
		x.mu.Unlock()
		return nil, err
	}

	x.mu.Lock()
	x.draft = ""
	x.lastResult = result
	x.mu.Unlock()

	logging.From(ctx).Info("message processed",
		"session_id", x.sessionID,
		"message_id", result.MessageID,
		"memories_created", result.MemoriesCreated)

	// a failed reload is shown by the timeline view, the message itself was accepted
	_ = x.Reload(ctx)
	return result, nil
}

// Busy reports whether a submission is in flight
func (x *SessionDetail) Busy() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.busy
}

// Draft returns the text kept for retry
func (x *SessionDetail) Draft() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.draft
}

// SubmitError returns the error of the last submission, nil after a success
func (x *SessionDetail) SubmitError() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.submitErr
}

// LastResult returns the processing result of the last accepted message
func (x *SessionDetail) LastResult() *model.ProcessResult {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.lastResult
}

// Versions returns the extractor and planner selection
func (x *SessionDetail) Versions() adapter.MessageOptions {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.versions
}

// SetVersions changes the extractor and planner selection. It is rejected
// while a submission is in flight.
func (x *SessionDetail) SetVersions(opts adapter.MessageOptions) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.busy {
		return ErrSubmitInProgress
	}
	x.versions = opts
	return nil
}

// Toggle flips the expanded state of a run and returns the new state
func (x *SessionDetail) Toggle(id model.PromptRunID) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.expanded[id] {
		delete(x.expanded, id)
		return false
	}
	x.expanded[id] = true
	return true
}

// Expanded reports whether a run is expanded
func (x *SessionDetail) Expanded(id model.PromptRunID) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.expanded[id]
}
