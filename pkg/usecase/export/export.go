// Package export archives prompt runs as JSON Lines for offline prompt iteration.
package export

import (
	"context"
	"encoding/json"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifebook/pkg/adapter"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/utils/logging"
)

// UseCase exports prompt runs to a storage
type UseCase struct {
	backend adapter.Backend
	storage adapter.Storage
	now     func() time.Time
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithNow replaces the clock used for object keys
func WithNow(now func() time.Time) Option {
	return func(uc *UseCase) {
		uc.now = now
	}
}

func New(backend adapter.Backend, storage adapter.Storage, opts ...Option) *UseCase {
	uc := &UseCase{
		backend: backend,
		storage: storage,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Input selects the runs to export. At least one of UserID and SessionID is required.
type Input struct {
	UserID     model.UserID
	SessionID  model.SessionID
	PromptName string
}

// Result describes a written archive
type Result struct {
	Key      string
	Location string
	Count    int
}

func (x Input) key(now time.Time) string {
	scope := "user-" + x.UserID.String()
	if x.SessionID != 0 {
		scope = "session-" + x.SessionID.String()
	}
	name := now.UTC().Format("20060102T150405Z") + "-" + uuid.NewString() + ".jsonl"
	return path.Join("prompt-runs", scope, name)
}

// PromptRuns writes the matching prompt runs, one JSON object per line
func (uc *UseCase) PromptRuns(ctx context.Context, input Input) (*Result, error) {
	if input.UserID == 0 && input.SessionID == 0 {
		return nil, goerr.New("user or session is required for export")
	}

	runs, err := uc.backend.ListPromptRuns(ctx, adapter.PromptRunFilter{
		UserID:     input.UserID,
		SessionID:  input.SessionID,
		PromptName: input.PromptName,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list prompt runs")
	}

	key := input.key(uc.now())
	w, err := uc.storage.Put(ctx, key)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open archive", goerr.V("key", key))
	}

	enc := json.NewEncoder(w)
	for _, run := range runs {
		if err := enc.Encode(run); err != nil {
			if abortErr := w.Abort(); abortErr != nil {
				logging.From(ctx).Warn("failed to discard partial archive", "key", key, "error", abortErr)
			}
			return nil, goerr.Wrap(err, "failed to write prompt run",
				goerr.V("key", key),
				goerr.V("prompt_run_id", run.ID))
		}
	}
	if err := w.Close(); err != nil {
		return nil, goerr.Wrap(err, "failed to commit archive", goerr.V("key", key))
	}

	result := &Result{
		Key:      key,
		Location: uc.storage.Location(key),
		Count:    len(runs),
	}
	logging.From(ctx).Info("exported prompt runs", "location", result.Location, "count", result.Count)
	return result, nil
}
