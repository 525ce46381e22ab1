package export_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/lifebook/pkg/adapter"
	"github.com/m-mizutani/lifebook/pkg/adapter/backendtest"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/usecase/export"
)

func TestExportPromptRuns(t *testing.T) {
	srv := backendtest.New(t)
	srv.Sessions = []*model.Session{{ID: 10, UserID: 1}}
	srv.PromptRuns = []*model.PromptRun{
		{ID: 1, SessionID: 10, PromptName: "extractor", InputJSON: json.RawMessage(`{"system_prompt":"be terse"}`), ParseOK: true},
		{ID: 2, SessionID: 10, PromptName: "planner", ParseOK: false},
		{ID: 3, SessionID: 99, PromptName: "extractor"},
	}
	client, err := adapter.NewBackend(srv.URL)
	gt.NoError(t, err).Required()

	dir := t.TempDir()
	storage, err := adapter.NewLocalStorage(dir)
	gt.NoError(t, err).Required()

	fixed := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	uc := export.New(client, storage, export.WithNow(func() time.Time { return fixed }))

	result, err := uc.PromptRuns(context.Background(), export.Input{SessionID: 10})
	gt.NoError(t, err).Required()
	gt.Equal(t, result.Count, 2)
	gt.True(t, strings.HasPrefix(result.Key, "prompt-runs/session-10/20240501T093000Z-"))
	gt.True(t, strings.HasSuffix(result.Key, ".jsonl"))

	f, err := os.Open(result.Location)
	gt.NoError(t, err).Required()
	defer f.Close()

	var runs []model.PromptRun
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var run model.PromptRun
		gt.NoError(t, json.Unmarshal(scanner.Bytes(), &run))
		runs = append(runs, run)
	}
	gt.NoError(t, scanner.Err())
	gt.A(t, runs).Length(2)

	prompt, ok := runs[0].SystemPrompt()
	gt.True(t, ok)
	gt.Equal(t, prompt, "be terse")

	reqs := srv.RequestsTo("GET /api/prompt-runs")
	gt.A(t, reqs).Length(1)
	gt.Equal(t, reqs[0].Query.Get("session_id"), "10")
	gt.False(t, reqs[0].Query.Has("user_id"))
}

func TestExportRequiresScope(t *testing.T) {
	srv := backendtest.New(t)
	client, err := adapter.NewBackend(srv.URL)
	gt.NoError(t, err).Required()
	storage, err := adapter.NewLocalStorage(t.TempDir())
	gt.NoError(t, err).Required()

	_, err = export.New(client, storage).PromptRuns(context.Background(), export.Input{})
	gt.Error(t, err)
	gt.A(t, srv.Requests()).Length(0)
}

func TestExportByUser(t *testing.T) {
	srv := backendtest.New(t)
	srv.Sessions = []*model.Session{{ID: 10, UserID: 1}, {ID: 11, UserID: 2}}
	srv.PromptRuns = []*model.PromptRun{
		{ID: 1, SessionID: 10, PromptName: "extractor"},
		{ID: 2, SessionID: 11, PromptName: "extractor"},
	}
	client, err := adapter.NewBackend(srv.URL)
	gt.NoError(t, err).Required()
	storage, err := adapter.NewLocalStorage(t.TempDir())
	gt.NoError(t, err).Required()

	result, err := export.New(client, storage).PromptRuns(context.Background(), export.Input{UserID: 2})
	gt.NoError(t, err).Required()
	gt.Equal(t, result.Count, 1)
	gt.S(t, result.Key).Contains("user-2")
}

type archive struct {
	committed bool
	aborted   bool
}

func (x *archive) Write(p []byte) (int, error) { return 0, errors.New("disk full") }
func (x *archive) Close() error                { x.committed = true; return nil }
func (x *archive) Abort() error                { x.aborted = true; return nil }

type failingStorage struct {
	archive archive
}

func (x *failingStorage) Put(ctx context.Context, key string) (adapter.Archive, error) {
	return &x.archive, nil
}

func (x *failingStorage) Location(key string) string { return "mem://" + key }

func TestExportDiscardsPartialArchive(t *testing.T) {
	srv := backendtest.New(t)
	srv.Sessions = []*model.Session{{ID: 10, UserID: 1}}
	srv.PromptRuns = []*model.PromptRun{{ID: 1, SessionID: 10, PromptName: "extractor"}}
	client, err := adapter.NewBackend(srv.URL)
	gt.NoError(t, err).Required()

	storage := &failingStorage{}
	_, err = export.New(client, storage).PromptRuns(context.Background(), export.Input{SessionID: 10})
	gt.Error(t, err)
	gt.True(t, storage.archive.aborted)
	gt.False(t, storage.archive.committed)
}
