package page_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/lifebook/pkg/adapter"
	"github.com/m-mizutani/lifebook/pkg/adapter/backendtest"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/usecase/page"
	"github.com/m-mizutani/lifebook/pkg/usecase/view"
)

func ptr[T any](v T) *T {
	return &v
}

func TestJoinTimeline(t *testing.T) {
	messages := []*model.Message{
		{ID: 1, ContentText: "first"},
		{ID: 2, ContentText: "second"},
	}
	runs := []*model.PromptRun{
		{ID: 100, MessageID: ptr(model.MessageID(1)), PromptName: "extractor"},
		{ID: 101, MessageID: ptr(model.MessageID(1)), PromptName: "planner"},
		{ID: 102, MessageID: ptr(model.MessageID(99)), PromptName: "orphan"},
		{ID: 103, PromptName: "no message"},
	}

	entries := page.JoinTimeline(messages, runs)
	gt.A(t, entries).Length(2)
	gt.Equal(t, entries[0].Message.ID, model.MessageID(1))
	gt.A(t, entries[0].Runs).Length(2)
	gt.Equal(t, entries[0].Runs[0].ID, model.PromptRunID(100))
	gt.Equal(t, entries[1].Message.ID, model.MessageID(2))
	gt.A(t, entries[1].Runs).Length(0)
}

func TestSessionDetailLoadsMessagesAndRuns(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.srv.Messages = []*model.Message{{ID: 1, SessionID: 10, Role: "user", ContentText: "hello"}}
	f.srv.PromptRuns = []*model.PromptRun{
		{ID: 5, SessionID: 10, MessageID: ptr(model.MessageID(1)), PromptName: "extractor"},
	}

	detail := page.NewSessionDetail(f.client, 10)
	gt.NoError(t, detail.Mount(ctx))

	snap := detail.Snapshot()
	gt.Equal(t, snap.State, view.Ready)
	gt.A(t, snap.Data).Length(1)
	gt.A(t, snap.Data[0].Runs).Length(1)

	runs := f.srv.RequestsTo("GET /api/prompt-runs")
	gt.A(t, runs).Length(1)
	gt.Equal(t, runs[0].Query.Get("session_id"), "10")
	gt.A(t, f.srv.RequestsTo("GET /api/sessions/10/messages")).Length(1)
}

func TestSubmitSuccessClearsDraftAndReloads(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	detail := page.NewSessionDetail(f.client, 10)
	gt.NoError(t, detail.Mount(ctx))
	gt.A(t, detail.Snapshot().Data).Length(0)

	result, err := detail.Submit(ctx, "I moved to Osaka in 2010")
	gt.NoError(t, err).Required()
	gt.V(t, result.ExtractorRunID).NotNil()

	gt.Equal(t, detail.Draft(), "")
	gt.NoError(t, detail.SubmitError())
	gt.False(t, detail.Busy())
	gt.Equal(t, detail.LastResult().MessageID, result.MessageID)

	snap := detail.Snapshot()
	gt.A(t, snap.Data).Length(1)
	gt.Equal(t, snap.Data[0].Message.ContentText, "I moved to Osaka in 2010")
	gt.A(t, snap.Data[0].Runs).Length(2)

	// initial load plus the reload after submission
	gt.A(t, f.srv.RequestsTo("GET /api/sessions/10/messages")).Length(2)
	gt.A(t, f.srv.RequestsTo("GET /api/prompt-runs")).Length(2)
}

func TestSubmitFailureKeepsDraft(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.srv.Fail("POST /api/sessions/10/messages", backendtest.Failure{
		Status: http.StatusInternalServerError,
		Detail: "extractor returned invalid JSON",
	})

	detail := page.NewSessionDetail(f.client, 10)
	gt.NoError(t, detail.Mount(ctx))
	f.srv.Reset()

	_, err := detail.Submit(ctx, "keep me")
	gt.Error(t, err)
	gt.Equal(t, detail.Draft(), "keep me")
	gt.False(t, detail.Busy())

	apiErr, ok := adapter.AsAPIError(detail.SubmitError())
	gt.True(t, ok)
	gt.S(t, apiErr.Message()).Contains("extractor returned invalid JSON")

	// nothing is reloaded after a failed submission
	gt.A(t, f.srv.RequestsTo("GET /api/sessions/10/messages")).Length(0)

	// a later success clears the recorded error
	f.srv.Recover("POST /api/sessions/10/messages")
	_, err = detail.Submit(ctx, detail.Draft())
	gt.NoError(t, err)
	gt.NoError(t, detail.SubmitError())
	gt.Equal(t, detail.Draft(), "")
}

func TestSubmitIsSerialized(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	f.srv.Hook("POST /api/sessions/10/messages", func(r *http.Request) {
		close(entered)
		<-release
	})

	detail := page.NewSessionDetail(f.client, 10)
	done := make(chan error)
	go func() {
		_, err := detail.Submit(ctx, "first")
		done <- err
	}()
	<-entered

	gt.True(t, detail.Busy())
	_, err := detail.Submit(ctx, "second")
	gt.True(t, errors.Is(err, page.ErrSubmitInProgress))
	gt.True(t, errors.Is(detail.SetVersions(adapter.MessageOptions{ExtractorVersion: "v1"}), page.ErrSubmitInProgress))

	close(release)
	gt.NoError(t, <-done)
	gt.A(t, f.srv.RequestsTo("POST /api/sessions/10/messages")).Length(1)
	gt.NoError(t, detail.SetVersions(adapter.MessageOptions{ExtractorVersion: "v1"}))
}

func TestSubmitSendsSelectedVersions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	detail := page.NewSessionDetail(f.client, 10, page.WithMessageOptions(adapter.MessageOptions{
		ExtractorVersion: "v1",
		PlannerVersion:   "v1",
	}))
	_, err := detail.Submit(ctx, "one")
	gt.NoError(t, err)

	gt.NoError(t, detail.SetVersions(adapter.MessageOptions{ExtractorVersion: "v2", PlannerVersion: "v2"}))
	_, err = detail.Submit(ctx, "two")
	gt.NoError(t, err)

	posts := f.srv.RequestsTo("POST /api/sessions/10/messages")
	gt.A(t, posts).Length(2)
	gt.Equal(t, posts[0].Query.Get("extractor_version"), "v1")
	gt.Equal(t, posts[1].Query.Get("extractor_version"), "v2")
	gt.Equal(t, posts[1].Query.Get("planner_version"), "v2")
}

func TestSubmitEmptyText(t *testing.T) {
	f := setup(t)
	detail := page.NewSessionDetail(f.client, 10)

	_, err := detail.Submit(context.Background(), "   ")
	gt.True(t, errors.Is(err, page.ErrEmptyMessage))
	gt.A(t, f.srv.Requests()).Length(0)
}

func TestToggleDoesNotFetch(t *testing.T) {
	f := setup(t)
	detail := page.NewSessionDetail(f.client, 10)

	gt.False(t, detail.Expanded(5))
	gt.True(t, detail.Toggle(5))
	gt.True(t, detail.Expanded(5))
	gt.False(t, detail.Expanded(6))
	gt.False(t, detail.Toggle(5))
	gt.False(t, detail.Expanded(5))

	gt.A(t, f.srv.Requests()).Length(0)
}
