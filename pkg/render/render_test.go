package render_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/lifebook/pkg/adapter"
	"github.com/m-mizutani/lifebook/pkg/adapter/backendtest"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/render"
	"github.com/m-mizutani/lifebook/pkg/usecase/page"
	"github.com/m-mizutani/lifebook/pkg/usecase/view"
)

func newRenderer() (*render.Renderer, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return render.New(buf, render.WithColor(false)), buf
}

func loadMemories(t *testing.T, v1, v2 []*model.Memory) view.Snapshot[*view.Versioned[*model.Memory]] {
	t.Helper()
	v := view.New[*view.Versioned[*model.Memory]]("memories")
	err := v.Load(context.Background(), func(ctx context.Context) (*view.Versioned[*model.Memory], error) {
		return view.LoadVersioned(ctx, model.PipelineVersions, func(ctx context.Context, version model.PipelineVersion) ([]*model.Memory, error) {
			if version == model.PipelineV1 {
				return v1, nil
			}
			return v2, nil
		})
	})
	gt.NoError(t, err).Required()
	return v.Snapshot()
}

func TestVersionedPanelsHaveOwnEmptyState(t *testing.T) {
	snap := loadMemories(t, []*model.Memory{
		{ID: 1, Summary: "born in Lyon"},
		{ID: 2, Summary: "moved to Paris"},
		{ID: 3, Summary: "first job"},
	}, nil)

	r, buf := newRenderer()
	r.Memories(snap)
	out := buf.String()

	parts := strings.Split(out, "== Pipeline v2")
	gt.A(t, parts).Length(2)
	left, right := parts[0], parts[1]

	gt.S(t, left).Contains("== Pipeline v1 (3) ==")
	lines := strings.Split(strings.TrimSpace(left), "\n")
	// panel title, header and three rows
	gt.A(t, lines).Length(5)
	gt.S(t, left).Contains("born in Lyon")
	gt.S(t, left).Contains("first job")

	gt.S(t, right).Contains("(0) ==")
	gt.S(t, right).Contains("(no memories for pipeline v2)")
	gt.S(t, right).NotContains("SUMMARY")
}

func TestAwaitingUserPlaceholder(t *testing.T) {
	v := view.New[[]*model.Question]("questions")
	v.AwaitUser()

	r, buf := newRenderer()
	r.Questions(v.Snapshot())
	gt.Equal(t, buf.String(), "Please select a user to view questions.\n")
}

func TestEmptyIsNotAwaitingUser(t *testing.T) {
	v := view.New[[]*model.Session]("sessions")
	gt.NoError(t, v.Load(context.Background(), func(ctx context.Context) ([]*model.Session, error) {
		return []*model.Session{}, nil
	}))

	r, buf := newRenderer()
	r.Sessions(v.Snapshot())
	gt.Equal(t, buf.String(), "(no sessions)\n")
}

func TestFailedShowsServerMessage(t *testing.T) {
	srv := backendtest.New(t)
	srv.Fail("GET /api/prompt-runs", backendtest.Failure{Status: http.StatusServiceUnavailable, Detail: "warming up"})
	client, err := adapter.NewBackend(srv.URL)
	gt.NoError(t, err).Required()

	v := view.New[[]*model.PromptRun]("prompt runs")
	_ = v.Load(context.Background(), func(ctx context.Context) ([]*model.PromptRun, error) {
		return client.ListPromptRuns(ctx, adapter.PromptRunFilter{UserID: 1})
	})

	r, buf := newRenderer()
	r.PromptRuns(v.Snapshot())
	gt.S(t, buf.String()).Contains("API error: Service Unavailable: warming up")
	gt.S(t, buf.String()).Contains("reload")
}

func TestSessionDetailExpandedRun(t *testing.T) {
	srv := backendtest.New(t)
	msgID := model.MessageID(1)
	srv.Sessions = []*model.Session{{ID: 10, UserID: 1}}
	srv.Messages = []*model.Message{{ID: 1, SessionID: 10, Role: "user", ContentText: "hello there"}}
	srv.PromptRuns = []*model.PromptRun{
		{ID: 5, SessionID: 10, MessageID: &msgID, PromptName: "extractor", PromptVersion: "v3", Model: "gpt-4o-mini",
			InputJSON: json.RawMessage(`{"message_text":"hello there"}`), OutputJSON: json.RawMessage(`{"memories":[]}`), ParseOK: true},
		{ID: 6, SessionID: 10, MessageID: &msgID, PromptName: "planner", PromptVersion: "v1", Model: "gpt-4o-mini",
			InputJSON: json.RawMessage(`{"system_prompt":"You plan follow-up questions."}`), ParseOK: false},
	}
	client, err := adapter.NewBackend(srv.URL)
	gt.NoError(t, err).Required()

	detail := page.NewSessionDetail(client, 10)
	gt.NoError(t, detail.Mount(context.Background()))

	r, buf := newRenderer()
	r.SessionDetail(detail)
	out := buf.String()
	gt.S(t, out).Contains("hello there")
	gt.S(t, out).Contains("+ run #5 extractor v3")
	gt.S(t, out).NotContains(render.NoSystemPrompt)

	detail.Toggle(5)
	detail.Toggle(6)
	buf.Reset()
	r.SessionDetail(detail)
	out = buf.String()
	gt.S(t, out).Contains("- run #5")
	gt.S(t, out).Contains("system prompt: " + render.NoSystemPrompt)
	gt.S(t, out).Contains("You plan follow-up questions.")
	gt.S(t, out).Contains(`"memories": []`)
	gt.S(t, out).Contains("failed")
}

func TestSessionDetailShowsSubmitError(t *testing.T) {
	srv := backendtest.New(t)
	srv.Sessions = []*model.Session{{ID: 10, UserID: 1}}
	srv.Fail("POST /api/sessions/10/messages", backendtest.Failure{Status: http.StatusInternalServerError, Detail: "planner crashed"})
	client, err := adapter.NewBackend(srv.URL)
	gt.NoError(t, err).Required()

	detail := page.NewSessionDetail(client, 10)
	_, err = detail.Submit(context.Background(), "my story")
	gt.Error(t, err)

	r, buf := newRenderer()
	r.SessionDetail(detail)
	gt.S(t, buf.String()).Contains("Error: API error: Internal Server Error: planner crashed")
	gt.S(t, buf.String()).Contains("Draft kept for retry: my story")
}

func TestUsersMarksSelected(t *testing.T) {
	r, buf := newRenderer()
	r.Users([]*model.User{{ID: 1, Name: "Alice"}, {ID: 2, Name: "Bob"}}, 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	gt.A(t, lines).Length(3)
	gt.True(t, strings.HasPrefix(lines[2], "*"))
	gt.False(t, strings.HasPrefix(lines[1], "*"))
}

func TestHome(t *testing.T) {
	r, buf := newRenderer()
	r.Home(0, false)
	gt.S(t, buf.String()).Contains("No user selected")
	for _, s := range render.Sections {
		gt.S(t, buf.String()).Contains(s.Command)
	}
}

func TestMessage(t *testing.T) {
	gt.Equal(t, render.Message(nil), "")
	gt.Equal(t, render.Message(&adapter.APIError{Status: "Not Found", Detail: "Memory not found"}), "API error: Not Found: Memory not found")
}
