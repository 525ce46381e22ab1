package mcp

import (
	"context"

	"github.com/m-mizutani/lifebook/pkg/adapter"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/usecase/view"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type listUsersParams struct{}

type listSessionsParams struct {
	UserID int64 `json:"user_id,omitempty" jsonschema:"User ID. Defaults to the selected user"`
}

type listMemoriesParams struct {
	UserID          int64  `json:"user_id,omitempty" jsonschema:"User ID. Defaults to the selected user"`
	SessionID       int64  `json:"session_id,omitempty" jsonschema:"Only memories extracted in this session"`
	PipelineVersion string `json:"pipeline_version,omitempty" jsonschema:"Pipeline version such as v1 or v2. All versions are returned separately when omitted"`
}

type versionedParams struct {
	UserID          int64  `json:"user_id,omitempty" jsonschema:"User ID. Defaults to the selected user"`
	PipelineVersion string `json:"pipeline_version,omitempty" jsonschema:"Pipeline version such as v1 or v2. All versions are returned separately when omitted"`
}

type getChapterParams struct {
	ChapterID int64 `json:"chapter_id" jsonschema:"Chapter ID"`
}

type listPromptRunsParams struct {
	UserID     int64  `json:"user_id,omitempty" jsonschema:"User ID. Defaults to the selected user"`
	SessionID  int64  `json:"session_id,omitempty" jsonschema:"Only runs of this session"`
	PromptName string `json:"prompt_name,omitempty" jsonschema:"Prompt name such as extractor or planner"`
	ParseOK    *bool  `json:"parse_ok,omitempty" jsonschema:"Only runs whose output did or did not parse"`
	Model      string `json:"model,omitempty" jsonschema:"Model name"`
}

type getPromptRunParams struct {
	PromptRunID int64 `json:"prompt_run_id" jsonschema:"Prompt run ID"`
}

type listQuestionsParams struct {
	UserID    int64  `json:"user_id,omitempty" jsonschema:"User ID. Defaults to the selected user"`
	SessionID int64  `json:"session_id,omitempty" jsonschema:"Only questions of this session"`
	Status    string `json:"status,omitempty" jsonschema:"pending, asked or dismissed"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_users",
		Description: "List all users of the LifeBook backend",
	}, s.listUsers)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_sessions",
		Description: "List conversation sessions of a user",
	}, s.listSessions)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_memories",
		Description: "List extracted memories of a user, grouped by pipeline version",
	}, s.listMemories)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_persons",
		Description: "List persons detected for a user, grouped by pipeline version",
	}, s.listPersons)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_chapters",
		Description: "List biography chapters of a user, grouped by pipeline version",
	}, s.listChapters)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_chapter",
		Description: "Get a chapter with its linked memories and coverage",
	}, s.getChapter)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_prompt_runs",
		Description: "List logged prompt invocations with parse outcome, tokens and latency",
	}, s.listPromptRuns)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_prompt_run",
		Description: "Get one prompt run including raw input and output",
	}, s.getPromptRun)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_questions",
		Description: "List follow-up questions generated by the pipeline",
	}, s.listQuestions)
}

func (s *Server) listUsers(ctx context.Context, req *mcp.CallToolRequest, params *listUsersParams) (*mcp.CallToolResult, any, error) {
	users, err := s.backend.ListUsers(ctx)
	if err != nil {
		return errorResult(ctx, "list_users", err)
	}
	return jsonResult(users)
}

func (s *Server) listSessions(ctx context.Context, req *mcp.CallToolRequest, params *listSessionsParams) (*mcp.CallToolResult, any, error) {
	userID, err := s.userID(params.UserID)
	if err != nil {
		return errorResult(ctx, "list_sessions", err)
	}
	sessions, err := s.backend.ListSessions(ctx, adapter.SessionFilter{UserID: userID})
	if err != nil {
		return errorResult(ctx, "list_sessions", err)
	}
	return jsonResult(sessions)
}

// versionsOf returns the requested version or every configured one
func (s *Server) versionsOf(label string) []model.PipelineVersion {
	if label != "" {
		return []model.PipelineVersion{model.PipelineVersion(label)}
	}
	return s.versions
}

func (s *Server) listMemories(ctx context.Context, req *mcp.CallToolRequest, params *listMemoriesParams) (*mcp.CallToolResult, any, error) {
	userID, err := s.userID(params.UserID)
	if err != nil {
		return errorResult(ctx, "list_memories", err)
	}

	result, err := view.LoadVersioned(ctx, s.versionsOf(params.PipelineVersion), func(ctx context.Context, version model.PipelineVersion) ([]*model.Memory, error) {
		return s.backend.ListMemories(ctx, adapter.MemoryFilter{
			UserID:          userID,
			SessionID:       model.SessionID(params.SessionID),
			PipelineVersion: version,
		})
	})
	if err != nil {
		return errorResult(ctx, "list_memories", err)
	}
	return jsonResult(result.Items)
}

func (s *Server) listPersons(ctx context.Context, req *mcp.CallToolRequest, params *versionedParams) (*mcp.CallToolResult, any, error) {
	userID, err := s.userID(params.UserID)
	if err != nil {
		return errorResult(ctx, "list_persons", err)
	}

	result, err := view.LoadVersioned(ctx, s.versionsOf(params.PipelineVersion), func(ctx context.Context, version model.PipelineVersion) ([]*model.Person, error) {
		return s.backend.ListPersons(ctx, adapter.PersonFilter{UserID: userID, PipelineVersion: version})
	})
	if err != nil {
		return errorResult(ctx, "list_persons", err)
	}
	return jsonResult(result.Items)
}

func (s *Server) listChapters(ctx context.Context, req *mcp.CallToolRequest, params *versionedParams) (*mcp.CallToolResult, any, error) {
	userID, err := s.userID(params.UserID)
	if err != nil {
		return errorResult(ctx, "list_chapters", err)
	}

	result, err := view.LoadVersioned(ctx, s.versionsOf(params.PipelineVersion), func(ctx context.Context, version model.PipelineVersion) ([]*model.Chapter, error) {
		return s.backend.ListChapters(ctx, adapter.ChapterFilter{UserID: userID, PipelineVersion: version})
	})
	if err != nil {
		return errorResult(ctx, "list_chapters", err)
	}
	return jsonResult(result.Items)
}

func (s *Server) getChapter(ctx context.Context, req *mcp.CallToolRequest, params *getChapterParams) (*mcp.CallToolResult, any, error) {
	id := model.ChapterID(params.ChapterID)

	var out struct {
		Chapter  *model.Chapter  `json:"chapter"`
		Memories []*model.Memory `json:"memories"`
		Coverage *model.Coverage `json:"coverage"`
	}
	err := view.All(ctx,
		func(ctx context.Context) error {
			var err error
			out.Chapter, err = s.backend.GetChapter(ctx, id)
			return err
		},
		func(ctx context.Context) error {
			var err error
			out.Memories, err = s.backend.ListChapterMemories(ctx, id)
			return err
		},
		func(ctx context.Context) error {
			var err error
			out.Coverage, err = s.backend.GetChapterCoverage(ctx, id)
			return err
		},
	)
	if err != nil {
		return errorResult(ctx, "get_chapter", err)
	}
	return jsonResult(out)
}

func (s *Server) listPromptRuns(ctx context.Context, req *mcp.CallToolRequest, params *listPromptRunsParams) (*mcp.CallToolResult, any, error) {
	filter := adapter.PromptRunFilter{
		SessionID:  model.SessionID(params.SessionID),
		PromptName: params.PromptName,
		ParseOK:    params.ParseOK,
		Model:      params.Model,
	}
	// a session alone identifies the runs, otherwise scope by user
	if params.SessionID == 0 || params.UserID > 0 {
		userID, err := s.userID(params.UserID)
		if err != nil {
			return errorResult(ctx, "list_prompt_runs", err)
		}
		filter.UserID = userID
	}

	runs, err := s.backend.ListPromptRuns(ctx, filter)
	if err != nil {
		return errorResult(ctx, "list_prompt_runs", err)
	}
	return jsonResult(runs)
}

func (s *Server) getPromptRun(ctx context.Context, req *mcp.CallToolRequest, params *getPromptRunParams) (*mcp.CallToolResult, any, error) {
	run, err := s.backend.GetPromptRun(ctx, model.PromptRunID(params.PromptRunID))
	if err != nil {
		return errorResult(ctx, "get_prompt_run", err)
	}
	return jsonResult(run)
}

func (s *Server) listQuestions(ctx context.Context, req *mcp.CallToolRequest, params *listQuestionsParams) (*mcp.CallToolResult, any, error) {
	userID, err := s.userID(params.UserID)
	if err != nil {
		return errorResult(ctx, "list_questions", err)
	}

	status := model.QuestionStatus(params.Status)
	if status != "" {
		if err := status.Validate(); err != nil {
			return errorResult(ctx, "list_questions", err)
		}
	}

	questions, err := s.backend.ListQuestions(ctx, adapter.QuestionFilter{
		UserID:    userID,
		SessionID: model.SessionID(params.SessionID),
		Status:    status,
	})
	if err != nil {
		return errorResult(ctx, "list_questions", err)
	}
	return jsonResult(questions)
}
