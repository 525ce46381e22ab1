// Package mcp exposes the console's read operations as MCP tools so an agent
// can inspect a pipeline run.
package mcp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifebook/pkg/adapter"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/usecase/page"
	"github.com/m-mizutani/lifebook/pkg/usecase/selection"
	"github.com/m-mizutani/lifebook/pkg/utils/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server serves the LifeBook tools
type Server struct {
	backend  adapter.Backend
	store    *selection.Store
	versions []model.PipelineVersion
	server   *mcp.Server
}

// Option is a functional option for Server
type Option func(*Server)

// WithVersions sets the pipeline versions returned when a tool call names none
func WithVersions(versions []model.PipelineVersion) Option {
	return func(s *Server) {
		if len(versions) > 0 {
			s.versions = versions
		}
	}
}

// NewServer creates a server. Tools without an explicit user_id use the
// user selected in store.
func NewServer(backend adapter.Backend, store *selection.Store, version string, opts ...Option) *Server {
	s := &Server{
		backend:  backend,
		store:    store,
		versions: model.PipelineVersions,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "lifebook",
			Version: version,
		}, nil),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerTools()
	return s
}

// Run serves on transport until the client disconnects or ctx is done
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	if err := s.server.Run(ctx, transport); err != nil {
		return goerr.Wrap(err, "mcp server stopped")
	}
	return nil
}

// Connect starts a session on transport without blocking
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	session, err := s.server.Connect(ctx, transport, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect mcp session")
	}
	return session, nil
}

// HTTPHandler serves the tools over streamable HTTP
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// userID returns id when given, the selected user otherwise
func (s *Server) userID(id int64) (model.UserID, error) {
	if id > 0 {
		return model.UserID(id), nil
	}
	if cur, ok := s.store.Get(); ok {
		return cur, nil
	}
	return 0, goerr.Wrap(page.ErrNoUserSelected, "user_id is required when no user is selected")
}

// jsonResult encodes v as the text content of a tool result
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to marshal tool result")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(raw)},
		},
	}, nil, nil
}

// errorResult reports a failed call to the agent as a tool error
func errorResult(ctx context.Context, tool string, err error) (*mcp.CallToolResult, any, error) {
	logging.From(ctx).Warn("mcp tool failed", "tool", tool, "error", err)

	msg := err.Error()
	if apiErr, ok := adapter.AsAPIError(err); ok {
		msg = apiErr.Message()
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}, nil, nil
}
