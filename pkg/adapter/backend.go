package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifebook/pkg/model"
	"github.com/m-mizutani/lifebook/pkg/utils/logging"
)

// DefaultBackendURL is used when no API URL is configured
const DefaultBackendURL = "http://localhost:8000"

// Backend is the interface of the LifeBook backend HTTP API
type Backend interface {
	ListUsers(ctx context.Context) ([]*model.User, error)
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	CreateUser(ctx context.Context, name string) (*model.User, error)
	DeleteUser(ctx context.Context, id model.UserID) error

	ListSessions(ctx context.Context, filter SessionFilter) ([]*model.Session, error)
	GetSession(ctx context.Context, id model.SessionID) (*model.Session, error)
	CreateSession(ctx context.Context, userID model.UserID) (*model.Session, error)
	ListMessages(ctx context.Context, sessionID model.SessionID) ([]*model.Message, error)
	CreateMessage(ctx context.Context, sessionID model.SessionID, text string, opts MessageOptions) (*model.ProcessResult, error)

	ListMemories(ctx context.Context, filter MemoryFilter) ([]*model.Memory, error)
	GetMemory(ctx context.Context, id model.MemoryID) (*model.Memory, error)

	ListPersons(ctx context.Context, filter PersonFilter) ([]*model.Person, error)
	GetPerson(ctx context.Context, id model.PersonID) (*model.Person, error)
	ListPersonMemories(ctx context.Context, id model.PersonID) ([]*model.Memory, error)
	MergePersons(ctx context.Context, source, target model.PersonID) (*model.MergeResult, error)

	ListChapters(ctx context.Context, filter ChapterFilter) ([]*model.Chapter, error)
	GetChapter(ctx context.Context, id model.ChapterID) (*model.Chapter, error)
	ListChapterMemories(ctx context.Context, id model.ChapterID) ([]*model.Memory, error)
	GetChapterCoverage(ctx context.Context, id model.ChapterID) (*model.Coverage, error)

	ListPromptRuns(ctx context.Context, filter PromptRunFilter) ([]*model.PromptRun, error)
	GetPromptRun(ctx context.Context, id model.PromptRunID) (*model.PromptRun, error)

	ListQuestions(ctx context.Context, filter QuestionFilter) ([]*model.Question, error)
	GetQuestion(ctx context.Context, id model.QuestionID) (*model.Question, error)
	UpdateQuestionStatus(ctx context.Context, id model.QuestionID, status model.QuestionStatus) (*model.Question, error)
}

// APIError is returned for any non-2xx response from the backend
type APIError struct {
	StatusCode int
	Status     string
	// Detail is the backend's "detail" field, if the error body carried one
	Detail string
}

func (x *APIError) Error() string {
	return "API error: " + x.Status
}

// Message returns the text shown to the operator: the backend detail when
// present, the generic status message otherwise.
func (x *APIError) Message() string {
	if x.Detail != "" {
		return x.Error() + ": " + x.Detail
	}
	return x.Error()
}

// AsAPIError extracts an APIError from a wrapped error chain
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// BackendClient implements Backend over HTTP
type BackendClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ Backend = (*BackendClient)(nil)

// BackendOption is a functional option for BackendClient
type BackendOption func(*BackendClient)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) BackendOption {
	return func(x *BackendClient) {
		x.httpClient = c
	}
}

// NewBackend creates a new backend client. The default HTTP client has no
// timeout; cancellation is controlled by the caller's context.
func NewBackend(baseURL string, opts ...BackendOption) (*BackendClient, error) {
	if baseURL == "" {
		baseURL = DefaultBackendURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, goerr.Wrap(err, "invalid backend URL", goerr.V("url", baseURL))
	}

	client := &BackendClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// BaseURL returns the configured backend base URL
func (x *BackendClient) BaseURL() string {
	return x.baseURL
}

// do issues one request. The body, if any, is sent as JSON and a 2xx
// response body is decoded into out when out is not nil.
func (x *BackendClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := x.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return goerr.Wrap(err, "failed to marshal request body", goerr.V("path", path))
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return goerr.Wrap(err, "failed to create request", goerr.V("path", path))
	}

	requestID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	logger := logging.From(ctx)
	logger.Debug("backend request", "method", method, "url", endpoint, "request_id", requestID)

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "failed to send request",
			goerr.V("method", method),
			goerr.V("url", endpoint))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Status:     statusText(resp),
			Detail:     readDetail(resp.Body),
		}
		return goerr.Wrap(apiErr, "backend returned error",
			goerr.V("method", method),
			goerr.V("url", endpoint),
			goerr.V("status", resp.StatusCode),
			goerr.V("request_id", requestID))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return goerr.Wrap(err, "failed to decode response",
			goerr.V("method", method),
			goerr.V("url", endpoint))
	}

	return nil
}

// statusText strips the numeric code from resp.Status ("404 Not Found")
func statusText(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	if text := strings.TrimSpace(strings.TrimPrefix(resp.Status, code)); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// readDetail extracts FastAPI style {"detail": "..."} error bodies. Validation
// errors carry a list in detail and are not surfaced.
func readDetail(r io.Reader) string {
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 64*1024)).Decode(&body); err != nil {
		return ""
	}
	if s, ok := body.Detail.(string); ok {
		return s
	}
	return ""
}
