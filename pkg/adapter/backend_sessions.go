package adapter

import (
	"context"
	"net/http"

	"github.com/m-mizutani/lifebook/pkg/model"
)

func (x *BackendClient) ListSessions(ctx context.Context, filter SessionFilter) ([]*model.Session, error) {
	var sessions []*model.Session
	if err := x.do(ctx, http.MethodGet, "/api/sessions", filter.Query(), nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (x *BackendClient) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	var session model.Session
	if err := x.do(ctx, http.MethodGet, "/api/sessions/"+id.String(), nil, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CreateSession creates a session owned by userID. With a zero userID the
// backend assigns the session to its first user.
func (x *BackendClient) CreateSession(ctx context.Context, userID model.UserID) (*model.Session, error) {
	body := map[string]any{}
	if userID != 0 {
		body["user_id"] = userID
	}

	var session model.Session
	if err := x.do(ctx, http.MethodPost, "/api/sessions", nil, body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (x *BackendClient) ListMessages(ctx context.Context, sessionID model.SessionID) ([]*model.Message, error) {
	var messages []*model.Message
	path := "/api/sessions/" + sessionID.String() + "/messages"
	if err := x.do(ctx, http.MethodGet, path, nil, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// CreateMessage submits text to the session and waits for the backend to run
// the extraction and planning prompts on it.
func (x *BackendClient) CreateMessage(ctx context.Context, sessionID model.SessionID, text string, opts MessageOptions) (*model.ProcessResult, error) {
	body := map[string]any{"text": text}

	var result model.ProcessResult
	path := "/api/sessions/" + sessionID.String() + "/messages"
	if err := x.do(ctx, http.MethodPost, path, opts.Query(), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
