package adapter

import (
	"context"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifebook/pkg/model"
)

func (x *BackendClient) ListPromptRuns(ctx context.Context, filter PromptRunFilter) ([]*model.PromptRun, error) {
	var runs []*model.PromptRun
	if err := x.do(ctx, http.MethodGet, "/api/prompt-runs", filter.Query(), nil, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func (x *BackendClient) GetPromptRun(ctx context.Context, id model.PromptRunID) (*model.PromptRun, error) {
	var run model.PromptRun
	if err := x.do(ctx, http.MethodGet, "/api/prompt-runs/"+id.String(), nil, nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (x *BackendClient) ListQuestions(ctx context.Context, filter QuestionFilter) ([]*model.Question, error) {
	var questions []*model.Question
	if err := x.do(ctx, http.MethodGet, "/api/questions", filter.Query(), nil, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (x *BackendClient) GetQuestion(ctx context.Context, id model.QuestionID) (*model.Question, error) {
	var question model.Question
	if err := x.do(ctx, http.MethodGet, "/api/questions/"+id.String(), nil, nil, &question); err != nil {
		return nil, err
	}
	return &question, nil
}

func (x *BackendClient) UpdateQuestionStatus(ctx context.Context, id model.QuestionID, status model.QuestionStatus) (*model.Question, error) {
	if err := status.Validate(); err != nil {
		return nil, goerr.Wrap(err, "refusing to send status update", goerr.V("question_id", id))
	}

	body := map[string]any{"status": status}

	var question model.Question
	if err := x.do(ctx, http.MethodPatch, "/api/questions/"+id.String()+"/status", nil, body, &question); err != nil {
		return nil, err
	}
	return &question, nil
}
