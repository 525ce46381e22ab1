package adapter

import (
	"net/url"
	"strconv"

	"github.com/m-mizutani/lifebook/pkg/model"
)

// Filters serialize only the values that are set. Zero IDs and empty strings
// are treated as absent and never produce a query key.

type SessionFilter struct {
	UserID model.UserID
}

func (x SessionFilter) Query() url.Values {
	q := url.Values{}
	setID(q, "user_id", int64(x.UserID))
	return q
}

type MemoryFilter struct {
	UserID          model.UserID
	SessionID       model.SessionID
	PipelineVersion model.PipelineVersion
}

func (x MemoryFilter) Query() url.Values {
	q := url.Values{}
	setID(q, "user_id", int64(x.UserID))
	setID(q, "session_id", int64(x.SessionID))
	setString(q, "pipeline_version", string(x.PipelineVersion))
	return q
}

type PersonFilter struct {
	UserID          model.UserID
	PipelineVersion model.PipelineVersion
}

func (x PersonFilter) Query() url.Values {
	q := url.Values{}
	setID(q, "user_id", int64(x.UserID))
	setString(q, "pipeline_version", string(x.PipelineVersion))
	return q
}

type ChapterFilter struct {
	UserID          model.UserID
	PipelineVersion model.PipelineVersion
}

func (x ChapterFilter) Query() url.Values {
	q := url.Values{}
	setID(q, "user_id", int64(x.UserID))
	setString(q, "pipeline_version", string(x.PipelineVersion))
	return q
}

type PromptRunFilter struct {
	UserID     model.UserID
	SessionID  model.SessionID
	PromptName string
	// ParseOK is tri-state: nil means no filter
	ParseOK *bool
	Model   string
}

func (x PromptRunFilter) Query() url.Values {
	q := url.Values{}
	setID(q, "session_id", int64(x.SessionID))
	setString(q, "prompt_name", x.PromptName)
	if x.ParseOK != nil {
		q.Set("parse_ok", strconv.FormatBool(*x.ParseOK))
	}
	setString(q, "model", x.Model)
	setID(q, "user_id", int64(x.UserID))
	return q
}

type QuestionFilter struct {
	UserID    model.UserID
	SessionID model.SessionID
	Status    model.QuestionStatus
}

func (x QuestionFilter) Query() url.Values {
	q := url.Values{}
	setID(q, "user_id", int64(x.UserID))
	setID(q, "session_id", int64(x.SessionID))
	setString(q, "status", string(x.Status))
	return q
}

// MessageOptions selects the prompt versions used to process a message.
// Empty values fall back to the latest known versions.
type MessageOptions struct {
	ExtractorVersion string
	PlannerVersion   string
}

func (x MessageOptions) Query() url.Values {
	q := url.Values{}
	extractor, planner := x.ExtractorVersion, x.PlannerVersion
	if extractor == "" {
		extractor = model.LatestExtractorVersion
	}
	if planner == "" {
		planner = model.LatestPlannerVersion
	}
	q.Set("extractor_version", extractor)
	q.Set("planner_version", planner)
	return q
}

func setID(q url.Values, key string, id int64) {
	if id != 0 {
		q.Set(key, strconv.FormatInt(id, 10))
	}
}

func setString(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

// Bool returns a pointer to b, for tri-state filters
func Bool(b bool) *bool {
	return &b
}
