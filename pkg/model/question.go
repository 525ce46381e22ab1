package model

import "github.com/m-mizutani/goerr/v2"

var (
	ErrInvalidQuestionStatus = goerr.New("invalid question status")
	ErrInvalidTransition     = goerr.New("question status transition is not allowed")
)

type QuestionStatus string

const (
	QuestionPending   QuestionStatus = "pending"
	QuestionAsked     QuestionStatus = "asked"
	QuestionDismissed QuestionStatus = "dismissed"
)

// Validate checks if the status is known
func (s QuestionStatus) Validate() error {
	switch s {
	case QuestionPending, QuestionAsked, QuestionDismissed:
		return nil
	default:
		return goerr.Wrap(ErrInvalidQuestionStatus, "unknown status", goerr.V("status", s))
	}
}

// CanTransitionTo reports whether the console may move a question from s to next.
// Only pending questions can be decided, and decisions are final.
func (s QuestionStatus) CanTransitionTo(next QuestionStatus) bool {
	return s == QuestionPending && (next == QuestionAsked || next == QuestionDismissed)
}

type Question struct {
	ID           QuestionID     `json:"id"`
	UserID       UserID         `json:"user_id"`
	SessionID    SessionID      `json:"session_id"`
	QuestionText string         `json:"question_text"`
	Reason       string         `json:"reason"`
	Confidence   float64        `json:"confidence"`
	TargetType   string         `json:"target_type"`
	TargetRef    *string        `json:"target_ref"`
	Status       QuestionStatus `json:"status"`
	CreatedAt    Timestamp      `json:"created_at"`
}
