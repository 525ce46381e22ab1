package model

// User is the root of all user-scoped records.
type User struct {
	ID        UserID    `json:"id"`
	Name      string    `json:"name"`
	Locale    string    `json:"locale"`
	CreatedAt Timestamp `json:"created_at"`
}

type Session struct {
	ID        SessionID `json:"id"`
	UserID    UserID    `json:"user_id"`
	CreatedAt Timestamp `json:"created_at"`
}

type Message struct {
	ID          MessageID `json:"id"`
	SessionID   SessionID `json:"session_id"`
	Role        string    `json:"role"`
	ContentText string    `json:"content_text"`
	CreatedAt   Timestamp `json:"created_at"`
}

// ProcessResult is returned by the backend after a submitted message went
// through the extraction and planning prompts.
type ProcessResult struct {
	MessageID       MessageID    `json:"message_id"`
	ExtractorRunID  *PromptRunID `json:"extractor_run_id,omitempty"`
	PlannerRunID    *PromptRunID `json:"planner_run_id,omitempty"`
	MemoriesCreated int          `json:"memories_created"`
	PersonsCreated  int          `json:"persons_created"`
	ChaptersCreated int          `json:"chapters_created"`
}
