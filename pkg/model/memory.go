package model

import "strings"

// Memory is a discrete fact or event extracted from a message by the backend pipeline.
type Memory struct {
	ID              MemoryID        `json:"id"`
	UserID          UserID          `json:"user_id"`
	SessionID       SessionID       `json:"session_id"`
	SourceMessageID MessageID       `json:"source_message_id"`
	Summary         string          `json:"summary"`
	Narrative       string          `json:"narrative"`
	TimeText        *string         `json:"time_text"`
	LocationText    *string         `json:"location_text"`
	Topics          []string        `json:"topics"`
	ImportanceScore float64         `json:"importance_score"`
	CreatedAt       Timestamp       `json:"created_at"`
	PipelineVersion PipelineVersion `json:"pipeline_version,omitempty"`
}

// TopicList joins topics for display, "None" when there are none.
func (x *Memory) TopicList() string {
	if len(x.Topics) == 0 {
		return "None"
	}
	return strings.Join(x.Topics, ", ")
}

type Person struct {
	ID                PersonID        `json:"id"`
	UserID            UserID          `json:"user_id"`
	DisplayName       string          `json:"display_name"`
	Type              string          `json:"type"`
	FirstSeenMemoryID *MemoryID       `json:"first_seen_memory_id"`
	Notes             *string         `json:"notes"`
	PipelineVersion   PipelineVersion `json:"pipeline_version,omitempty"`
}

// MergeResult is the backend acknowledgement of a person merge.
type MergeResult struct {
	Message string `json:"message"`
}

type Chapter struct {
	ID              ChapterID       `json:"id"`
	UserID          UserID          `json:"user_id"`
	Title           string          `json:"title"`
	OrderIndex      int             `json:"order_index"`
	PeriodText      *string         `json:"period_text"`
	Status          string          `json:"status"`
	PipelineVersion PipelineVersion `json:"pipeline_version,omitempty"`
}

// Coverage is the share of a user's memories attributed to one chapter.
type Coverage struct {
	ChapterID       ChapterID `json:"chapter_id"`
	TotalMemories   int       `json:"total_memories"`
	ChapterMemories int       `json:"chapter_memories"`
	CoveragePercent float64   `json:"coverage_percent"`
}

// Deref returns the pointed string or fallback when nil or empty.
func Deref(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
