package model

import "encoding/json"

// PromptRun is the log record of one backend language-model invocation.
type PromptRun struct {
	ID            PromptRunID     `json:"id"`
	SessionID     SessionID       `json:"session_id"`
	MessageID     *MessageID      `json:"message_id"`
	PromptName    string          `json:"prompt_name"`
	PromptVersion string          `json:"prompt_version"`
	Model         string          `json:"model"`
	InputJSON     json.RawMessage `json:"input_json"`
	OutputText    *string         `json:"output_text"`
	OutputJSON    json.RawMessage `json:"output_json"`
	ParseOK       bool            `json:"parse_ok"`
	ErrorText     *string         `json:"error_text"`
	TokenIn       *int            `json:"token_in"`
	TokenOut      *int            `json:"token_out"`
	LatencyMS     *int            `json:"latency_ms"`
	CreatedAt     Timestamp       `json:"created_at"`
}

// Prompt input keys under which the backend records the rendered prompt.
// Runs logged before the backend started recording them have neither.
const (
	inputKeySystemPrompt = "system_prompt"
	inputKeyPromptText   = "prompt_text"
)

// SystemPrompt returns the recorded system prompt and whether one was recorded.
func (x *PromptRun) SystemPrompt() (string, bool) {
	return x.inputString(inputKeySystemPrompt)
}

// PromptText returns the full rendered prompt text when recorded.
func (x *PromptRun) PromptText() (string, bool) {
	return x.inputString(inputKeyPromptText)
}

func (x *PromptRun) inputString(key string) (string, bool) {
	if len(x.InputJSON) == 0 {
		return "", false
	}
	var input map[string]any
	if err := json.Unmarshal(x.InputJSON, &input); err != nil {
		return "", false
	}
	v, ok := input[key].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// BelongsTo reports whether the run was triggered by the given message.
func (x *PromptRun) BelongsTo(id MessageID) bool {
	return x.MessageID != nil && *x.MessageID == id
}
