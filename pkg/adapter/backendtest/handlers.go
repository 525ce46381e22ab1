package backendtest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/m-mizutani/lifebook/pkg/model"
)

type bodyKey struct{}

func withBody(ctx context.Context, body map[string]any) context.Context {
	return context.WithValue(ctx, bodyKey{}, body)
}

func bodyOf(r *http.Request) map[string]any {
	body, _ := r.Context().Value(bodyKey{}).(map[string]any)
	return body
}

func bodyInt(body map[string]any, key string) int64 {
	switch v := body[key].(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}

func bodyString(body map[string]any, key string) string {
	s, _ := body[key].(string)
	return s
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, nonNil(s.Users))
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := bodyString(bodyOf(r), "name")
	if name == "" {
		name = "User " + strconv.Itoa(len(s.Users)+1)
	}
	user := &model.User{ID: model.UserID(s.newID()), Name: name, Locale: "en", CreatedAt: now()}
	s.Users = append(s.Users, user)
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.Users {
		if int64(u.ID) == pathID(r) {
			writeJSON(w, http.StatusOK, u)
			return
		}
	}
	notFound(w, "User")
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, u := range s.Users {
		if int64(u.ID) == pathID(r) {
			s.Users = append(s.Users[:i], s.Users[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{"message": "User " + u.ID.String() + " deleted"})
			return
		}
	}
	notFound(w, "User")
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID := queryID(r, "user_id")
	var out []*model.Session
	for _, x := range s.Sessions {
		if userID == 0 || int64(x.UserID) == userID {
			out = append(out, x)
		}
	}
	writeJSON(w, http.StatusOK, nonNil(out))
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID := bodyInt(bodyOf(r), "user_id")
	if userID == 0 && len(s.Users) > 0 {
		userID = int64(s.Users[0].ID)
	}
	session := &model.Session{ID: model.SessionID(s.newID()), UserID: model.UserID(userID), CreatedAt: now()}
	s.Sessions = append(s.Sessions, session)
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.Sessions {
		if int64(x.ID) == pathID(r) {
			writeJSON(w, http.StatusOK, x)
			return
		}
	}
	notFound(w, "Session")
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Message
	for _, x := range s.Messages {
		if int64(x.SessionID) == pathID(r) {
			out = append(out, x)
		}
	}
	writeJSON(w, http.StatusOK, nonNil(out))
}

// createMessage records the user message and one extractor and planner run
// for it, the way the real pipeline logs its prompts.
func (s *Server) createMessage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessionID := model.SessionID(pathID(r))
	found := false
	for _, x := range s.Sessions {
		if x.ID == sessionID {
			found = true
		}
	}
	if !found {
		notFound(w, "Session")
		return
	}

	msg := &model.Message{
		ID:          model.MessageID(s.newID()),
		SessionID:   sessionID,
		Role:        "user",
		ContentText: bodyString(bodyOf(r), "text"),
		CreatedAt:   now(),
	}
	s.Messages = append(s.Messages, msg)

	result := &model.ProcessResult{MessageID: msg.ID}
	for _, prompt := range []struct{ name, version string }{
		{"extractor", r.URL.Query().Get("extractor_version")},
		{"planner", r.URL.Query().Get("planner_version")},
	} {
		msgID := msg.ID
		run := &model.PromptRun{
			ID:            model.PromptRunID(s.newID()),
			SessionID:     sessionID,
			MessageID:     &msgID,
			PromptName:    prompt.name,
			PromptVersion: prompt.version,
			Model:         "gpt-4o-mini",
			InputJSON:     json.RawMessage(`{"message_text":` + strconv.Quote(msg.ContentText) + `}`),
			OutputJSON:    json.RawMessage(`{}`),
			ParseOK:       true,
			CreatedAt:     now(),
		}
		s.PromptRuns = append(s.PromptRuns, run)
		runID := run.ID
		if prompt.name == "extractor" {
			result.ExtractorRunID = &runID
		} else {
			result.PlannerRunID = &runID
		}
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) listMemories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, sessionID := queryID(r, "user_id"), queryID(r, "session_id")
	version := r.URL.Query().Get("pipeline_version")
	var out []*model.Memory
	for _, x := range s.Memories {
		if userID != 0 && int64(x.UserID) != userID {
			continue
		}
		if sessionID != 0 && int64(x.SessionID) != sessionID {
			continue
		}
		if version != "" && string(x.PipelineVersion) != version {
			continue
		}
		out = append(out, x)
	}
	writeJSON(w, http.StatusOK, nonNil(out))
}

func (s *Server) getMemory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m := s.memory(model.MemoryID(pathID(r))); m != nil {
		writeJSON(w, http.StatusOK, m)
		return
	}
	notFound(w, "Memory")
}

func (s *Server) memory(id model.MemoryID) *model.Memory {
	for _, m := range s.Memories {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (s *Server) memories(ids []model.MemoryID) []*model.Memory {
	out := []*model.Memory{}
	for _, id := range ids {
		if m := s.memory(id); m != nil {
			out = append(out, m)
		}
	}
	return out
}

func (s *Server) listPersons(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID := queryID(r, "user_id")
	if userID == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []any{"user_id required"}})
		return
	}
	version := r.URL.Query().Get("pipeline_version")
	var out []*model.Person
	for _, x := range s.Persons {
		if int64(x.UserID) != userID {
			continue
		}
		if version != "" && string(x.PipelineVersion) != version {
			continue
		}
		out = append(out, x)
	}
	writeJSON(w, http.StatusOK, nonNil(out))
}

func (s *Server) getPerson(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.Persons {
		if int64(x.ID) == pathID(r) {
			writeJSON(w, http.StatusOK, x)
			return
		}
	}
	notFound(w, "Person")
}

func (s *Server) personMemories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.memories(s.PersonLink[model.PersonID(pathID(r))]))
}

func (s *Server) mergePersons(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	source := model.PersonID(pathID(r))
	target := model.PersonID(bodyInt(bodyOf(r), "target_person_id"))

	srcIdx, hasTarget := -1, false
	for i, p := range s.Persons {
		if p.ID == source {
			srcIdx = i
		}
		if p.ID == target {
			hasTarget = true
		}
	}
	if srcIdx < 0 || !hasTarget {
		notFound(w, "Person")
		return
	}

	seen := map[model.MemoryID]bool{}
	for _, id := range s.PersonLink[target] {
		seen[id] = true
	}
	for _, id := range s.PersonLink[source] {
		if !seen[id] {
			s.PersonLink[target] = append(s.PersonLink[target], id)
		}
	}
	delete(s.PersonLink, source)
	s.Persons = append(s.Persons[:srcIdx], s.Persons[srcIdx+1:]...)

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Person " + source.String() + " merged into " + target.String(),
	})
}

func (s *Server) listChapters(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID := queryID(r, "user_id")
	if userID == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []any{"user_id required"}})
		return
	}
	version := r.URL.Query().Get("pipeline_version")
	var out []*model.Chapter
	for _, x := range s.Chapters {
		if int64(x.UserID) != userID {
			continue
		}
		if version != "" && string(x.PipelineVersion) != version {
			continue
		}
		out = append(out, x)
	}
	writeJSON(w, http.StatusOK, nonNil(out))
}

func (s *Server) getChapter(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.Chapters {
		if int64(x.ID) == pathID(r) {
			writeJSON(w, http.StatusOK, x)
			return
		}
	}
	notFound(w, "Chapter")
}

func (s *Server) chapterMemories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.memories(s.Links[model.ChapterID(pathID(r))]))
}

func (s *Server) chapterCoverage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.Coverage[model.ChapterID(pathID(r))]; ok {
		writeJSON(w, http.StatusOK, c)
		return
	}
	notFound(w, "Chapter")
}

func (s *Server) listPromptRuns(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := r.URL.Query()
	sessionID, userID := queryID(r, "session_id"), queryID(r, "user_id")

	sessionsOfUser := map[model.SessionID]bool{}
	for _, x := range s.Sessions {
		if int64(x.UserID) == userID {
			sessionsOfUser[x.ID] = true
		}
	}

	var out []*model.PromptRun
	for _, x := range s.PromptRuns {
		if sessionID != 0 && int64(x.SessionID) != sessionID {
			continue
		}
		if userID != 0 && !sessionsOfUser[x.SessionID] {
			continue
		}
		if v := q.Get("prompt_name"); v != "" && x.PromptName != v {
			continue
		}
		if v := q.Get("parse_ok"); v != "" && strconv.FormatBool(x.ParseOK) != v {
			continue
		}
		if v := q.Get("model"); v != "" && x.Model != v {
			continue
		}
		out = append(out, x)
	}
	writeJSON(w, http.StatusOK, nonNil(out))
}

func (s *Server) getPromptRun(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.PromptRuns {
		if int64(x.ID) == pathID(r) {
			writeJSON(w, http.StatusOK, x)
			return
		}
	}
	notFound(w, "Prompt run")
}

func (s *Server) listQuestions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, sessionID := queryID(r, "user_id"), queryID(r, "session_id")
	status := r.URL.Query().Get("status")
	var out []*model.Question
	for _, x := range s.Questions {
		if userID != 0 && int64(x.UserID) != userID {
			continue
		}
		if sessionID != 0 && int64(x.SessionID) != sessionID {
			continue
		}
		if status != "" && string(x.Status) != status {
			continue
		}
		out = append(out, x)
	}
	writeJSON(w, http.StatusOK, nonNil(out))
}

func (s *Server) getQuestion(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.Questions {
		if int64(x.ID) == pathID(r) {
			writeJSON(w, http.StatusOK, x)
			return
		}
	}
	notFound(w, "Question")
}

func (s *Server) updateQuestionStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := model.QuestionStatus(bodyString(bodyOf(r), "status"))
	if status.Validate() != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Invalid status"})
		return
	}
	for _, x := range s.Questions {
		if int64(x.ID) == pathID(r) {
			x.Status = status
			writeJSON(w, http.StatusOK, x)
			return
		}
	}
	notFound(w, "Question")
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
