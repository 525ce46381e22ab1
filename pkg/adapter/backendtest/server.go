// Package backendtest provides an in-memory LifeBook backend served over
// httptest for exercising the console against real HTTP traffic.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/lifebook/pkg/model"
)

// Request is a recorded incoming request
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   map[string]any
}

// Failure forces a response status for a route pattern such as "GET /api/memories"
type Failure struct {
	Status int
	Detail string
}

// Server is a fake backend. Fields may be populated before use; after the
// server started, mutate them only through the provided methods.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	requests   []Request
	failures   map[string]Failure
	hooks      map[string]func(r *http.Request)
	nextID     int64
	Users      []*model.User
	Sessions   []*model.Session
	Messages   []*model.Message
	Memories   []*model.Memory
	Persons    []*model.Person
	Chapters   []*model.Chapter
	Coverage   map[model.ChapterID]*model.Coverage
	Links      map[model.ChapterID][]model.MemoryID
	PersonLink map[model.PersonID][]model.MemoryID
	PromptRuns []*model.PromptRun
	Questions  []*model.Question
}

// New starts a fake backend closed with the test
func New(t testing.TB) *Server {
	s := &Server{
		failures:   map[string]Failure{},
		hooks:      map[string]func(r *http.Request){},
		nextID:     1000,
		Coverage:   map[model.ChapterID]*model.Coverage{},
		Links:      map[model.ChapterID][]model.MemoryID{},
		PersonLink: map[model.PersonID][]model.MemoryID{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/users", s.listUsers)
	mux.HandleFunc("POST /api/users", s.createUser)
	mux.HandleFunc("GET /api/users/{id}", s.getUser)
	mux.HandleFunc("DELETE /api/users/{id}", s.deleteUser)
	mux.HandleFunc("GET /api/sessions", s.listSessions)
	mux.HandleFunc("POST /api/sessions", s.createSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.getSession)
	mux.HandleFunc("GET /api/sessions/{id}/messages", s.listMessages)
	mux.HandleFunc("POST /api/sessions/{id}/messages", s.createMessage)
	mux.HandleFunc("GET /api/memories", s.listMemories)
	mux.HandleFunc("GET /api/memories/{id}", s.getMemory)
	mux.HandleFunc("GET /api/persons", s.listPersons)
	mux.HandleFunc("GET /api/persons/{id}", s.getPerson)
	mux.HandleFunc("GET /api/persons/{id}/memories", s.personMemories)
	mux.HandleFunc("POST /api/persons/{id}/merge", s.mergePersons)
	mux.HandleFunc("GET /api/chapters", s.listChapters)
	mux.HandleFunc("GET /api/chapters/{id}", s.getChapter)
	mux.HandleFunc("GET /api/chapters/{id}/memories", s.chapterMemories)
	mux.HandleFunc("GET /api/chapters/{id}/coverage", s.chapterCoverage)
	mux.HandleFunc("GET /api/prompt-runs", s.listPromptRuns)
	mux.HandleFunc("GET /api/prompt-runs/{id}", s.getPromptRun)
	mux.HandleFunc("GET /api/questions", s.listQuestions)
	mux.HandleFunc("GET /api/questions/{id}", s.getQuestion)
	mux.HandleFunc("PATCH /api/questions/{id}/status", s.updateQuestionStatus)

	s.Server = httptest.NewServer(s.intercept(mux))
	t.Cleanup(s.Close)
	return s
}

// Fail makes every request matching "METHOD /path" answer with the failure
// until Recover is called for the same route.
func (s *Server) Fail(route string, f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = f
}

// Recover removes a forced failure
func (s *Server) Recover(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, route)
}

// Hook runs fn before a request matching "METHOD /path" is served. It runs
// outside the server lock, so it may block to delay the response.
func (s *Server) Hook(route string, fn func(r *http.Request)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[route] = fn
}

// Requests returns a copy of all recorded requests
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsTo returns recorded requests for "METHOD /path"
func (s *Server) RequestsTo(route string) []Request {
	var matched []Request
	for _, r := range s.Requests() {
		if r.Method+" "+r.Path == route {
			matched = append(matched, r)
		}
	}
	return matched
}

// Reset clears the recorded requests
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// Lock exposes the data lock for tests mutating records while the server runs
func (s *Server) Lock()   { s.mu.Lock() }
func (s *Server) Unlock() { s.mu.Unlock() }

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path

		var body map[string]any
		if r.Body != nil && r.ContentLength != 0 {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Body:   body,
		})
		failure, failed := s.failures[route]
		hook := s.hooks[route]
		s.mu.Unlock()

		if hook != nil {
			hook(r)
		}

		if failed {
			writeJSON(w, failure.Status, map[string]any{"detail": failure.Detail})
			return
		}

		r = r.WithContext(withBody(r.Context(), body))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) newID() int64 {
	s.nextID++
	return s.nextID
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter, what string) {
	writeJSON(w, http.StatusNotFound, map[string]any{"detail": what + " not found"})
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id
}

func queryID(r *http.Request, key string) int64 {
	id, _ := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	return id
}

func now() model.Timestamp {
	return model.Timestamp{Time: time.Now().UTC()}
}
