// Package kvwebtest provides an in-process fake of the cavity detection web
// service for tests.
package kvwebtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"kvclient/internal/core/domain"
)

// Response is one scripted answer of the fake service.
type Response struct {
	Code   int
	Result *domain.Result // encoded with the ID of the requested job
	Body   string         // sent verbatim when Result is nil
}

// Pending answers with a job in the given (not completed) status.
func Pending(status string) Response {
	return Response{Code: http.StatusOK, Result: &domain.Result{Status: status}}
}

// Completed answers with a completed job carrying out.
func Completed(out domain.Output) Response {
	return Response{Code: http.StatusOK, Result: &domain.Result{
		Status:    domain.StatusCompleted,
		Output:    &out,
		CreatedAt: "2024-01-01T00:00:00Z",
	}}
}

// Error answers with a plain text error.
func Error(code int, body string) Response {
	return Response{Code: code, Body: body}
}

// Server is the fake service. The create endpoint assigns sequential ids
// ("job-1", "job-2", ...). Every poll of a job consumes the next scripted
// response; the last one repeats.
type Server struct {
	URL string

	srv    *httptest.Server
	mu     sync.Mutex
	create *Response
	script []Response
	polls  map[string]int
	inputs []domain.Input
	nextID int
}

type Option func(*Server)

// WithCreateResponse replaces the default create answer.
func WithCreateResponse(r Response) Option {
	return func(s *Server) {
		s.create = &r
	}
}

// WithScript sets the answers of the job endpoint.
func WithScript(responses ...Response) Option {
	return func(s *Server) {
		s.script = responses
	}
}

// New starts the fake service, mounted under prefix (may be empty). It is
// closed when the test finishes.
func New(t testing.TB, prefix string, opts ...Option) *Server {
	t.Helper()
	s := &Server{
		polls: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	routes := func(r chi.Router) {
		r.Post("/create", s.handleCreate)
		r.Get("/{id}", s.handleJob)
	}
	if prefix == "" {
		routes(r)
	} else {
		r.Route(prefix, routes)
	}

	s.srv = httptest.NewServer(r)
	s.URL = s.srv.URL
	t.Cleanup(s.srv.Close)
	return s
}

// Polls returns how many times the job with id was fetched.
func (s *Server) Polls(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls[id]
}

// Inputs returns the bodies received by the create endpoint.
func (s *Server) Inputs() []domain.Input {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Input(nil), s.inputs...)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in domain.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.inputs = append(s.inputs, in)
	s.nextID++
	id := fmt.Sprintf("job-%d", s.nextID)
	s.polls[id] = 0
	create := s.create
	s.mu.Unlock()

	if create != nil {
		s.write(w, id, *create)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	n, ok := s.polls[id]
	if !ok {
		s.mu.Unlock()
		http.NotFound(w, r)
		return
	}
	s.polls[id] = n + 1
	resp := Pending(domain.StatusQueued)
	if len(s.script) > 0 {
		resp = s.script[min(n, len(s.script)-1)]
	}
	s.mu.Unlock()

	s.write(w, id, resp)
}

func (s *Server) write(w http.ResponseWriter, id string, resp Response) {
	if resp.Result == nil {
		w.WriteHeader(resp.Code)
		_, _ = w.Write([]byte(resp.Body))
		return
	}
	result := *resp.Result
	result.ID = id
	writeJSON(w, resp.Code, result)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
