// Package portaltest provides an in-process fake of the portal HTTP API for
// tests.
//
// Usage:
//
//	func TestSomething(t *testing.T) {
//	    srv := portaltest.New(t)
//	    srv.SetStatuses("job-1", portal.Status{Completed: true, Succeeded: true})
//	    client, _ := portal.New(portal.Config{BaseURL: srv.BaseURL()})
//	    // ...
//	}
package portaltest

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/3leaps/vepclient/pkg/portal"
)

// BasePath is the API root under which the fake mounts its routes.
const BasePath = "/lunaris/predictor"

// Upload is one recorded POST /upload.
type Upload struct {
	Filter   string
	Format   string
	Session  string
	Genome   string
	Email    string
	FileName string
	Content  string
	JobID    string
}

// Failure scripts the response for uploads of one file name.
type Failure struct {
	// StatusCode is the HTTP status to answer with. Zero drops the
	// connection without a response, simulating a network error.
	StatusCode int
}

// Server is a scriptable fake portal. All methods are safe for concurrent use.
type Server struct {
	srv *httptest.Server

	mu          sync.Mutex
	sessions    map[string]portal.SessionResponse
	statuses    map[string][]portal.Status
	statusCalls map[string]int
	uploads     []Upload
	failures    map[string]Failure
	schema      *portal.Schema
	schemaCode  int
	maskNames   []string
	masks       map[string]string
	results     map[string]string
	nextJob     int
	requests    map[string]int
}

// New starts a fake portal and stops it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		sessions:    make(map[string]portal.SessionResponse),
		statuses:    make(map[string][]portal.Status),
		statusCalls: make(map[string]int),
		failures:    make(map[string]Failure),
		masks:       make(map[string]string),
		results:     make(map[string]string),
		requests:    make(map[string]int),
	}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.srv.Close)
	return s
}

// BaseURL is the API root to hand to portal.Config.
func (s *Server) BaseURL() string {
	return s.srv.URL + BasePath
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Route(BasePath, func(r chi.Router) {
		r.Use(s.countRequests)
		r.Get("/session/{id}", s.handleSession)
		r.Get("/schema", s.handleSchema)
		r.Get("/masks/list", s.handleMaskList)
		r.Get("/masks/{name}", s.handleMask)
		r.Post("/upload", s.handleUpload)
		r.Get("/status/{id}", s.handleStatus)
		r.Get("/results/{file}", s.handleResult)
	})
	return r
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + strings.TrimPrefix(r.URL.Path, BasePath)
		s.mu.Lock()
		s.requests[key]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// Requests returns how many times "METHOD /path" was called, e.g.
// Requests("GET /status/job-1").
func (s *Server) Requests(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[key]
}

// TotalRequests returns the number of API calls received.
func (s *Server) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.requests {
		n += c
	}
	return n
}

// SetSession scripts GET /session/{id}. Unscripted ids answer found:false.
func (s *Server) SetSession(id string, resp portal.SessionResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = resp
}

// SetStatuses scripts successive GET /status/{id} responses. The last one
// repeats once the script is exhausted.
func (s *Server) SetStatuses(id string, statuses ...portal.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = append([]portal.Status(nil), statuses...)
}

// StatusCalls returns how many status requests were made for id.
func (s *Server) StatusCalls(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusCalls[id]
}

// FailUploads scripts a failure for uploads whose file name is fileName.
func (s *Server) FailUploads(fileName string, f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[fileName] = f
}

// Uploads returns the successful uploads in arrival order.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

// SetSchema scripts GET /schema. A non-zero code answers with that status.
func (s *Server) SetSchema(schema portal.Schema, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schema = &schema
	s.schemaCode = code
}

// SetMasks scripts the mask list and bodies. Names keep the given order.
func (s *Server) SetMasks(names []string, bodies map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maskNames = append([]string(nil), names...)
	for k, v := range bodies {
		s.masks[k] = v
	}
}

// SetResult scripts GET /results/{id}.tsv.
func (s *Server) SetResult(jobID, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[jobID] = body
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	resp, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		resp = portal.SessionResponse{Found: false}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	schema, code := s.schema, s.schemaCode
	s.mu.Unlock()
	if schema == nil {
		schema = &portal.Schema{ColNames: []string{}}
	}
	if code == 0 {
		code = http.StatusOK
	}
	writeJSON(w, code, schema)
}

func (s *Server) handleMaskList(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	names := append([]string{}, s.maskNames...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleMask(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.mu.Lock()
	body, ok := s.masks[name]
	s.mu.Unlock()
	if !ok {
		body = "ERROR: no mask named " + name
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, body)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "bad multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("inputFile")
	if err != nil {
		http.Error(w, "missing inputFile", http.StatusBadRequest)
		return
	}
	content, _ := io.ReadAll(file)
	_ = file.Close()

	s.mu.Lock()
	failure, fail := s.failures[header.Filename]
	s.mu.Unlock()

	if fail {
		if failure.StatusCode == 0 {
			dropConnection(w)
			return
		}
		http.Error(w, http.StatusText(failure.StatusCode), failure.StatusCode)
		return
	}

	s.mu.Lock()
	s.nextJob++
	up := Upload{
		Filter:   r.FormValue("filter"),
		Format:   r.FormValue("format"),
		Session:  r.FormValue("session"),
		Genome:   r.FormValue("hg"),
		Email:    r.FormValue("email"),
		FileName: header.Filename,
		Content:  string(content),
		JobID:    fmt.Sprintf("job-%d", s.nextJob),
	}
	s.uploads = append(s.uploads, up)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, up.JobID)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	script := s.statuses[id]
	n := s.statusCalls[id]
	s.statusCalls[id] = n + 1
	s.mu.Unlock()

	if len(script) == 0 {
		writeJSON(w, http.StatusOK, portal.Status{Message: "Unknown job " + id, SnagMessages: []string{}})
		return
	}
	if n >= len(script) {
		n = len(script) - 1
	}
	writeJSON(w, http.StatusOK, script[n])
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	id := strings.TrimSuffix(file, ".tsv")
	s.mu.Lock()
	body, ok := s.results[id]
	s.mu.Unlock()
	if !ok || id == file {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/tab-separated-values")
	_, _ = io.WriteString(w, body)
}
