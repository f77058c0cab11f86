// Package hubspottest serves a SQLite-backed stand-in for the HubSpot CRM
// objects and associations APIs, for tests and for local experiments.
package hubspottest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

type contextKey int

const correlationIDKey contextKey = iota

// Server answers CRM API requests from a Store.
type Server struct {
	store  *Store
	token  string
	logger hubspot.Logger
	mux    *http.ServeMux

	// mu serializes requests; the store runs on a single connection.
	mu sync.Mutex

	callsMu sync.Mutex
	calls   []call
}

type call struct {
	method string
	path   string
}

// Option configures a Server.
type Option func(*Server)

// WithToken requires every request to carry token as its bearer token.
func WithToken(token string) Option {
	return func(s *Server) {
		s.token = token
	}
}

// WithLogger logs each request at debug level.
func WithLogger(logger hubspot.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New migrates db, seeds the built-in association types and returns a
// Server over it.
func New(ctx context.Context, db *sql.DB, opts ...Option) (*Server, error) {
	err := Migrate(ctx, db)
	if err != nil {
		return nil, err
	}

	store := NewStore(db)

	err = store.SeedAssociationTypes(ctx)
	if err != nil {
		return nil, err
	}

	s := &Server{store: store, mux: http.NewServeMux()}
	for _, opt := range opts {
		opt(s)
	}

	s.routes()

	return s, nil
}

// Store returns the records behind the server.
func (s *Server) Store() *Store {
	return s.store
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.recoverPanics(s.correlate(s.record(s.authenticate(s.serialize(s.mux)))))
}

// Calls counts the requests received with method whose path starts with prefix.
func (s *Server) Calls(method, prefix string) int {
	s.callsMu.Lock()
	defer s.callsMu.Unlock()

	n := 0

	for _, c := range s.calls {
		if c.method == method && strings.HasPrefix(c.path, prefix) {
			n++
		}
	}

	return n
}

// TestServer is a Server listening on a local port for the length of a test.
type TestServer struct {
	*Server

	URL   string
	Token string

	http *httptest.Server
	db   *sql.DB
}

// NewServer starts a fake backed by an in-memory database. It is closed
// when the test ends.
func NewServer(t testing.TB) *TestServer {
	t.Helper()

	db, err := OpenDB(":memory:")
	if err != nil {
		t.Fatalf("opening fake database: %v", err)
	}

	token := "pat-test-" + uuid.NewString()

	server, err := New(context.Background(), db, WithToken(token))
	if err != nil {
		_ = db.Close()

		t.Fatalf("starting fake server: %v", err)
	}

	ts := &TestServer{Server: server, Token: token, db: db}
	ts.http = httptest.NewServer(server.Handler())
	ts.URL = ts.http.URL

	t.Cleanup(ts.Close)

	return ts
}

// Close stops the listener and releases the database.
func (ts *TestServer) Close() {
	ts.http.Close()
	_ = ts.db.Close()
}

func correlationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}

	return ""
}

func (s *Server) correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Hubspot-Correlation-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), correlationIDKey, id)))
	})
}

type statusWriter struct {
	http.ResponseWriter

	code int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.code = code
	sw.ResponseWriter.WriteHeader(code)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.callsMu.Lock()
		s.calls = append(s.calls, call{method: r.Method, path: r.URL.Path})
		s.callsMu.Unlock()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		if s.logger != nil {
			s.logger.Debug("request", map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   sw.code,
				"duration": time.Since(start).String(),
			})
		}
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next.ServeHTTP(w, r)

			return
		}

		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") || strings.TrimPrefix(header, "Bearer ") != s.token {
			writeError(w, r, &apiError{
				status:   http.StatusUnauthorized,
				category: hubspot.CategoryUnauthorized,
				message:  "Authentication credentials not found.",
			})

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) serialize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if s.logger != nil {
					s.logger.Error("panic serving request", map[string]interface{}{"error": fmt.Sprint(rec), "path": r.URL.Path})
				}

				writeError(w, r, &apiError{status: http.StatusInternalServerError, category: "INTERNAL_ERROR", message: "Internal Server Error"})
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError renders err as a HubSpot error document. Errors the store did
// not classify become 500s.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		apiErr = &apiError{status: http.StatusInternalServerError, category: "INTERNAL_ERROR", message: err.Error()}
	}

	writeJSON(w, apiErr.status, errorDocument{
		Status:        "error",
		Message:       apiErr.message,
		CorrelationID: correlationID(r.Context()),
		Category:      apiErr.category,
		Context:       apiErr.context,
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		return invalid("Invalid input JSON on line 1: %s", err)
	}

	return nil
}
