package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/njchilds90/notesolve"
)

const maxBodyBytes = 1 << 20 // 1 MiB

const sessionHeader = "X-Session-ID"

// session is one client's engine. mu serialises tool calls, since an
// Engine is single-writer.
type session struct {
	mu       sync.Mutex
	engine   *notesolve.Engine
	lastUsed time.Time
}

type server struct {
	cfg    notesolve.Config
	logger *slog.Logger
	tracer trace.Tracer
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func newServer(cfg notesolve.Config, logger *slog.Logger, ttl time.Duration) *server {
	return &server{
		cfg:      cfg,
		logger:   logger,
		tracer:   otel.Tracer("github.com/njchilds90/notesolve/cmd/mcp-server"),
		ttl:      ttl,
		now:      time.Now,
		sessions: map[string]*session{},
	}
}

// newSession registers a fresh engine and returns its id.
func (s *server) newSession() (string, *session) {
	id := uuid.New().String()
	sess := &session{
		engine: notesolve.New(s.cfg,
			notesolve.WithLogger(s.logger.With("session", id)),
		),
		lastUsed: s.now(),
	}
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	s.logger.Info("session created", "session", id)
	return id, sess
}

// lookup finds id, creating a session when id is empty or unknown.
func (s *server) lookup(id string) (string, *session) {
	if id != "" {
		s.mu.Lock()
		sess, ok := s.sessions[id]
		if ok {
			sess.lastUsed = s.now()
		}
		s.mu.Unlock()
		if ok {
			return id, sess
		}
	}
	return s.newSession()
}

// evictIdle drops sessions unused for longer than the ttl and returns how
// many were removed.
func (s *server) evictIdle() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.lastUsed.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	if n > 0 {
		s.logger.Debug("evicted idle sessions", "count", n, "remaining", len(s.sessions))
	}
	return n
}

// startJanitor runs evictIdle every interval until the returned func is
// called.
func (s *server) startJanitor(interval time.Duration) func() {
	if interval <= 0 {
		return func() {}
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				s.evictIdle()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}

func (s *server) sessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// POST /session: open a session with its own engine
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id, _ := s.newSession()
		writeJSON(w, http.StatusOK, map[string]string{"session": id})
	})

	// POST /tool: handle a tool call
	mux.HandleFunc("/tool", func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic in /tool", "panic", fmt.Sprint(rec), "stack", string(debug.Stack()))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()

		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ctx, span := s.tracer.Start(r.Context(), "POST /tool")
		defer span.End()

		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		defer r.Body.Close()

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req notesolve.ToolRequest
		if err := dec.Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		// Ensure there's no trailing junk.
		if dec.More() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: trailing data"})
			return
		}

		id, sess := s.lookup(r.Header.Get(sessionHeader))
		span.SetAttributes(attribute.String("session", id), attribute.String("tool", req.Tool))

		sess.mu.Lock()
		resp := sess.engine.HandleToolCall(ctx, req)
		sess.mu.Unlock()

		s.logger.Debug("tool call", "session", id, "tool", req.Tool, "error", resp.Error)
		w.Header().Set(sessionHeader, id)
		writeJSON(w, http.StatusOK, resp)
	})

	// GET /schema: return tool schema for agent registration
	mux.HandleFunc("/schema", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, notesolve.ToolSpec())
	})

	// GET /health: liveness check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "ok",
			"sessions": s.sessionCount(),
			"time":     s.now().UTC().Format(time.RFC3339),
		})
	})

	return mux
}
