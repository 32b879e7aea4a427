// Package server wires the core's collaborators (pkg/document,
// internal/multiplex, internal/cursor, pkg/notify) to an HTTP/WebSocket
// front door, generalizing the teacher's pkg/server (ServerState,
// Document map, handleSocket/handleText/handleStats, persister,
// StartCleaner) from one OT document per slug to one multiplexer-backed
// document per slug exposed over the tagged-value RPC boundary
// (spec.md §6.2).
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/sloked-go/sloked/pkg/config"
	"github.com/sloked-go/sloked/pkg/document"
	"github.com/sloked-go/sloked/pkg/logger"
)

// Server is the process's single HTTP entry point: WebSocket editing
// sessions, plain-text snapshot reads, and a stats endpoint.
type Server struct {
	cfg   config.Config
	docs  *document.Set
	mux   *http.ServeMux

	mu        sync.Mutex
	sessions  map[string]*session
	startedAt time.Time
}

// New builds a Server over docs using cfg for per-connection and
// cleanup settings.
func New(docs *document.Set, cfg config.Config) *Server {
	s := &Server{
		cfg:       cfg,
		docs:      docs,
		mux:       http.NewServeMux(),
		sessions:  make(map[string]*session),
		startedAt: time.Now(),
	}
	s.mux.HandleFunc("/api/socket/", s.handleSocket)
	s.mux.HandleFunc("/api/text/", s.handleText)
	s.mux.HandleFunc("/api/stats", s.handleStats)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func slugFrom(prefix string, r *http.Request) string {
	return strings.TrimPrefix(r.URL.Path, prefix)
}

// handleSocket upgrades /api/socket/{slug} to a WebSocket editing
// session.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	slug := slugFrom("/api/socket/", r)
	if slug == "" {
		http.Error(w, "document slug required", http.StatusBadRequest)
		return
	}

	sess := s.getOrCreateSession(slug)
	sess.touch()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		logger.Error("websocket upgrade failed for %q: %v", slug, err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	c := NewConnection(sess, conn, s.cfg)
	if err := c.Handle(r.Context()); err != nil {
		logger.Debug("connection to %q ended: %v", slug, err)
	}
}

// handleText returns the current document text as plain UTF-8.
func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	slug := slugFrom("/api/text/", r)
	if slug == "" {
		http.Error(w, "document slug required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	sess, ok := s.sessions[slug]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if !ok {
		w.Write(nil)
		return
	}
	w.Write([]byte(sess.handle.Text()))
}

// stats is the JSON body of the /api/stats response.
type stats struct {
	StartTime    int64 `json:"start_time"`
	NumDocuments int   `json:"num_documents"`
	DatabaseSize int   `json:"database_size"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	numSessions := len(s.sessions)
	s.mu.Unlock()

	dbSize, err := s.docs.Count()
	if err != nil {
		logger.Error("stats: counting persisted documents: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats{
		StartTime:    s.startedAt.Unix(),
		NumDocuments: numSessions,
		DatabaseSize: dbSize,
	})
}

func (s *Server) getOrCreateSession(slug string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[slug]; ok {
		return sess
	}

	h, err := s.docs.NewDocument(s.cfg.Encoding, "lf")
	if err != nil {
		logger.Error("creating document for %q: %v", slug, err)
		h, _ = s.docs.NewDocument("utf-8", "lf")
	}
	h.SetUpstream(slug)

	sess := newSession(h, s.docs, s.cfg)
	s.sessions[slug] = sess
	return sess
}

// StartCleaner runs every cfg.CleanupInterval, evicting sessions idle
// longer than cfg.ExpiryDays and sweeping from the document set the
// documents not accessed within that expiry. Mirrors the
// teacher's StartCleaner/cleanupExpiredDocuments, generalized to the
// multiplexer-backed session.
func (s *Server) StartCleaner(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	expiry := time.Duration(s.cfg.ExpiryDays) * 24 * time.Hour
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanupIdleSessions(expiry)
			s.docs.Sweep(expiry)
		}
	}
}

func (s *Server) cleanupIdleSessions(expiry time.Duration) {
	now := time.Now()
	s.mu.Lock()
	var stale []string
	for slug, sess := range s.sessions {
		if now.Sub(sess.idleSince()) > expiry {
			stale = append(stale, slug)
		}
	}
	for _, slug := range stale {
		s.sessions[slug].close()
		delete(s.sessions, slug)
	}
	s.mu.Unlock()

	if len(stale) > 0 {
		logger.Info("cleaner evicted idle sessions: %v", stale)
	}
}

// ListenAndServe starts the HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	logger.Info("listening on %s", addr)
	return http.ListenAndServe(addr, s)
}

// Shutdown closes every live session and persists their documents.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.close()
		if err := s.docs.Save(sess.handle); err != nil {
			logger.Error("saving document %d on shutdown: %v", sess.id, err)
		}
	}
	return ctx.Err()
}
