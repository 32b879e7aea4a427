package server

import (
	"strconv"
	"sync"
	"time"

	"github.com/sloked-go/sloked/internal/multiplex"
	"github.com/sloked-go/sloked/pkg/config"
	"github.com/sloked-go/sloked/pkg/document"
	"github.com/sloked-go/sloked/pkg/notify"
)

// session is the live state for one open document: its multiplexer and
// notification hub, shared by every connected client. Generalizes the
// teacher's Document{LastAccessed, Rustpad} pair to the core's
// multiplexer/hub split.
type session struct {
	id     int64
	handle *document.Handle
	docs   *document.Set
	mux    *multiplex.Multiplexer
	hub    *notify.Hub
	detach func()

	mu           sync.Mutex
	lastAccessed time.Time
	nextConnID   uint64
}

func newSession(h *document.Handle, docs *document.Set, cfg config.Config) *session {
	mux := multiplex.New(h.Block(), h.Codec())
	hub := notify.NewHub(cfg.BroadcastBufferSize)
	s := &session{
		id:           h.ID(),
		handle:       h,
		docs:         docs,
		mux:          mux,
		hub:          hub,
		lastAccessed: time.Now(),
	}
	s.detach = mux.AddListener(hub.ContentListener())
	return s
}

func (s *session) touch() {
	s.mu.Lock()
	s.lastAccessed = time.Now()
	s.mu.Unlock()
}

func (s *session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}

func (s *session) nextStreamID() string {
	s.mu.Lock()
	s.nextConnID++
	id := s.nextConnID
	s.mu.Unlock()
	return "conn-" + strconv.FormatUint(id, 10)
}

func (s *session) close() {
	if s.detach != nil {
		s.detach()
	}
}
