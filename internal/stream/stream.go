// Package stream implements TransactionStream (spec C6): a per-writer
// handle into a TransactionStreamMultiplexer, exposing commit/rollback/
// revert and per-stream listener fan-out. The multiplexer owns the
// shared TextBlock and journal; a Stream is a thin, named view over it.
package stream

import (
	"sync"

	"github.com/sloked-go/sloked/internal/position"
	"github.com/sloked-go/sloked/internal/transaction"
)

// Listener receives transaction events for a single stream, fired after
// the TextBlock has been mutated and before control returns to the
// caller that triggered the event (spec.md §4.4).
type Listener interface {
	OnCommit(t transaction.Transaction)
	OnRollback(t transaction.Transaction)
	OnRevert(t transaction.Transaction)
}

// ListenerFuncs adapts three plain funcs to the Listener interface; any
// nil func is a no-op for that event.
type ListenerFuncs struct {
	Commit   func(transaction.Transaction)
	Rollback func(transaction.Transaction)
	Revert   func(transaction.Transaction)
}

func (l ListenerFuncs) OnCommit(t transaction.Transaction) {
	if l.Commit != nil {
		l.Commit(t)
	}
}

func (l ListenerFuncs) OnRollback(t transaction.Transaction) {
	if l.Rollback != nil {
		l.Rollback(t)
	}
}

func (l ListenerFuncs) OnRevert(t transaction.Transaction) {
	if l.Revert != nil {
		l.Revert(t)
	}
}

// Backend is the multiplexer-side operations a Stream delegates to,
// keyed by the stream's own id.
type Backend interface {
	Commit(streamID string, t transaction.Transaction) (position.Position, error)
	HasRollback(streamID string) bool
	Rollback(streamID string) (position.Position, error)
	HasRevertable(streamID string) bool
	RevertRollback(streamID string) (position.Position, error)
}

// Stream is a per-writer handle into a Backend (the multiplexer).
type Stream struct {
	id      string
	backend Backend

	mu        sync.Mutex
	listeners map[uint64]Listener
	nextID    uint64
}

// New builds a Stream named id against backend. Multiplexers are
// expected to retain the returned Stream so they can dispatch per-stream
// events to it (see DispatchCommit et al.).
func New(id string, backend Backend) *Stream {
	return &Stream{id: id, backend: backend}
}

// ID returns the stream's name.
func (s *Stream) ID() string { return s.id }

// Commit journals t against the backend.
func (s *Stream) Commit(t transaction.Transaction) (position.Position, error) {
	return s.backend.Commit(s.id, t)
}

// HasRollback reports whether this stream has a commit to undo.
func (s *Stream) HasRollback() bool { return s.backend.HasRollback(s.id) }

// Rollback undoes this stream's most recent commit.
func (s *Stream) Rollback() (position.Position, error) { return s.backend.Rollback(s.id) }

// HasRevertable reports whether this stream has a rolled-back commit to
// restore.
func (s *Stream) HasRevertable() bool { return s.backend.HasRevertable(s.id) }

// RevertRollback restores this stream's most recently rolled-back commit.
func (s *Stream) RevertRollback() (position.Position, error) { return s.backend.RevertRollback(s.id) }

// AddListener registers l and returns a detach func. l may be a
// ListenerFuncs value (not comparable with ==), so registrations are
// tracked by id rather than by value identity. Calling detach more than
// once, or after ClearListeners, is a safe no-op.
func (s *Stream) AddListener(l Listener) (detach func()) {
	s.mu.Lock()
	if s.listeners == nil {
		s.listeners = make(map[uint64]Listener)
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// ClearListeners removes every registered listener.
func (s *Stream) ClearListeners() {
	s.mu.Lock()
	s.listeners = nil
	s.mu.Unlock()
}

func (s *Stream) snapshot() []Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.listeners) == 0 {
		return nil
	}
	out := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		out = append(out, l)
	}
	return out
}

// DispatchCommit fires OnCommit on a snapshot of the current listener
// list. Called by the backend after the TextBlock has settled.
func (s *Stream) DispatchCommit(t transaction.Transaction) {
	for _, l := range s.snapshot() {
		l.OnCommit(t)
	}
}

// DispatchRollback fires OnRollback on a snapshot of the current
// listener list.
func (s *Stream) DispatchRollback(t transaction.Transaction) {
	for _, l := range s.snapshot() {
		l.OnRollback(t)
	}
}

// DispatchRevert fires OnRevert on a snapshot of the current listener
// list.
func (s *Stream) DispatchRevert(t transaction.Transaction) {
	for _, l := range s.snapshot() {
		l.OnRevert(t)
	}
}
