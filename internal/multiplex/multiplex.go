// Package multiplex implements TransactionStreamMultiplexer (spec C7,
// "the hardest subsystem"): multiple TransactionStreams share one
// TextBlock, each with its own undo/redo, composing correctly with
// interleaved commits from other streams via anchor-position
// rebase-by-reapplication (not OT compose/transform).
package multiplex

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/sloked-go/sloked/internal/buffer"
	"github.com/sloked-go/sloked/internal/corerr"
	"github.com/sloked-go/sloked/internal/encoding"
	"github.com/sloked-go/sloked/internal/position"
	"github.com/sloked-go/sloked/internal/stream"
	"github.com/sloked-go/sloked/internal/transaction"
)

// StampedTransaction is one journal entry: a transaction committed by a
// stream, tagged with its commit-order stamp.
type StampedTransaction struct {
	Stream string
	Stamp  uint64
	Tx     transaction.Transaction
}

// Multiplexer owns the shared TextBlock and the stamp-ordered journal of
// every commit against it. Streams are opened against a Multiplexer and
// delegate their commit/rollback/revert calls to it.
type Multiplexer struct {
	mu        sync.Mutex
	block     *buffer.Block
	codec     encoding.Codec
	nextStamp uint64
	journal   []StampedTransaction
	backtrack map[string][]StampedTransaction
	streams   map[string]*stream.Stream

	listenersMu  sync.Mutex
	listeners    map[uint64]stream.Listener
	nextListener uint64
}

// New builds a Multiplexer over block using codec for all codepoint
// arithmetic.
func New(block *buffer.Block, codec encoding.Codec) *Multiplexer {
	return &Multiplexer{
		block:     block,
		codec:     codec,
		backtrack: make(map[string][]StampedTransaction),
		streams:   make(map[string]*stream.Stream),
	}
}

// Block returns the shared TextBlock. Callers must not mutate it
// directly; all mutation goes through Commit/Rollback/RevertRollback.
func (m *Multiplexer) Block() *buffer.Block { return m.block }

// Codec returns the encoding used for this multiplexer's block.
func (m *Multiplexer) Codec() encoding.Codec { return m.codec }

// OpenStream returns the named stream, creating it if this is the first
// reference.
func (m *Multiplexer) OpenStream(id string) *stream.Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.streams[id]; ok {
		return s
	}
	s := stream.New(id, m)
	m.streams[id] = s
	return s
}

// AddListener registers an anonymous, multiplexer-level listener that
// receives every event on every stream. Returns a detach func. l may be
// a stream.ListenerFuncs value (not comparable with ==), so
// registrations are tracked by id rather than by value identity.
func (m *Multiplexer) AddListener(l stream.Listener) (detach func()) {
	m.listenersMu.Lock()
	if m.listeners == nil {
		m.listeners = make(map[uint64]stream.Listener)
	}
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = l
	m.listenersMu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			m.listenersMu.Lock()
			delete(m.listeners, id)
			m.listenersMu.Unlock()
		})
	}
}

// ClearListeners removes every anonymous listener.
func (m *Multiplexer) ClearListeners() {
	m.listenersMu.Lock()
	m.listeners = nil
	m.listenersMu.Unlock()
}

func (m *Multiplexer) listenerSnapshot() []stream.Listener {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	if len(m.listeners) == 0 {
		return nil
	}
	out := make([]stream.Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		out = append(out, l)
	}
	return out
}

func (m *Multiplexer) fireCommit(streamID string, t transaction.Transaction) {
	m.mu.Lock()
	s := m.streams[streamID]
	m.mu.Unlock()
	if s != nil {
		s.DispatchCommit(t)
	}
	for _, l := range m.listenerSnapshot() {
		l.OnCommit(t)
	}
}

func (m *Multiplexer) fireRollback(streamID string, t transaction.Transaction) {
	m.mu.Lock()
	s := m.streams[streamID]
	m.mu.Unlock()
	if s != nil {
		s.DispatchRollback(t)
	}
	for _, l := range m.listenerSnapshot() {
		l.OnRollback(t)
	}
}

func (m *Multiplexer) fireRevert(streamID string, t transaction.Transaction) {
	m.mu.Lock()
	s := m.streams[streamID]
	m.mu.Unlock()
	if s != nil {
		s.DispatchRevert(t)
	}
	for _, l := range m.listenerSnapshot() {
		l.OnRevert(t)
	}
}

// corrupt wraps an unexpected failure encountered while replaying the
// journal (not a fresh user-triggered commit) as CoreCorruption and
// panics, per spec.md §7/§9: the core refuses further mutation rather
// than expose partial state.
func corrupt(msg string, err error) {
	panic(corerr.Wrap(corerr.CoreCorruption, err, msg))
}

// Commit journals t against streamID, applies it, and fires on_commit.
// Implements spec.md §4.5 Commit.
func (m *Multiplexer) Commit(streamID string, t transaction.Transaction) (position.Position, error) {
	m.mu.Lock()
	stamp := m.nextStamp
	m.nextStamp++
	m.journal = append(m.journal, StampedTransaction{Stream: streamID, Stamp: stamp, Tx: t})
	m.backtrack[streamID] = nil

	if err := t.Apply(m.block, m.codec); err != nil {
		m.journal = m.journal[:len(m.journal)-1]
		m.mu.Unlock()
		return position.Position{}, errors.Wrap(err, "commit: apply transaction")
	}
	result := t.CommitPatch(m.codec).Apply(t.Anchor())
	m.mu.Unlock()

	m.fireCommit(streamID, t)
	return result, nil
}

// HasRollback reports whether streamID has a commit left to undo.
func (m *Multiplexer) HasRollback(streamID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastIndexFor(streamID) >= 0
}

func (m *Multiplexer) lastIndexFor(streamID string) int {
	for i := len(m.journal) - 1; i >= 0; i-- {
		if m.journal[i].Stream == streamID {
			return i
		}
	}
	return -1
}

// Rollback undoes streamID's most recent commit, even if other streams'
// commits followed it, rebasing every later journal entry onto the
// resulting text. Implements spec.md §4.5 Rollback.
func (m *Multiplexer) Rollback(streamID string) (position.Position, error) {
	m.mu.Lock()

	i := m.lastIndexFor(streamID)
	if i < 0 {
		m.mu.Unlock()
		return position.Position{}, nil
	}
	removed := m.journal[i]
	m.backtrack[streamID] = append(m.backtrack[streamID], removed)

	// Roll back entries [i, last] in reverse order, bringing the block
	// back to the state just after entry i-1.
	for j := len(m.journal) - 1; j >= i; j-- {
		if err := m.journal[j].Tx.Rollback(m.block, m.codec); err != nil {
			corrupt("rollback: reversing journaled transaction", err)
		}
	}

	rest := append([]StampedTransaction(nil), m.journal[i+1:]...)
	m.journal = m.journal[:i]

	patch := removed.Tx.RollbackPatch(m.codec)
	for idx, entry := range rest {
		rebasedAnchor := patch.Apply(entry.Tx.Anchor())
		rebased := entry.Tx.WithAnchor(rebasedAnchor)
		updated, err := rebased.Update(m.block, m.codec)
		if err != nil {
			corrupt("rollback: re-deriving rebased transaction", err)
		}
		if err := updated.Apply(m.block, m.codec); err != nil {
			corrupt("rollback: reapplying rebased transaction", err)
		}
		rest[idx].Tx = updated
		patch = position.Compose(patch, updated.CommitPatch(m.codec))
	}
	m.journal = append(m.journal, rest...)

	result := patch.Apply(removed.Tx.Anchor())
	m.mu.Unlock()
	m.fireRollback(streamID, removed.Tx)
	return result, nil
}

// HasRevertable reports whether streamID has a rolled-back commit to
// restore.
func (m *Multiplexer) HasRevertable(streamID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.backtrack[streamID]) > 0
}

// RevertRollback restores streamID's most recently rolled-back commit,
// reinserting it at its original stamp position and rebasing every
// entry after it. Implements spec.md §4.5 RevertRollback.
func (m *Multiplexer) RevertRollback(streamID string) (position.Position, error) {
	m.mu.Lock()

	stack := m.backtrack[streamID]
	if len(stack) == 0 {
		m.mu.Unlock()
		return position.Position{}, nil
	}
	r := stack[len(stack)-1]
	m.backtrack[streamID] = stack[:len(stack)-1]

	insertIdx := sort.Search(len(m.journal), func(i int) bool {
		return m.journal[i].Stamp > r.Stamp
	})

	for j := len(m.journal) - 1; j >= insertIdx; j-- {
		if err := m.journal[j].Tx.Rollback(m.block, m.codec); err != nil {
			corrupt("revert: reversing later journaled transaction", err)
		}
	}

	rest := append([]StampedTransaction(nil), m.journal[insertIdx:]...)
	m.journal = m.journal[:insertIdx]

	if err := r.Tx.Apply(m.block, m.codec); err != nil {
		corrupt("revert: reapplying reverted transaction", err)
	}
	m.journal = append(m.journal, r)

	patch := r.Tx.CommitPatch(m.codec)
	for idx, entry := range rest {
		rebasedAnchor := patch.Apply(entry.Tx.Anchor())
		rebased := entry.Tx.WithAnchor(rebasedAnchor)
		updated, err := rebased.Update(m.block, m.codec)
		if err != nil {
			corrupt("revert: re-deriving rebased transaction", err)
		}
		if err := updated.Apply(m.block, m.codec); err != nil {
			corrupt("revert: reapplying rebased transaction", err)
		}
		rest[idx].Tx = updated
		patch = position.Compose(patch, updated.CommitPatch(m.codec))
	}
	m.journal = append(m.journal, rest...)

	result := patch.Apply(r.Tx.Anchor())
	m.mu.Unlock()
	m.fireRevert(streamID, r.Tx)
	return result, nil
}

// Journal returns a snapshot of the current journal, mainly for tests
// and diagnostics.
func (m *Multiplexer) Journal() []StampedTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StampedTransaction, len(m.journal))
	copy(out, m.journal)
	return out
}
