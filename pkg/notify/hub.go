// Package notify implements the document.notify subscription endpoint
// (spec.md §6.3): a per-document Hub that emits {source: "content"}
// after every commit/rollback/revert and {source: "tagger", payload:
// {start, end}} for every tagger-update region. Adapted from the
// teacher's Kolabpad.Subscribe/Unsubscribe/broadcast per-connection
// channel pattern, generalized from one operation-applied event to two
// named sources and wired to internal/multiplex.Multiplexer and
// internal/tagged.TaggedTextView instead of the teacher's single OT
// broadcast.
package notify

import (
	"sync"

	"github.com/sloked-go/sloked/internal/position"
	"github.com/sloked-go/sloked/internal/stream"
	"github.com/sloked-go/sloked/internal/transaction"
)

// Source names an event's origin.
type Source string

const (
	SourceContent Source = "content"
	SourceTagger  Source = "tagger"
)

// Event is one notification delivered to a subscriber.
type Event struct {
	Source Source
	Start  position.Position
	End    position.Position
}

// Hub fans notifications for one document out to every subscriber.
// Delivery is best-effort: a subscriber whose buffer is full misses the
// event rather than stalling the document.
type Hub struct {
	bufferSize int

	mu          sync.Mutex
	subscribers map[uint64]chan Event
	nextID      uint64
}

// NewHub builds a Hub whose subscriber channels are buffered to
// bufferSize.
func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Hub{bufferSize: bufferSize, subscribers: make(map[uint64]chan Event)}
}

// Subscribe registers a new listener, returning its id and receive-only
// channel.
func (h *Hub) Subscribe() (uint64, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Event, h.bufferSize)
	h.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes and closes id's channel.
func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[id]; ok {
		delete(h.subscribers, id)
		close(ch)
	}
}

func (h *Hub) broadcast(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
}

// ContentListener returns a stream.Listener that fires a "content"
// event on every commit, rollback and revert, suitable for
// (*internal/multiplex.Multiplexer).AddListener.
func (h *Hub) ContentListener() stream.Listener {
	fire := func(transaction.Transaction) { h.broadcast(Event{Source: SourceContent}) }
	return stream.ListenerFuncs{Commit: fire, Rollback: fire, Revert: fire}
}

// TaggerUpdate emits a "tagger" event for the region [start, end),
// meant to be passed as the callback to a TaggedTextView's OnUpdate.
func (h *Hub) TaggerUpdate(start, end position.Position) {
	h.broadcast(Event{Source: SourceTagger, Start: start, End: end})
}
