package document

import (
	"strings"
	"sync"

	"github.com/sloked-go/sloked/internal/buffer"
	"github.com/sloked-go/sloked/internal/encoding"
)

// Handle is one open document: its TextBlock, the encoding and newline
// style it was opened with, and its persistence identity — the
// (TextBlock, Encoding, newline style, upstream URI?) tuple of
// spec.md §6.1.
type Handle struct {
	mu sync.RWMutex

	id       int64
	block    *buffer.Block
	codec    encoding.Codec
	newline  Newline
	path     string
	upstream string

	lastHash uint64
}

func splitLines(content string, nl Newline) []string {
	if content == "" {
		return []string{""}
	}
	return strings.Split(content, nl.Separator())
}

func joinLines(lines []string, nl Newline) string {
	return strings.Join(lines, nl.Separator())
}

// ID returns the document's persistence identifier.
func (h *Handle) ID() int64 { return h.id }

// Block returns the document's TextBlock. Callers route all mutation
// through an internal/multiplex.Multiplexer constructed over it; Handle
// itself never mutates the block.
func (h *Handle) Block() *buffer.Block { return h.block }

// Codec returns the document's active encoding.
func (h *Handle) Codec() encoding.Codec { return h.codec }

// Newline returns the document's line-separator style.
func (h *Handle) Newline() Newline { return h.newline }

// Path returns the filesystem path the document was opened from or last
// saved to, or "" for an unsaved in-memory document.
func (h *Handle) Path() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.path
}

// Upstream returns the upstream URI a document was opened from, if any.
func (h *Handle) Upstream() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.upstream, h.upstream != ""
}

// SetUpstream records the upstream URI this document tracks.
func (h *Handle) SetUpstream(uri string) {
	h.mu.Lock()
	h.upstream = uri
	h.mu.Unlock()
}

func (h *Handle) setPath(path string) {
	h.mu.Lock()
	h.path = path
	h.mu.Unlock()
}

// content joins the current block into one string under the document's
// newline style, for persistence.
func (h *Handle) content() string {
	return joinLines(h.block.Snapshot(), h.newline)
}

// Text returns the document's current content, joined under its
// newline style, for serving over the RPC boundary (document.snapshot).
func (h *Handle) Text() string {
	return h.content()
}
