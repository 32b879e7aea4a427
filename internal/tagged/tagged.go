// Package tagged implements the tagged-text pipeline (spec C9, §4.7):
// FragmentMap, the Tagger contract, and three layered read-only views
// over a TextBlock — LazyTaggedText, CacheTaggedText and TaggedTextView.
package tagged

import (
	"sort"
	"sync"

	"github.com/hashicorp/golang-lru/v2"

	"github.com/sloked-go/sloked/internal/corerr"
	"github.com/sloked-go/sloked/internal/position"
)

// Fragment is a half-open [Start, End) region of the TextBlock bearing
// tag T.
type Fragment[T any] struct {
	Start, End position.Position
	Tag        T
}

func (f Fragment[T]) contains(pos position.Position) bool {
	return f.Start.LessEqual(pos) && pos.Less(f.End)
}

func (f Fragment[T]) overlaps(start, end position.Position) bool {
	return f.Start.Less(end) && start.Less(f.End)
}

// Tagger is a streaming fragment source. next() must return fragments in
// strictly ascending start order with no overlap; rewind(pos) guarantees
// that the next next() returns a fragment overlapping pos or strictly
// after it.
type Tagger[T any] interface {
	Next() (Fragment[T], bool, error)
	Rewind(pos position.Position) error
	// OnUpdate registers a callback fired when the underlying data source
	// invalidates a region (e.g. a background re-tag). Returns a detach
	// func.
	OnUpdate(cb func(start, end position.Position)) (detach func())
}

// FragmentMap is a disjoint, start-ascending store of fragments. It
// backs LazyTaggedText's and TaggedTextView's caches. LRU eviction would
// violate the disjoint/ascending contract, so this stays a plain sorted
// slice rather than wrapping golang-lru.
type FragmentMap[T any] struct {
	fragments []Fragment[T]
}

// Append adds f, which must start at or after the map's current last
// fragment's end (the caller — a Tagger's ascending emission order —
// guarantees this).
func (m *FragmentMap[T]) Append(f Fragment[T]) {
	m.fragments = append(m.fragments, f)
}

// DropFrom removes every fragment with Start >= pos.
func (m *FragmentMap[T]) DropFrom(pos position.Position) {
	idx := sort.Search(len(m.fragments), func(i int) bool {
		return !m.fragments[i].Start.Less(pos)
	})
	m.fragments = m.fragments[:idx]
}

// DropOverlapping removes every fragment overlapping [start, end).
func (m *FragmentMap[T]) DropOverlapping(start, end position.Position) {
	out := m.fragments[:0]
	for _, f := range m.fragments {
		if !f.overlaps(start, end) {
			out = append(out, f)
		}
	}
	m.fragments = out
}

// Find returns the fragment containing pos, if any.
func (m *FragmentMap[T]) Find(pos position.Position) (Fragment[T], bool) {
	idx := sort.Search(len(m.fragments), func(i int) bool {
		return pos.Less(m.fragments[i].End)
	})
	if idx >= len(m.fragments) {
		return Fragment[T]{}, false
	}
	f := m.fragments[idx]
	if f.contains(pos) {
		return f, true
	}
	return Fragment[T]{}, false
}

// Last returns the final fragment stored, if any.
func (m *FragmentMap[T]) Last() (Fragment[T], bool) {
	if len(m.fragments) == 0 {
		return Fragment[T]{}, false
	}
	return m.fragments[len(m.fragments)-1], true
}

// All returns every stored fragment, in ascending start order.
func (m *FragmentMap[T]) All() []Fragment[T] {
	out := make([]Fragment[T], len(m.fragments))
	copy(out, m.fragments)
	return out
}

// TaggedText is the read-only contract shared by all three pipeline
// layers.
type TaggedText[T any] interface {
	Get(pos position.Position) (Fragment[T], bool, error)
	Rewind(pos position.Position) error
}

// LazyTaggedText wraps a Tagger, advancing it on demand and storing
// emitted fragments into a FragmentMap so repeated Get calls over
// already-seen text don't re-invoke the tagger.
type LazyTaggedText[T any] struct {
	mu      sync.Mutex
	tagger  Tagger[T]
	cache   FragmentMap[T]
	detach  func()
	drained bool
}

// NewLazy wraps tagger. The returned LazyTaggedText subscribes to the
// tagger's OnUpdate so invalidated regions drop from its cache.
func NewLazy[T any](tagger Tagger[T]) *LazyTaggedText[T] {
	l := &LazyTaggedText[T]{tagger: tagger}
	l.detach = tagger.OnUpdate(l.onUpdate)
	return l
}

// Close detaches from the underlying tagger's update notifications.
func (l *LazyTaggedText[T]) Close() {
	if l.detach != nil {
		l.detach()
	}
}

func (l *LazyTaggedText[T]) onUpdate(start, end position.Position) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache.DropOverlapping(start, end)
	if last, ok := l.cache.Last(); !ok || !end.Less(last.End) {
		l.drained = false
	}
}

// Get advances the tagger past pos as needed, returning the fragment
// containing pos, if any.
func (l *LazyTaggedText[T]) Get(pos position.Position) (Fragment[T], bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if f, ok := l.cache.Find(pos); ok {
		return f, true, nil
	}
	for !l.drained {
		if last, ok := l.cache.Last(); ok && pos.Less(last.End) {
			break
		}
		f, ok, err := l.tagger.Next()
		if err != nil {
			return Fragment[T]{}, false, err
		}
		if !ok {
			l.drained = true
			break
		}
		l.cache.Append(f)
		if f.contains(pos) {
			return f, true, nil
		}
		if pos.Less(f.Start) {
			return Fragment[T]{}, false, nil
		}
	}
	return l.cache.Find(pos)
}

// Rewind drops cached fragments at or after pos and rewinds the
// underlying tagger.
func (l *LazyTaggedText[T]) Rewind(pos position.Position) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache.DropFrom(pos)
	l.drained = false
	return l.tagger.Rewind(pos)
}

// CacheTaggedText memoizes the last fragment returned by an inner
// TaggedText, short-circuiting Get when pos falls inside it.
type CacheTaggedText[T any] struct {
	mu    sync.Mutex
	inner TaggedText[T]
	last  Fragment[T]
	valid bool
}

// NewCache wraps inner with a single-fragment memo.
func NewCache[T any](inner TaggedText[T]) *CacheTaggedText[T] {
	return &CacheTaggedText[T]{inner: inner}
}

func (c *CacheTaggedText[T]) Get(pos position.Position) (Fragment[T], bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid && c.last.contains(pos) {
		return c.last, true, nil
	}
	f, ok, err := c.inner.Get(pos)
	if err != nil {
		return Fragment[T]{}, false, err
	}
	if ok {
		c.last = f
		c.valid = true
	}
	return f, ok, nil
}

func (c *CacheTaggedText[T]) Rewind(pos position.Position) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	return c.inner.Rewind(pos)
}

// TaggedTextView clips an inner TaggedText to the rectangular region
// [offset, offset+size), translating fragments into view-local
// coordinates and caching the translated results.
type TaggedTextView[T any] struct {
	mu           sync.Mutex
	inner        TaggedText[T]
	offset, size position.Position
	cache        FragmentMap[T]

	subsMu  sync.Mutex
	subs    map[uint64]func(start, end position.Position)
	nextSub uint64
}

// NewView clips inner to [offset, offset+size).
func NewView[T any](inner TaggedText[T], offset, size position.Position) *TaggedTextView[T] {
	return &TaggedTextView[T]{inner: inner, offset: offset, size: size}
}

// translate maps an absolute position into view-local coordinates. The
// view is a true rectangle (§ S6): the column offset applies on every
// line the view covers, not just its first.
func translate(p, offset position.Position) position.Position {
	out := position.Position{}
	if p.Line >= offset.Line {
		out.Line = p.Line - offset.Line
	}
	if p.Column >= offset.Column {
		out.Column = p.Column - offset.Column
	}
	return out
}

// untranslate is translate's inverse: view-local to absolute.
func untranslate(p, offset position.Position) position.Position {
	return position.Position{Line: p.Line + offset.Line, Column: p.Column + offset.Column}
}

// clampColumn bounds col to [lo, hi], the view's column range on any
// row it covers.
func clampColumn(col, lo, hi uint64) uint64 {
	if col < lo {
		return lo
	}
	if col > hi {
		return hi
	}
	return col
}

func (v *TaggedTextView[T]) bound() position.Position {
	return position.Position{Line: v.offset.Line + v.size.Line, Column: v.offset.Column + v.size.Column}
}

// Get returns the fragment (clipped and translated to view coordinates)
// containing view-local pos, if any.
func (v *TaggedTextView[T]) Get(pos position.Position) (Fragment[T], bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if f, ok := v.cache.Find(pos); ok {
		return f, true, nil
	}
	abs := untranslate(pos, v.offset)
	if !abs.Less(v.bound()) {
		return Fragment[T]{}, false, nil
	}
	f, ok, err := v.inner.Get(abs)
	if err != nil || !ok {
		return Fragment[T]{}, false, err
	}
	clipped := v.clip(f)
	v.cache.Append(clipped)
	if clipped.contains(pos) {
		return clipped, true, nil
	}
	return Fragment[T]{}, false, nil
}

func (v *TaggedTextView[T]) clip(f Fragment[T]) Fragment[T] {
	bound := v.bound()
	start, end := f.Start, f.End

	if start.Line < v.offset.Line {
		start = v.offset
	}
	if end.Line >= bound.Line {
		end = bound
	}
	start.Column = clampColumn(start.Column, v.offset.Column, bound.Column)
	end.Column = clampColumn(end.Column, v.offset.Column, bound.Column)

	return Fragment[T]{Start: translate(start, v.offset), End: translate(end, v.offset), Tag: f.Tag}
}

// Rewind forwards to the inner tagged text with the view offset
// re-applied, dropping translated fragments at or after pos.
func (v *TaggedTextView[T]) Rewind(pos position.Position) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cache.DropFrom(pos)
	return v.inner.Rewind(untranslate(pos, v.offset))
}

// Update resizes/repositions the view, flushing the translated cache and
// notifying subscribers of the full new region.
func (v *TaggedTextView[T]) Update(offset, size position.Position) {
	v.mu.Lock()
	v.offset, v.size = offset, size
	v.cache = FragmentMap[T]{}
	v.mu.Unlock()
	v.notify(position.Position{}, size)
}

// Reset flushes the translated cache without changing the view's
// offset or size.
func (v *TaggedTextView[T]) Reset() {
	v.mu.Lock()
	v.cache = FragmentMap[T]{}
	size := v.size
	v.mu.Unlock()
	v.notify(position.Position{}, size)
}

// OnUpdate registers a callback fired with view-local [start, end)
// whenever Update or Reset runs; invalidations of the inner tagged text
// are not forwarded. cb is tracked by an id assigned at registration,
// since func values aren't comparable with ==.
func (v *TaggedTextView[T]) OnUpdate(cb func(start, end position.Position)) (detach func()) {
	v.subsMu.Lock()
	if v.subs == nil {
		v.subs = make(map[uint64]func(start, end position.Position))
	}
	id := v.nextSub
	v.nextSub++
	v.subs[id] = cb
	v.subsMu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			v.subsMu.Lock()
			delete(v.subs, id)
			v.subsMu.Unlock()
		})
	}
}

func (v *TaggedTextView[T]) notify(start, end position.Position) {
	v.subsMu.Lock()
	subs := make([]func(position.Position, position.Position), 0, len(v.subs))
	for _, cb := range v.subs {
		subs = append(subs, cb)
	}
	v.subsMu.Unlock()
	for _, cb := range subs {
		cb(start, end)
	}
}

// ProxyTagger is a rebindable Tagger: swapping the underlying tagger at
// runtime (e.g. when a document's syntax tagger is reconfigured) without
// invalidating consumers' references to the proxy itself. Supplements
// spec.md §4.7 with the rebind behavior original_source's
// SlokedTextProxyTagger provides.
type ProxyTagger[T any] struct {
	mu      sync.Mutex
	inner   Tagger[T]
	subs    map[uint64]func(start, end position.Position)
	nextSub uint64
	detach  func()
}

// NewProxyTagger wraps inner, which may be nil (an unbound proxy answers
// Next with ok=false until Rebind is called).
func NewProxyTagger[T any](inner Tagger[T]) *ProxyTagger[T] {
	p := &ProxyTagger[T]{}
	if inner != nil {
		p.Rebind(inner)
	}
	return p
}

// Rebind swaps the underlying tagger, re-wiring update notifications.
func (p *ProxyTagger[T]) Rebind(inner Tagger[T]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.detach != nil {
		p.detach()
		p.detach = nil
	}
	p.inner = inner
	if inner != nil {
		p.detach = inner.OnUpdate(p.forward)
	}
}

func (p *ProxyTagger[T]) forward(start, end position.Position) {
	p.mu.Lock()
	subs := make([]func(position.Position, position.Position), 0, len(p.subs))
	for _, cb := range p.subs {
		subs = append(subs, cb)
	}
	p.mu.Unlock()
	for _, cb := range subs {
		cb(start, end)
	}
}

func (p *ProxyTagger[T]) Next() (Fragment[T], bool, error) {
	p.mu.Lock()
	inner := p.inner
	p.mu.Unlock()
	if inner == nil {
		return Fragment[T]{}, false, nil
	}
	return inner.Next()
}

func (p *ProxyTagger[T]) Rewind(pos position.Position) error {
	p.mu.Lock()
	inner := p.inner
	p.mu.Unlock()
	if inner == nil {
		return corerr.New(corerr.InvalidState, "proxy tagger has no bound source")
	}
	return inner.Rewind(pos)
}

func (p *ProxyTagger[T]) OnUpdate(cb func(start, end position.Position)) (detach func()) {
	p.mu.Lock()
	if p.subs == nil {
		p.subs = make(map[uint64]func(start, end position.Position))
	}
	id := p.nextSub
	p.nextSub++
	p.subs[id] = cb
	p.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

// cachingTagger wraps a Tagger[T] with an LRU of recently-seen
// fragments keyed by their start position, so a rewind that lands
// exactly on the start of a cached fragment returns it straight from
// the cache instead of calling the (possibly parser-backed, expensive)
// underlying Next; a rewind to any other position goes to the
// underlying tagger. Not part of FragmentMap's
// own disjoint store — a supplementary cache in front of the source.
type cachingTagger[T any] struct {
	Tagger[T]
	cache   *lru.Cache[position.Position, Fragment[T]]
	pending *Fragment[T]
}

// NewCachingTagger wraps tagger with an LRU of size entries keyed by
// fragment start position.
func NewCachingTagger[T any](tagger Tagger[T], size int) (Tagger[T], error) {
	cache, err := lru.New[position.Position, Fragment[T]](size)
	if err != nil {
		return nil, corerr.Wrap(corerr.InvalidState, err, "allocating tagger cache")
	}
	return &cachingTagger[T]{Tagger: tagger, cache: cache}, nil
}

// Rewind always re-synchronizes the underlying tagger (it stays the
// authority on position), but primes pending from the cache so the
// following Next skips calling into the underlying tagger entirely.
func (c *cachingTagger[T]) Rewind(pos position.Position) error {
	if err := c.Tagger.Rewind(pos); err != nil {
		return err
	}
	c.pending = nil
	if f, ok := c.cache.Get(pos); ok {
		fc := f
		c.pending = &fc
	}
	return nil
}

func (c *cachingTagger[T]) Next() (Fragment[T], bool, error) {
	if c.pending != nil {
		f := *c.pending
		c.pending = nil
		// Keep the underlying tagger positioned past the fragment we
		// just served from cache, so its next real Next() picks up
		// where this one would have left off.
		if err := c.Tagger.Rewind(f.End); err != nil {
			return Fragment[T]{}, false, err
		}
		return f, true, nil
	}
	f, ok, err := c.Tagger.Next()
	if err == nil && ok {
		c.cache.Add(f.Start, f)
	}
	return f, ok, err
}
