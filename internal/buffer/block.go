// Package buffer implements TextBlock (spec C3): a line-indexed, mutable
// text container with O(1) line access and bulk visitors.
package buffer

import (
	"github.com/sloked-go/sloked/internal/corerr"
)

// Block is an ordered sequence of lines. Each line is a byte string in the
// document's active encoding, with no embedded newline. Line count always
// equals LastLineIndex()+1.
//
// §4.1 leaves backing storage to the implementation (gap buffer, rope,
// piece table); this is a plain line slice, the idiomatic Go baseline for
// a line-oriented buffer with no rope/piece-table library in the corpus.
type Block struct {
	lines []string
}

// New creates a Block from initial content, split into lines without the
// newline bytes themselves.
func New(lines []string) *Block {
	if len(lines) == 0 {
		lines = []string{""}
	}
	cp := make([]string, len(lines))
	copy(cp, lines)
	return &Block{lines: cp}
}

// Empty creates a Block containing a single empty line.
func Empty() *Block {
	return &Block{lines: []string{""}}
}

// LastLineIndex returns the index of the final line.
func (b *Block) LastLineIndex() uint64 {
	return uint64(len(b.lines) - 1)
}

// Line returns a read-only view of the i-th line.
func (b *Block) Line(i uint64) (string, error) {
	if i > b.LastLineIndex() {
		return "", corerr.Newf(corerr.OutOfRange, "line %d out of range (last=%d)", i, b.LastLineIndex())
	}
	return b.lines[i], nil
}

// SetLine replaces line i entirely.
func (b *Block) SetLine(i uint64, v string) error {
	if i > b.LastLineIndex() {
		return corerr.Newf(corerr.OutOfRange, "line %d out of range (last=%d)", i, b.LastLineIndex())
	}
	b.lines[i] = v
	return nil
}

// InsertLine inserts a new line at position i, pushing existing lines
// down. i == LastLineIndex()+1 appends.
func (b *Block) InsertLine(i uint64, v string) error {
	if i > b.LastLineIndex()+1 {
		return corerr.Newf(corerr.OutOfRange, "insert at %d out of range (last=%d)", i, b.LastLineIndex())
	}
	b.lines = append(b.lines, "")
	copy(b.lines[i+1:], b.lines[i:])
	b.lines[i] = v
	return nil
}

// EraseLine removes line i; subsequent lines shift up.
func (b *Block) EraseLine(i uint64) error {
	if i > b.LastLineIndex() {
		return corerr.Newf(corerr.OutOfRange, "erase at %d out of range (last=%d)", i, b.LastLineIndex())
	}
	b.lines = append(b.lines[:i], b.lines[i+1:]...)
	if len(b.lines) == 0 {
		b.lines = []string{""}
	}
	return nil
}

// Visit invokes cb(line) for each line in [from, to) in order.
func (b *Block) Visit(from, to uint64, cb func(line string)) error {
	if from > to {
		return nil
	}
	last := b.LastLineIndex()
	if to > last+1 {
		to = last + 1
	}
	for i := from; i < to; i++ {
		cb(b.lines[i])
	}
	return nil
}

// Optimize compacts internal storage. The slice-backed Block has nothing
// to defragment; it exists to satisfy the §4.1 contract for
// implementations that do (gap buffers, ropes).
func (b *Block) Optimize() {}

// Snapshot returns a defensive copy of all lines, mainly for tests and
// persistence.
func (b *Block) Snapshot() []string {
	cp := make([]string, len(b.lines))
	copy(cp, b.lines)
	return cp
}
