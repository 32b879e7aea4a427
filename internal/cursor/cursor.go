// Package cursor implements Cursor (spec C8): a mutable (line, column)
// bound to a TransactionStream, tracking how concurrent commits,
// rollbacks and reverts move it and emitting transactions for its own
// edit operations.
package cursor

import (
	"sync"

	"github.com/sloked-go/sloked/internal/buffer"
	"github.com/sloked-go/sloked/internal/encoding"
	"github.com/sloked-go/sloked/internal/position"
	"github.com/sloked-go/sloked/internal/stream"
	"github.com/sloked-go/sloked/internal/transaction"
)

// Cursor owns a position and a stream handle. Every mutating method
// commits exactly one transaction and returns the resulting position.
type Cursor struct {
	block  *buffer.Block
	codec  encoding.Codec
	stream *stream.Stream

	mu  sync.Mutex
	pos position.Position

	detach func()
}

// New binds a Cursor at (0,0) to s, reading and writing through block
// under codec. The cursor registers itself as a listener on s so that
// commits, rollbacks and reverts from any writer on the stream (itself
// included) keep its position correct.
func New(block *buffer.Block, codec encoding.Codec, s *stream.Stream) *Cursor {
	c := &Cursor{block: block, codec: codec, stream: s}
	c.detach = s.AddListener(stream.ListenerFuncs{
		Commit:   c.onCommit,
		Rollback: c.onRollback,
		Revert:   c.onRevert,
	})
	return c
}

// Close detaches the cursor from its stream. Safe to call more than
// once.
func (c *Cursor) Close() {
	if c.detach != nil {
		c.detach()
	}
}

// Position returns the cursor's current (line, column).
func (c *Cursor) Position() position.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

func (c *Cursor) onCommit(t transaction.Transaction) {
	c.rebase(t.CommitPatch(c.codec))
}

func (c *Cursor) onRollback(t transaction.Transaction) {
	c.rebase(t.RollbackPatch(c.codec))
}

func (c *Cursor) onRevert(t transaction.Transaction) {
	c.rebase(t.CommitPatch(c.codec))
}

func (c *Cursor) rebase(p *position.Patch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.Has(c.pos) {
		c.pos = p.Apply(c.pos)
	}
}

func (c *Cursor) lineLen(l uint64) uint64 {
	line, err := c.block.Line(l)
	if err != nil {
		return 0
	}
	return uint64(c.codec.CodepointCount([]byte(line)))
}

func (c *Cursor) clampColumn(l, col uint64) uint64 {
	if n := c.lineLen(l); col > n {
		return n
	}
	return col
}

// SetPosition moves the cursor to (l, c), clamping the column to the
// target line's length. Out-of-range lines are a no-op.
func (c *Cursor) SetPosition(l, col uint64) position.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l > c.block.LastLineIndex() {
		return c.pos
	}
	c.pos = position.Position{Line: l, Column: c.clampColumn(l, col)}
	return c.pos
}

// MoveUp moves the cursor up n lines, clamping at line 0 and clamping
// the column to the destination line's length.
func (c *Cursor) MoveUp(n uint64) position.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	var l uint64
	if n < c.pos.Line {
		l = c.pos.Line - n
	}
	c.pos = position.Position{Line: l, Column: c.clampColumn(l, c.pos.Column)}
	return c.pos
}

// MoveDown moves the cursor down n lines, clamping at the last line.
func (c *Cursor) MoveDown(n uint64) position.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.pos.Line + n
	if last := c.block.LastLineIndex(); l > last {
		l = last
	}
	c.pos = position.Position{Line: l, Column: c.clampColumn(l, c.pos.Column)}
	return c.pos
}

// MoveForward moves the cursor forward n codepoints on its current
// line, clamping at the line's length.
func (c *Cursor) MoveForward(n uint64) position.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos.Column = c.clampColumn(c.pos.Line, c.pos.Column+n)
	return c.pos
}

// MoveBackward moves the cursor backward n codepoints on its current
// line, clamping at 0.
func (c *Cursor) MoveBackward(n uint64) position.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n > c.pos.Column {
		c.pos.Column = 0
	} else {
		c.pos.Column -= n
	}
	return c.pos
}

// Insert commits an Insert transaction at the cursor's current position.
func (c *Cursor) Insert(content string) (position.Position, error) {
	anchor := c.Position()
	t := transaction.NewInsert(anchor, content)
	return c.commit(t)
}

// NewLine commits a Newline transaction at the cursor's current
// position.
func (c *Cursor) NewLine(content string) (position.Position, error) {
	anchor := c.Position()
	t := transaction.NewNewline(anchor, content)
	return c.commit(t)
}

// DeleteBackward commits a DeleteBackward transaction at the cursor's
// current position.
func (c *Cursor) DeleteBackward() (position.Position, error) {
	anchor := c.Position()
	t, err := transaction.NewDeleteBackward(c.block, c.codec, anchor)
	if err != nil {
		return anchor, err
	}
	return c.commit(t)
}

// DeleteForward commits a DeleteForward transaction at the cursor's
// current position.
func (c *Cursor) DeleteForward() (position.Position, error) {
	anchor := c.Position()
	t, err := transaction.NewDeleteForward(c.block, c.codec, anchor)
	if err != nil {
		return anchor, err
	}
	return c.commit(t)
}

// ClearRegion commits a ClearRegion transaction spanning [from, to), and
// moves the cursor to from.
func (c *Cursor) ClearRegion(from, to position.Position) (position.Position, error) {
	t, err := transaction.NewClearRegion(c.block, c.codec, from, to)
	if err != nil {
		return c.Position(), err
	}
	return c.commit(t)
}

func (c *Cursor) commit(t transaction.Transaction) (position.Position, error) {
	pos, err := c.stream.Commit(t)
	if err != nil {
		return c.Position(), err
	}
	c.mu.Lock()
	c.pos = pos
	c.mu.Unlock()
	return pos, nil
}

// Undo delegates to the stream's rollback; the returned position becomes
// the cursor position.
func (c *Cursor) Undo() (position.Position, error) {
	pos, err := c.stream.Rollback()
	if err != nil {
		return c.Position(), err
	}
	c.mu.Lock()
	c.pos = pos
	c.mu.Unlock()
	return pos, nil
}

// Redo delegates to the stream's revert-rollback; the returned position
// becomes the cursor position.
func (c *Cursor) Redo() (position.Position, error) {
	pos, err := c.stream.RevertRollback()
	if err != nil {
		return c.Position(), err
	}
	c.mu.Lock()
	c.pos = pos
	c.mu.Unlock()
	return pos, nil
}
