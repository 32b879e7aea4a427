// Package transaction implements Transaction (spec C5): a reversible
// record of one edit, capable of computing its own commit/rollback
// patches and of being re-derived against a changed TextBlock (used by
// the multiplexer's rebase-on-rollback algorithm, §4.5).
package transaction

import (
	"github.com/sloked-go/sloked/internal/buffer"
	"github.com/sloked-go/sloked/internal/corerr"
	"github.com/sloked-go/sloked/internal/edit"
	"github.com/sloked-go/sloked/internal/encoding"
	"github.com/sloked-go/sloked/internal/position"
)

// State tracks a transaction's lifecycle: Unapplied -> Applied ->
// RolledBack -> Applied (via revert), per spec.md §4.3.
type State int

const (
	Unapplied State = iota
	Applied
	RolledBack
)

// Transaction is a reversible edit. Every variant below implements it.
type Transaction interface {
	// Anchor returns the position at which the edit was issued.
	Anchor() position.Position
	// Apply performs the edit against b.
	Apply(b *buffer.Block, codec encoding.Codec) error
	// Rollback reverses the edit using captured original content.
	Rollback(b *buffer.Block, codec encoding.Codec) error
	// CommitPatch returns the position delta committing this transaction
	// imposes on positions at or after its anchor.
	CommitPatch(codec encoding.Codec) *position.Patch
	// RollbackPatch is the inverse of CommitPatch.
	RollbackPatch(codec encoding.Codec) *position.Patch
	// Update re-derives the transaction's captured payload against the
	// current block state (anchor must already have been rebased by the
	// caller). Used by the multiplexer to recompute, e.g., "the character
	// actually at this position now" before reapplying after a rebase.
	Update(b *buffer.Block, codec encoding.Codec) (Transaction, error)
	// WithAnchor returns a copy of the transaction with a new anchor,
	// leaving captured payload untouched (the multiplexer calls this
	// before Update during rebase).
	WithAnchor(a position.Position) Transaction
}

// insertLines re-inserts lines (as produced by edit.Read) at pos, the
// inverse of edit.ClearRegion / used to roll back a multi-line delete.
func insertLines(b *buffer.Block, codec encoding.Codec, pos position.Position, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	line, err := b.Line(pos.Line)
	if err != nil {
		return err
	}
	n := uint64(codec.CodepointCount([]byte(line)))
	col := pos.Column
	if col > n {
		col = n
	}
	left := firstN(codec, line, col)
	right := lastN(codec, line, col, n)

	if len(lines) == 1 {
		return b.SetLine(pos.Line, left+lines[0]+right)
	}

	if err := b.SetLine(pos.Line, left+lines[0]); err != nil {
		return err
	}
	insertAt := pos.Line + 1
	for i := 1; i < len(lines)-1; i++ {
		if err := b.InsertLine(insertAt, lines[i]); err != nil {
			return err
		}
		insertAt++
	}
	return b.InsertLine(insertAt, lines[len(lines)-1]+right)
}

func firstN(codec encoding.Codec, line string, n uint64) string {
	view := []byte(line)
	if n == 0 {
		return ""
	}
	total := uint64(codec.CodepointCount(view))
	if n >= total {
		return line
	}
	off, _, ok := codec.CodepointAt(view, int(n))
	if !ok {
		return line
	}
	return string(view[:off])
}

func lastN(codec encoding.Codec, line string, from, total uint64) string {
	view := []byte(line)
	if from >= total {
		return ""
	}
	off, _, ok := codec.CodepointAt(view, int(from))
	if !ok {
		return ""
	}
	return string(view[off:])
}

// ---- Insert ----

type insertTx struct {
	anchor  position.Position
	content string
	state   State
}

// NewInsert builds an Insert transaction anchored at pos, inserting
// content (which must not contain a newline; see spec.md §4.2).
func NewInsert(pos position.Position, content string) Transaction {
	return &insertTx{anchor: pos, content: content}
}

func (t *insertTx) Anchor() position.Position { return t.anchor }

func (t *insertTx) Apply(b *buffer.Block, codec encoding.Codec) error {
	if t.state == Applied {
		return corerr.New(corerr.InvalidState, "transaction already applied")
	}
	if _, err := edit.Insert(b, codec, t.anchor, t.content); err != nil {
		return err
	}
	t.state = Applied
	return nil
}

func (t *insertTx) Rollback(b *buffer.Block, codec encoding.Codec) error {
	if t.state != Applied {
		return corerr.New(corerr.InvalidState, "transaction not applied")
	}
	length := uint64(codec.CodepointCount([]byte(t.content)))
	if err := edit.ClearRegion(b, codec, t.anchor, position.Position{Line: t.anchor.Line, Column: t.anchor.Column + length}); err != nil {
		return err
	}
	t.state = RolledBack
	return nil
}

func (t *insertTx) CommitPatch(codec encoding.Codec) *position.Patch {
	length := int64(codec.CodepointCount([]byte(t.content)))
	p := position.NewPatch()
	p.Set(t.anchor, position.Delta{Column: length})
	p.Set(position.Position{Line: t.anchor.Line + 1, Column: 0}, position.Delta{})
	return p
}

func (t *insertTx) RollbackPatch(codec encoding.Codec) *position.Patch {
	length := int64(codec.CodepointCount([]byte(t.content)))
	end := position.Position{Line: t.anchor.Line, Column: t.anchor.Column + uint64(length)}
	p := position.NewPatch()
	p.Set(end, position.Delta{Column: -length})
	p.Set(position.Position{Line: t.anchor.Line + 1, Column: 0}, position.Delta{})
	return p
}

func (t *insertTx) Update(b *buffer.Block, codec encoding.Codec) (Transaction, error) {
	cp := *t
	return &cp, nil
}

func (t *insertTx) WithAnchor(a position.Position) Transaction {
	cp := *t
	cp.anchor = a
	return &cp
}

// ---- Newline ----

type newlineTx struct {
	anchor  position.Position
	content string
	state   State
}

// NewNewline builds a Newline transaction: splits the anchor's line and
// inserts content at the start of the new line.
func NewNewline(pos position.Position, content string) Transaction {
	return &newlineTx{anchor: pos, content: content}
}

func (t *newlineTx) Anchor() position.Position { return t.anchor }

func (t *newlineTx) Apply(b *buffer.Block, codec encoding.Codec) error {
	if t.state == Applied {
		return corerr.New(corerr.InvalidState, "transaction already applied")
	}
	if _, err := edit.Newline(b, codec, t.anchor, t.content); err != nil {
		return err
	}
	t.state = Applied
	return nil
}

func (t *newlineTx) Rollback(b *buffer.Block, codec encoding.Codec) error {
	if t.state != Applied {
		return corerr.New(corerr.InvalidState, "transaction not applied")
	}
	// Inverse of Newline: merge the inserted line back into the anchor's
	// line, dropping the content prefix that was inserted.
	if err := edit.ClearRegion(b, codec,
		position.Position{Line: t.anchor.Line + 1, Column: 0},
		position.Position{Line: t.anchor.Line + 1, Column: uint64(codec.CodepointCount([]byte(t.content)))},
	); err != nil {
		return err
	}
	if err := mergeUp(b, codec, t.anchor.Line+1); err != nil {
		return err
	}
	t.state = RolledBack
	return nil
}

// mergeUp appends line i into line i-1 and erases line i.
func mergeUp(b *buffer.Block, codec encoding.Codec, i uint64) error {
	if i == 0 {
		return corerr.New(corerr.InvalidState, "cannot merge line 0 upward")
	}
	prev, err := b.Line(i - 1)
	if err != nil {
		return err
	}
	cur, err := b.Line(i)
	if err != nil {
		return err
	}
	if err := b.SetLine(i-1, prev+cur); err != nil {
		return err
	}
	return b.EraseLine(i)
}

func (t *newlineTx) CommitPatch(codec encoding.Codec) *position.Patch {
	contentLen := int64(codec.CodepointCount([]byte(t.content)))
	splitCol := int64(t.anchor.Column)
	p := position.NewPatch()
	p.Set(t.anchor, position.Delta{Line: 1, Column: contentLen - splitCol})
	p.Set(position.Position{Line: t.anchor.Line + 1, Column: 0}, position.Delta{Line: 1})
	return p
}

func (t *newlineTx) RollbackPatch(codec encoding.Codec) *position.Patch {
	contentLen := int64(codec.CodepointCount([]byte(t.content)))
	splitCol := int64(t.anchor.Column)
	p := position.NewPatch()
	// Inverse of the anchor-line entry: positions on the new line (anchor.Line+1)
	// fold back onto anchor.Line at column splitCol + (col - contentLen).
	p.Set(position.Position{Line: t.anchor.Line + 1, Column: 0}, position.Delta{Line: -1, Column: splitCol - contentLen})
	p.Set(position.Position{Line: t.anchor.Line + 2, Column: 0}, position.Delta{Line: -1})
	return p
}

func (t *newlineTx) Update(b *buffer.Block, codec encoding.Codec) (Transaction, error) {
	cp := *t
	return &cp, nil
}

func (t *newlineTx) WithAnchor(a position.Position) Transaction {
	cp := *t
	cp.anchor = a
	return &cp
}

// ---- DeleteBackward ----

type deleteBackwardTx struct {
	anchor     position.Position // position before the deletion
	mergedLine bool              // true if this deleted across a line boundary
	deleted    rune              // captured codepoint, when !mergedLine
	prevLen    uint64            // codepoint length of the previous line before merge, when mergedLine
	curLine    string            // captured content of the current line before merge, when mergedLine
	state      State
	noop       bool
}

// NewDeleteBackward builds a DeleteBackward transaction anchored at pos.
// It must be constructed against the block it will apply to, so it can
// capture the codepoint (or line) it is about to remove.
func NewDeleteBackward(b *buffer.Block, codec encoding.Codec, pos position.Position) (Transaction, error) {
	t := &deleteBackwardTx{anchor: pos}
	if err := t.capture(b, codec); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *deleteBackwardTx) capture(b *buffer.Block, codec encoding.Codec) error {
	line, err := b.Line(t.anchor.Line)
	if err != nil {
		return err
	}
	n := uint64(codec.CodepointCount([]byte(line)))
	col := t.anchor.Column
	if col > n {
		col = n
	}
	if col > 0 {
		view := []byte(line)
		off, size, ok := codec.CodepointAt(view, int(col-1))
		if !ok {
			return corerr.New(corerr.OutOfRange, "codepoint not found for DeleteBackward")
		}
		rs, err := codec.Decode(view[off : off+size])
		if err != nil {
			return err
		}
		t.deleted = rs[0]
		t.mergedLine = false
		return nil
	}
	if t.anchor.Line == 0 {
		t.noop = true
		return nil
	}
	prev, err := b.Line(t.anchor.Line - 1)
	if err != nil {
		return err
	}
	t.mergedLine = true
	t.prevLen = uint64(codec.CodepointCount([]byte(prev)))
	t.curLine = line
	return nil
}

func (t *deleteBackwardTx) Anchor() position.Position { return t.anchor }

func (t *deleteBackwardTx) Apply(b *buffer.Block, codec encoding.Codec) error {
	if t.state == Applied {
		return corerr.New(corerr.InvalidState, "transaction already applied")
	}
	if !t.noop {
		if _, err := edit.DeleteBackward(b, codec, t.anchor); err != nil {
			return err
		}
	}
	t.state = Applied
	return nil
}

func (t *deleteBackwardTx) Rollback(b *buffer.Block, codec encoding.Codec) error {
	if t.state != Applied {
		return corerr.New(corerr.InvalidState, "transaction not applied")
	}
	if t.noop {
		t.state = RolledBack
		return nil
	}
	if !t.mergedLine {
		if _, err := edit.Insert(b, codec, position.Position{Line: t.anchor.Line, Column: t.anchor.Column - 1}, string(t.deleted)); err != nil {
			return err
		}
		t.state = RolledBack
		return nil
	}
	if _, err := edit.Newline(b, codec, position.Position{Line: t.anchor.Line - 1, Column: t.prevLen}, ""); err != nil {
		return err
	}
	t.state = RolledBack
	return nil
}

func (t *deleteBackwardTx) CommitPatch(codec encoding.Codec) *position.Patch {
	p := position.NewPatch()
	if t.noop {
		return p
	}
	if !t.mergedLine {
		p.Set(t.anchor, position.Delta{Column: -1})
		p.Set(position.Position{Line: t.anchor.Line + 1, Column: 0}, position.Delta{})
		return p
	}
	p.Set(t.anchor, position.Delta{Line: -1, Column: int64(t.prevLen)})
	p.Set(position.Position{Line: t.anchor.Line + 1, Column: 0}, position.Delta{Line: -1})
	return p
}

func (t *deleteBackwardTx) RollbackPatch(codec encoding.Codec) *position.Patch {
	p := position.NewPatch()
	if t.noop {
		return p
	}
	if !t.mergedLine {
		origin := position.Position{Line: t.anchor.Line, Column: t.anchor.Column - 1}
		p.Set(origin, position.Delta{Column: 1})
		p.Set(position.Position{Line: t.anchor.Line + 1, Column: 0}, position.Delta{})
		return p
	}
	origin := position.Position{Line: t.anchor.Line - 1, Column: t.prevLen}
	p.Set(origin, position.Delta{Line: 1, Column: -int64(t.prevLen)})
	p.Set(position.Position{Line: t.anchor.Line, Column: 0}, position.Delta{Line: 1})
	return p
}

func (t *deleteBackwardTx) Update(b *buffer.Block, codec encoding.Codec) (Transaction, error) {
	cp := &deleteBackwardTx{anchor: t.anchor}
	if err := cp.capture(b, codec); err != nil {
		return nil, err
	}
	return cp, nil
}

func (t *deleteBackwardTx) WithAnchor(a position.Position) Transaction {
	cp := *t
	cp.anchor = a
	return &cp
}

// ---- DeleteForward ----

type deleteForwardTx struct {
	anchor    position.Position
	mergeNext bool
	deleted   rune
	curLen    uint64 // codepoint length of the anchor line before merge, when mergeNext
	nextLine  string // captured content of the next line before merge, when mergeNext
	state     State
	noop      bool
}

// NewDeleteForward builds a DeleteForward transaction anchored at pos,
// capturing the codepoint (or next line) it is about to remove.
func NewDeleteForward(b *buffer.Block, codec encoding.Codec, pos position.Position) (Transaction, error) {
	t := &deleteForwardTx{anchor: pos}
	if err := t.capture(b, codec); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *deleteForwardTx) capture(b *buffer.Block, codec encoding.Codec) error {
	line, err := b.Line(t.anchor.Line)
	if err != nil {
		return err
	}
	n := uint64(codec.CodepointCount([]byte(line)))
	col := t.anchor.Column
	if col > n {
		col = n
	}
	if col < n {
		view := []byte(line)
		off, size, ok := codec.CodepointAt(view, int(col))
		if !ok {
			return corerr.New(corerr.OutOfRange, "codepoint not found for DeleteForward")
		}
		rs, err := codec.Decode(view[off : off+size])
		if err != nil {
			return err
		}
		t.deleted = rs[0]
		t.mergeNext = false
		return nil
	}
	if t.anchor.Line == b.LastLineIndex() {
		t.noop = true
		return nil
	}
	next, err := b.Line(t.anchor.Line + 1)
	if err != nil {
		return err
	}
	t.mergeNext = true
	t.curLen = n
	t.nextLine = next
	return nil
}

func (t *deleteForwardTx) Anchor() position.Position { return t.anchor }

func (t *deleteForwardTx) Apply(b *buffer.Block, codec encoding.Codec) error {
	if t.state == Applied {
		return corerr.New(corerr.InvalidState, "transaction already applied")
	}
	if !t.noop {
		if _, err := edit.DeleteForward(b, codec, t.anchor); err != nil {
			return err
		}
	}
	t.state = Applied
	return nil
}

func (t *deleteForwardTx) Rollback(b *buffer.Block, codec encoding.Codec) error {
	if t.state != Applied {
		return corerr.New(corerr.InvalidState, "transaction not applied")
	}
	if t.noop {
		t.state = RolledBack
		return nil
	}
	if !t.mergeNext {
		if _, err := edit.Insert(b, codec, t.anchor, string(t.deleted)); err != nil {
			return err
		}
		t.state = RolledBack
		return nil
	}
	if _, err := edit.Newline(b, codec, position.Position{Line: t.anchor.Line, Column: t.curLen}, ""); err != nil {
		return err
	}
	t.state = RolledBack
	return nil
}

func (t *deleteForwardTx) CommitPatch(codec encoding.Codec) *position.Patch {
	p := position.NewPatch()
	if t.noop {
		return p
	}
	if !t.mergeNext {
		next := position.Position{Line: t.anchor.Line, Column: t.anchor.Column + 1}
		p.Set(next, position.Delta{Column: -1})
		p.Set(position.Position{Line: t.anchor.Line + 1, Column: 0}, position.Delta{})
		return p
	}
	p.Set(position.Position{Line: t.anchor.Line + 1, Column: 0}, position.Delta{Line: -1, Column: int64(t.curLen)})
	p.Set(position.Position{Line: t.anchor.Line + 2, Column: 0}, position.Delta{Line: -1})
	return p
}

func (t *deleteForwardTx) RollbackPatch(codec encoding.Codec) *position.Patch {
	p := position.NewPatch()
	if t.noop {
		return p
	}
	if !t.mergeNext {
		p.Set(t.anchor, position.Delta{Column: 1})
		p.Set(position.Position{Line: t.anchor.Line + 1, Column: 0}, position.Delta{})
		return p
	}
	p.Set(t.anchor, position.Delta{Line: 1, Column: -int64(t.curLen)})
	p.Set(position.Position{Line: t.anchor.Line + 1, Column: 0}, position.Delta{Line: 1})
	return p
}

func (t *deleteForwardTx) Update(b *buffer.Block, codec encoding.Codec) (Transaction, error) {
	cp := &deleteForwardTx{anchor: t.anchor}
	if err := cp.capture(b, codec); err != nil {
		return nil, err
	}
	return cp, nil
}

func (t *deleteForwardTx) WithAnchor(a position.Position) Transaction {
	cp := *t
	cp.anchor = a
	return &cp
}

// ---- ClearRegion ----

type clearRegionTx struct {
	from, to position.Position
	captured []string // content read from [from,to) prior to deletion
	state    State
	noop     bool
}

// NewClearRegion builds a ClearRegion transaction spanning [from,to),
// capturing the full text in that range so it can be reversed losslessly.
func NewClearRegion(b *buffer.Block, codec encoding.Codec, from, to position.Position) (Transaction, error) {
	t := &clearRegionTx{from: from, to: to}
	if !from.Less(to) {
		t.noop = true
		return t, nil
	}
	lines, err := edit.Read(b, codec, from, to)
	if err != nil {
		return nil, err
	}
	t.captured = lines
	return t, nil
}

func (t *clearRegionTx) Anchor() position.Position { return t.from }

func (t *clearRegionTx) Apply(b *buffer.Block, codec encoding.Codec) error {
	if t.state == Applied {
		return corerr.New(corerr.InvalidState, "transaction already applied")
	}
	if !t.noop {
		if err := edit.ClearRegion(b, codec, t.from, t.to); err != nil {
			return err
		}
	}
	t.state = Applied
	return nil
}

func (t *clearRegionTx) Rollback(b *buffer.Block, codec encoding.Codec) error {
	if t.state != Applied {
		return corerr.New(corerr.InvalidState, "transaction not applied")
	}
	if !t.noop {
		if err := insertLines(b, codec, t.from, t.captured); err != nil {
			return err
		}
	}
	t.state = RolledBack
	return nil
}

func (t *clearRegionTx) CommitPatch(codec encoding.Codec) *position.Patch {
	p := position.NewPatch()
	if t.noop {
		return p
	}
	if t.from.Line == t.to.Line {
		width := int64(t.to.Column) - int64(t.from.Column)
		p.Set(t.to, position.Delta{Column: -width})
		p.Set(position.Position{Line: t.from.Line + 1, Column: 0}, position.Delta{})
		return p
	}
	// Positions strictly between from.Line and to.Line, and on to.Line
	// before to.Column, collapse onto from.
	for l := t.from.Line + 1; l <= t.to.Line; l++ {
		p.Set(position.Position{Line: l, Column: 0}, position.Delta{
			Line: int64(t.from.Line) - int64(l),
			Column: int64(t.from.Column),
			ColumnReset: true,
		})
	}
	// Positions on to.Line at column >= to.Column fold onto from.Line.
	p.Set(t.to, position.Delta{
		Line:   int64(t.from.Line) - int64(t.to.Line),
		Column: int64(t.from.Column) - int64(t.to.Column),
	})
	p.Set(position.Position{Line: t.to.Line + 1, Column: 0}, position.Delta{
		Line: int64(t.from.Line) - int64(t.to.Line),
	})
	return p
}

func (t *clearRegionTx) RollbackPatch(codec encoding.Codec) *position.Patch {
	p := position.NewPatch()
	if t.noop {
		return p
	}
	if t.from.Line == t.to.Line {
		width := int64(t.to.Column) - int64(t.from.Column)
		p.Set(t.from, position.Delta{Column: width})
		p.Set(position.Position{Line: t.from.Line + 1, Column: 0}, position.Delta{})
		return p
	}
	lastCaptured := t.captured[len(t.captured)-1]
	lastLen := int64(codec.CodepointCount([]byte(lastCaptured)))
	lineShift := int64(t.to.Line) - int64(t.from.Line)
	p.Set(t.from, position.Delta{Line: lineShift, Column: int64(t.to.Column) - int64(t.from.Column)})
	p.Set(position.Position{Line: t.from.Line + 1, Column: 0}, position.Delta{Line: lineShift})
	p.Set(position.Position{Line: t.to.Line, Column: 0}, position.Delta{
		Line:   lineShift,
		Column: int64(t.to.Column) - lastLen,
	})
	return p
}

func (t *clearRegionTx) Update(b *buffer.Block, codec encoding.Codec) (Transaction, error) {
	cp := &clearRegionTx{from: t.from, to: t.to}
	if !t.from.Less(t.to) {
		cp.noop = true
		return cp, nil
	}
	lines, err := edit.Read(b, codec, t.from, t.to)
	if err != nil {
		return nil, err
	}
	cp.captured = lines
	return cp, nil
}

func (t *clearRegionTx) WithAnchor(a position.Position) Transaction {
	delta := position.Position{
		Line:   t.to.Line - t.from.Line,
		Column: t.to.Column,
	}
	cp := *t
	cp.from = a
	if t.to.Line == t.from.Line {
		cp.to = position.Position{Line: a.Line, Column: a.Column + (t.to.Column - t.from.Column)}
	} else {
		cp.to = position.Position{Line: a.Line + delta.Line, Column: delta.Column}
	}
	return &cp
}

// ---- Batch ----

type batchTx struct {
	subs  []Transaction
	state State
}

// NewBatch wraps an ordered sequence of sub-transactions whose patches
// compose sequentially.
func NewBatch(subs ...Transaction) Transaction {
	return &batchTx{subs: subs}
}

func (t *batchTx) Anchor() position.Position {
	if len(t.subs) == 0 {
		return position.Position{}
	}
	return t.subs[0].Anchor()
}

func (t *batchTx) Apply(b *buffer.Block, codec encoding.Codec) error {
	if t.state == Applied {
		return corerr.New(corerr.InvalidState, "transaction already applied")
	}
	for _, s := range t.subs {
		if err := s.Apply(b, codec); err != nil {
			return err
		}
	}
	t.state = Applied
	return nil
}

func (t *batchTx) Rollback(b *buffer.Block, codec encoding.Codec) error {
	if t.state != Applied {
		return corerr.New(corerr.InvalidState, "transaction not applied")
	}
	for i := len(t.subs) - 1; i >= 0; i-- {
		if err := t.subs[i].Rollback(b, codec); err != nil {
			return err
		}
	}
	t.state = RolledBack
	return nil
}

func (t *batchTx) CommitPatch(codec encoding.Codec) *position.Patch {
	p := position.NewPatch()
	for _, s := range t.subs {
		p = position.Compose(p, s.CommitPatch(codec))
	}
	return p
}

func (t *batchTx) RollbackPatch(codec encoding.Codec) *position.Patch {
	p := position.NewPatch()
	for i := len(t.subs) - 1; i >= 0; i-- {
		p = position.Compose(p, t.subs[i].RollbackPatch(codec))
	}
	return p
}

func (t *batchTx) Update(b *buffer.Block, codec encoding.Codec) (Transaction, error) {
	cp := &batchTx{subs: make([]Transaction, len(t.subs))}
	for i, s := range t.subs {
		u, err := s.Update(b, codec)
		if err != nil {
			return nil, err
		}
		cp.subs[i] = u
	}
	return cp, nil
}

func (t *batchTx) WithAnchor(a position.Position) Transaction {
	if len(t.subs) == 0 {
		return t
	}
	cp := &batchTx{subs: make([]Transaction, len(t.subs))}
	copy(cp.subs, t.subs)
	cp.subs[0] = t.subs[0].WithAnchor(a)
	return cp
}
