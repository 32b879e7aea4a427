// Package edit implements the pure editing primitives (spec C4): Insert,
// Newline, DeleteBackward, DeleteForward, ClearRegion and Read, each
// operating on a buffer.Block through an encoding.Codec and returning the
// resulting cursor position. DeleteBackward, DeleteForward, ClearRegion
// and Read clamp their input positions to the nearest valid position.
// Insert and Newline clamp only the column; a line past the end of the
// block is an OutOfRange error.
package edit

import (
	"strings"

	"github.com/sloked-go/sloked/internal/buffer"
	"github.com/sloked-go/sloked/internal/encoding"
	"github.com/sloked-go/sloked/internal/position"
)

// clampLine clamps l to the block's valid line range.
func clampLine(b *buffer.Block, l uint64) uint64 {
	if last := b.LastLineIndex(); l > last {
		return last
	}
	return l
}

// clampColumn clamps c to [0, codepointCount(line)].
func clampColumn(codec encoding.Codec, line string, c uint64) uint64 {
	n := uint64(codec.CodepointCount([]byte(line)))
	if c > n {
		return n
	}
	return c
}

// sliceCodepoints returns the codepoint substring [from, to) of line.
func sliceCodepoints(codec encoding.Codec, line string, from, to uint64) string {
	view := []byte(line)
	n := uint64(codec.CodepointCount(view))
	if from > n {
		from = n
	}
	if to > n {
		to = n
	}
	if from >= to {
		return ""
	}
	startOff, _, ok := codec.CodepointAt(view, int(from))
	if !ok {
		return ""
	}
	var endOff int
	if to == n {
		endOff = len(view)
	} else {
		endOff, _, ok = codec.CodepointAt(view, int(to))
		if !ok {
			endOff = len(view)
		}
	}
	return string(view[startOff:endOff])
}

// Insert inserts content into line(pos.line) at codepoint offset
// pos.column, clamped. Returns the position immediately after the
// inserted content.
func Insert(b *buffer.Block, codec encoding.Codec, pos position.Position, content string) (position.Position, error) {
	line, err := b.Line(pos.Line)
	if err != nil {
		return pos, err
	}
	col := clampColumn(codec, line, pos.Column)
	left := sliceCodepoints(codec, line, 0, col)
	right := sliceCodepoints(codec, line, col, uint64(codec.CodepointCount([]byte(line))))
	if err := b.SetLine(pos.Line, left+content+right); err != nil {
		return pos, err
	}
	return position.Position{Line: pos.Line, Column: col + uint64(codec.CodepointCount([]byte(content)))}, nil
}

// Newline splits line(pos.line) at pos.column into left and right,
// replacing that line with left and inserting a new line content+right
// immediately after.
func Newline(b *buffer.Block, codec encoding.Codec, pos position.Position, content string) (position.Position, error) {
	line, err := b.Line(pos.Line)
	if err != nil {
		return pos, err
	}
	col := clampColumn(codec, line, pos.Column)
	n := uint64(codec.CodepointCount([]byte(line)))
	left := sliceCodepoints(codec, line, 0, col)
	right := sliceCodepoints(codec, line, col, n)
	if err := b.SetLine(pos.Line, left); err != nil {
		return pos, err
	}
	if err := b.InsertLine(pos.Line+1, content+right); err != nil {
		return pos, err
	}
	return position.Position{Line: pos.Line + 1, Column: 0}, nil
}

// DeleteBackward removes the codepoint before pos. If pos.column == 0 and
// pos.line > 0, it merges the current line into the previous one. No-op
// at (0,0).
func DeleteBackward(b *buffer.Block, codec encoding.Codec, pos position.Position) (position.Position, error) {
	pos.Line = clampLine(b, pos.Line)
	line, err := b.Line(pos.Line)
	if err != nil {
		return pos, err
	}
	col := clampColumn(codec, line, pos.Column)
	if col > 0 {
		n := uint64(codec.CodepointCount([]byte(line)))
		left := sliceCodepoints(codec, line, 0, col-1)
		right := sliceCodepoints(codec, line, col, n)
		if err := b.SetLine(pos.Line, left+right); err != nil {
			return pos, err
		}
		return position.Position{Line: pos.Line, Column: col - 1}, nil
	}
	if pos.Line == 0 {
		return position.Position{Line: 0, Column: 0}, nil
	}
	prev, err := b.Line(pos.Line - 1)
	if err != nil {
		return pos, err
	}
	prevLen := uint64(codec.CodepointCount([]byte(prev)))
	if err := b.SetLine(pos.Line-1, prev+line); err != nil {
		return pos, err
	}
	if err := b.EraseLine(pos.Line); err != nil {
		return pos, err
	}
	return position.Position{Line: pos.Line - 1, Column: prevLen}, nil
}

// DeleteForward removes the codepoint at pos (dual of DeleteBackward). At
// end-of-line it merges the next line in; no-op at the last position in
// the block.
func DeleteForward(b *buffer.Block, codec encoding.Codec, pos position.Position) (position.Position, error) {
	pos.Line = clampLine(b, pos.Line)
	line, err := b.Line(pos.Line)
	if err != nil {
		return pos, err
	}
	n := uint64(codec.CodepointCount([]byte(line)))
	col := clampColumn(codec, line, pos.Column)
	if col < n {
		left := sliceCodepoints(codec, line, 0, col)
		right := sliceCodepoints(codec, line, col+1, n)
		if err := b.SetLine(pos.Line, left+right); err != nil {
			return pos, err
		}
		return position.Position{Line: pos.Line, Column: col}, nil
	}
	if pos.Line == b.LastLineIndex() {
		return position.Position{Line: pos.Line, Column: col}, nil
	}
	next, err := b.Line(pos.Line + 1)
	if err != nil {
		return pos, err
	}
	if err := b.SetLine(pos.Line, line+next); err != nil {
		return pos, err
	}
	if err := b.EraseLine(pos.Line + 1); err != nil {
		return pos, err
	}
	return position.Position{Line: pos.Line, Column: col}, nil
}

// ClearRegion removes [from, to). If from >= to it is a no-op. Lines
// strictly between from.line and to.line are erased entirely; the
// boundary lines are joined.
func ClearRegion(b *buffer.Block, codec encoding.Codec, from, to position.Position) error {
	if !from.Less(to) {
		return nil
	}
	from.Line = clampLine(b, from.Line)
	to.Line = clampLine(b, to.Line)
	if to.Line < from.Line || (to.Line == from.Line && to.Column <= from.Column) {
		return nil
	}

	fromLine, err := b.Line(from.Line)
	if err != nil {
		return err
	}
	fromCol := clampColumn(codec, fromLine, from.Column)

	if from.Line == to.Line {
		toCol := clampColumn(codec, fromLine, to.Column)
		n := uint64(codec.CodepointCount([]byte(fromLine)))
		left := sliceCodepoints(codec, fromLine, 0, fromCol)
		right := sliceCodepoints(codec, fromLine, toCol, n)
		return b.SetLine(from.Line, left+right)
	}

	toLine, err := b.Line(to.Line)
	if err != nil {
		return err
	}
	toCol := clampColumn(codec, toLine, to.Column)
	toN := uint64(codec.CodepointCount([]byte(toLine)))
	left := sliceCodepoints(codec, fromLine, 0, fromCol)
	right := sliceCodepoints(codec, toLine, toCol, toN)
	if err := b.SetLine(from.Line, left+right); err != nil {
		return err
	}
	for l := to.Line; l > from.Line; l-- {
		if err := b.EraseLine(l); err != nil {
			return err
		}
	}
	return nil
}

// Read returns the lines spanning [from, to), with the first and last
// possibly partial (dual of ClearRegion).
func Read(b *buffer.Block, codec encoding.Codec, from, to position.Position) ([]string, error) {
	if !from.Less(to) {
		return nil, nil
	}
	from.Line = clampLine(b, from.Line)
	to.Line = clampLine(b, to.Line)

	if from.Line == to.Line {
		line, err := b.Line(from.Line)
		if err != nil {
			return nil, err
		}
		fromCol := clampColumn(codec, line, from.Column)
		toCol := clampColumn(codec, line, to.Column)
		if fromCol >= toCol {
			return []string{""}, nil
		}
		return []string{sliceCodepoints(codec, line, fromCol, toCol)}, nil
	}

	out := make([]string, 0, to.Line-from.Line+1)
	fromLine, err := b.Line(from.Line)
	if err != nil {
		return nil, err
	}
	fromCol := clampColumn(codec, fromLine, from.Column)
	fromN := uint64(codec.CodepointCount([]byte(fromLine)))
	out = append(out, sliceCodepoints(codec, fromLine, fromCol, fromN))

	if err := b.Visit(from.Line+1, to.Line, func(line string) {
		out = append(out, line)
	}); err != nil {
		return nil, err
	}

	toLine, err := b.Line(to.Line)
	if err != nil {
		return nil, err
	}
	toCol := clampColumn(codec, toLine, to.Column)
	out = append(out, sliceCodepoints(codec, toLine, 0, toCol))
	return out, nil
}

// JoinedLen returns the codepoint length of the string that would result
// from concatenating lines with no separator (used by transaction
// construction to size commit patches without materializing the join).
func JoinedLen(codec encoding.Codec, lines []string) uint64 {
	var total uint64
	for _, l := range lines {
		total += uint64(codec.CodepointCount([]byte(l)))
	}
	return total
}

// Join concatenates lines without separators.
func Join(lines []string) string {
	return strings.Join(lines, "")
}
