package cursor

import (
	"testing"

	"github.com/sloked-go/sloked/internal/buffer"
	"github.com/sloked-go/sloked/internal/encoding"
	"github.com/sloked-go/sloked/internal/multiplex"
	"github.com/sloked-go/sloked/internal/position"
	"github.com/sloked-go/sloked/internal/transaction"
)

func TestCursorTracksItsOwnEdits(t *testing.T) {
	m := multiplex.New(buffer.New([]string{""}), encoding.UTF8{})
	s := m.OpenStream("a")
	c := New(m.Block(), m.Codec(), s)
	defer c.Close()

	pos, err := c.Insert("hello")
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	want := position.Position{Line: 0, Column: 5}
	if pos != want {
		t.Fatalf("pos = %+v, want %+v", pos, want)
	}
	if c.Position() != want {
		t.Fatalf("Position() = %+v, want %+v", c.Position(), want)
	}
}

// TestCursorRebasesOnOtherStreamsCommits exercises spec.md §8's "cursor
// tracking" property: a cursor parked past an edit made by another
// stream must shift with it.
func TestCursorRebasesOnOtherStreamsCommits(t *testing.T) {
	m := multiplex.New(buffer.New([]string{"world"}), encoding.UTF8{})
	a := m.OpenStream("a")
	b := m.OpenStream("b")

	ca := New(m.Block(), m.Codec(), a)
	defer ca.Close()
	cb := New(m.Block(), m.Codec(), b)
	defer cb.Close()

	ca.SetPosition(0, 5) // parked at end of "world"

	if _, err := b.Commit(transaction.NewInsert(position.Position{Line: 0, Column: 0}, "hello ")); err != nil {
		t.Fatalf("commit: %v", err)
	}

	want := position.Position{Line: 0, Column: 11}
	if ca.Position() != want {
		t.Fatalf("ca.Position() after b's insert = %+v, want %+v", ca.Position(), want)
	}
}

func TestCursorUndoRedoMovesWithStream(t *testing.T) {
	m := multiplex.New(buffer.New([]string{""}), encoding.UTF8{})
	s := m.OpenStream("a")
	c := New(m.Block(), m.Codec(), s)
	defer c.Close()

	c.Insert("abc")
	if _, err := c.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if want := (position.Position{}); c.Position() != want {
		t.Fatalf("Position() after undo = %+v, want %+v", c.Position(), want)
	}

	if _, err := c.Redo(); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if want := (position.Position{Line: 0, Column: 3}); c.Position() != want {
		t.Fatalf("Position() after redo = %+v, want %+v", c.Position(), want)
	}
}

func TestMoveClampsToLineBounds(t *testing.T) {
	m := multiplex.New(buffer.New([]string{"abc", "de"}), encoding.UTF8{})
	s := m.OpenStream("a")
	c := New(m.Block(), m.Codec(), s)
	defer c.Close()

	c.SetPosition(0, 3)
	if pos := c.MoveDown(1); pos != (position.Position{Line: 1, Column: 2}) {
		t.Fatalf("MoveDown clamped column = %+v, want {1 2}", pos)
	}
	if pos := c.MoveDown(5); pos != (position.Position{Line: 1, Column: 2}) {
		t.Fatalf("MoveDown past last line = %+v, want clamped at last line", pos)
	}
}
