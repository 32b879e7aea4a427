package edit

import (
	"testing"

	"github.com/sloked-go/sloked/internal/buffer"
	"github.com/sloked-go/sloked/internal/encoding"
	"github.com/sloked-go/sloked/internal/position"
)

func TestInsertMidLine(t *testing.T) {
	b := buffer.New([]string{"hello"})
	pos, err := Insert(b, encoding.UTF8{}, position.Position{Line: 0, Column: 2}, "XY")
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if got, _ := b.Line(0); got != "heXYllo" {
		t.Fatalf("line = %q, want %q", got, "heXYllo")
	}
	if want := (position.Position{Line: 0, Column: 4}); pos != want {
		t.Fatalf("pos = %+v, want %+v", pos, want)
	}
}

func TestNewlineSplitsLine(t *testing.T) {
	b := buffer.New([]string{"hello world"})
	pos, err := Newline(b, encoding.UTF8{}, position.Position{Line: 0, Column: 5}, "")
	if err != nil {
		t.Fatalf("Newline: %v", err)
	}
	if got, _ := b.Line(0); got != "hello" {
		t.Fatalf("line 0 = %q, want %q", got, "hello")
	}
	if got, _ := b.Line(1); got != " world" {
		t.Fatalf("line 1 = %q, want %q", got, " world")
	}
	if want := (position.Position{Line: 1, Column: 0}); pos != want {
		t.Fatalf("pos = %+v, want %+v", pos, want)
	}
}

func TestDeleteBackwardMergesLines(t *testing.T) {
	b := buffer.New([]string{"foo", "bar"})
	pos, err := DeleteBackward(b, encoding.UTF8{}, position.Position{Line: 1, Column: 0})
	if err != nil {
		t.Fatalf("DeleteBackward: %v", err)
	}
	if b.LastLineIndex() != 0 {
		t.Fatalf("expected lines merged, last index = %d", b.LastLineIndex())
	}
	if got, _ := b.Line(0); got != "foobar" {
		t.Fatalf("line = %q, want %q", got, "foobar")
	}
	if want := (position.Position{Line: 0, Column: 3}); pos != want {
		t.Fatalf("pos = %+v, want %+v", pos, want)
	}
}

func TestDeleteBackwardAtOriginIsNoOp(t *testing.T) {
	b := buffer.New([]string{"abc"})
	pos, err := DeleteBackward(b, encoding.UTF8{}, position.Position{Line: 0, Column: 0})
	if err != nil {
		t.Fatalf("DeleteBackward: %v", err)
	}
	if got, _ := b.Line(0); got != "abc" {
		t.Fatalf("line mutated at origin: %q", got)
	}
	if want := (position.Position{}); pos != want {
		t.Fatalf("pos = %+v, want zero", pos)
	}
}

func TestDeleteForwardMergesLines(t *testing.T) {
	b := buffer.New([]string{"foo", "bar"})
	pos, err := DeleteForward(b, encoding.UTF8{}, position.Position{Line: 0, Column: 3})
	if err != nil {
		t.Fatalf("DeleteForward: %v", err)
	}
	if b.LastLineIndex() != 0 {
		t.Fatalf("expected lines merged, last index = %d", b.LastLineIndex())
	}
	if got, _ := b.Line(0); got != "foobar" {
		t.Fatalf("line = %q, want %q", got, "foobar")
	}
	if want := (position.Position{Line: 0, Column: 3}); pos != want {
		t.Fatalf("pos = %+v, want %+v", pos, want)
	}
}

func TestClearRegionAcrossLines(t *testing.T) {
	b := buffer.New([]string{"abcdef", "ghijkl", "mnopqr"})
	err := ClearRegion(b, encoding.UTF8{},
		position.Position{Line: 0, Column: 3},
		position.Position{Line: 2, Column: 2})
	if err != nil {
		t.Fatalf("ClearRegion: %v", err)
	}
	if b.LastLineIndex() != 0 {
		t.Fatalf("expected boundary lines joined into one, last index = %d", b.LastLineIndex())
	}
	if got, _ := b.Line(0); got != "abcopqr" {
		t.Fatalf("line = %q, want %q", got, "abcopqr")
	}
}

func TestReadIsDualOfClearRegion(t *testing.T) {
	b := buffer.New([]string{"abcdef", "ghijkl", "mnopqr"})
	from := position.Position{Line: 0, Column: 3}
	to := position.Position{Line: 2, Column: 2}

	lines, err := Read(b, encoding.UTF8{}, from, to)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []string{"def", "ghijkl", "mn"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("lines[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}
