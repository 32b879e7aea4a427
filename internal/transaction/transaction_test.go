package transaction

import (
	"testing"

	"github.com/sloked-go/sloked/internal/buffer"
	"github.com/sloked-go/sloked/internal/encoding"
	"github.com/sloked-go/sloked/internal/position"
)

// commitRollbackRoundtrips applies t to b, then rolls it back, and
// asserts the block returns to its original snapshot and that
// composing commit then rollback patches is the identity on every
// position they cover (spec.md §8, "commit/rollback patch duality").
func commitRollbackRoundtrips(t *testing.T, b *buffer.Block, codec encoding.Codec, tx Transaction) {
	t.Helper()
	before := b.Snapshot()

	commit := tx.CommitPatch(codec)
	if err := tx.Apply(b, codec); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	rollback := tx.RollbackPatch(codec)
	if err := tx.Rollback(b, codec); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	after := b.Snapshot()
	if len(before) != len(after) {
		t.Fatalf("line count changed: before=%d after=%d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("line %d = %q after roundtrip, want %q", i, after[i], before[i])
		}
	}

	composed := position.Compose(commit, rollback)
	if !composed.Identity() {
		t.Fatalf("compose(commit, rollback) is not the identity patch")
	}
}

func TestInsertRoundtrip(t *testing.T) {
	b := buffer.New([]string{"hello"})
	codec := encoding.UTF8{}
	tx := NewInsert(position.Position{Line: 0, Column: 2}, "XYZ")
	commitRollbackRoundtrips(t, b, codec, tx)
}

func TestNewlineRoundtrip(t *testing.T) {
	b := buffer.New([]string{"hello world"})
	codec := encoding.UTF8{}
	tx := NewNewline(position.Position{Line: 0, Column: 5}, "")
	commitRollbackRoundtrips(t, b, codec, tx)
}

func TestDeleteBackwardRoundtrip(t *testing.T) {
	b := buffer.New([]string{"foo", "bar"})
	codec := encoding.UTF8{}
	tx, err := NewDeleteBackward(b, codec, position.Position{Line: 1, Column: 0})
	if err != nil {
		t.Fatalf("NewDeleteBackward: %v", err)
	}
	commitRollbackRoundtrips(t, b, codec, tx)
}

func TestDeleteForwardRoundtrip(t *testing.T) {
	b := buffer.New([]string{"foo", "bar"})
	codec := encoding.UTF8{}
	tx, err := NewDeleteForward(b, codec, position.Position{Line: 0, Column: 3})
	if err != nil {
		t.Fatalf("NewDeleteForward: %v", err)
	}
	commitRollbackRoundtrips(t, b, codec, tx)
}

func TestClearRegionRoundtrip(t *testing.T) {
	b := buffer.New([]string{"abcdef", "ghijkl", "mnopqr"})
	codec := encoding.UTF8{}
	tx, err := NewClearRegion(b, codec,
		position.Position{Line: 0, Column: 3}, position.Position{Line: 2, Column: 2})
	if err != nil {
		t.Fatalf("NewClearRegion: %v", err)
	}
	commitRollbackRoundtrips(t, b, codec, tx)
}

func TestBatchRoundtrip(t *testing.T) {
	b := buffer.New([]string{"hello"})
	codec := encoding.UTF8{}
	tx := NewBatch(
		NewInsert(position.Position{Line: 0, Column: 0}, "A"),
		NewInsert(position.Position{Line: 0, Column: 6}, "B"),
	)
	commitRollbackRoundtrips(t, b, codec, tx)
}

func TestInsertCommitPatchShiftsLaterColumn(t *testing.T) {
	b := buffer.New([]string{"hello"})
	codec := encoding.UTF8{}
	tx := NewInsert(position.Position{Line: 0, Column: 2}, "XY")
	patch := tx.CommitPatch(codec)

	got := patch.Apply(position.Position{Line: 0, Column: 4})
	want := position.Position{Line: 0, Column: 6}
	if got != want {
		t.Fatalf("patch.Apply = %+v, want %+v", got, want)
	}

	// A position before the insert on the same line is untouched.
	untouched := position.Position{Line: 0, Column: 0}
	if patch.Has(untouched) {
		t.Fatalf("patch should not cover a position before the insert")
	}
}
