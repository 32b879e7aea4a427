package position

import "testing"

func TestPositionLessOrdersByLineThenColumn(t *testing.T) {
	a := Position{Line: 1, Column: 5}
	b := Position{Line: 2, Column: 0}
	if !a.Less(b) {
		t.Fatalf("expected %+v < %+v", a, b)
	}
	c := Position{Line: 1, Column: 9}
	if !a.Less(c) {
		t.Fatalf("expected %+v < %+v (same line, higher column)", a, c)
	}
	if b.Less(a) {
		t.Fatalf("did not expect %+v < %+v", b, a)
	}
}

func TestPositionLessEqual(t *testing.T) {
	p := Position{Line: 3, Column: 4}
	if !p.LessEqual(p) {
		t.Fatalf("expected a position to be LessEqual itself")
	}
}

func TestDeltaApplyShiftsColumn(t *testing.T) {
	p := Position{Line: 0, Column: 5}
	d := Delta{Column: 3}
	if got := d.Apply(p); got != (Position{Line: 0, Column: 8}) {
		t.Fatalf("Apply = %+v, want {0 8}", got)
	}
}

func TestDeltaApplyClampsNegativeColumnAtZero(t *testing.T) {
	p := Position{Line: 0, Column: 2}
	d := Delta{Column: -5}
	if got := d.Apply(p); got != (Position{Line: 0, Column: 0}) {
		t.Fatalf("Apply = %+v, want clamped to column 0", got)
	}
}

func TestDeltaApplyColumnResetReplacesRatherThanShifts(t *testing.T) {
	p := Position{Line: 2, Column: 99}
	d := Delta{Line: -1, Column: 4, ColumnReset: true}
	got := d.Apply(p)
	if got != (Position{Line: 1, Column: 4}) {
		t.Fatalf("Apply = %+v, want {1 4}", got)
	}
}

func TestPatchAppliesOnlyAtOrAfterOrigin(t *testing.T) {
	patch := NewPatch()
	patch.Set(Position{Line: 0, Column: 5}, Delta{Column: 3})

	before := Position{Line: 0, Column: 2}
	if got := patch.Apply(before); got != before {
		t.Fatalf("Apply before origin = %+v, want unchanged %+v", got, before)
	}

	at := Position{Line: 0, Column: 5}
	if got := patch.Apply(at); got != (Position{Line: 0, Column: 8}) {
		t.Fatalf("Apply at origin = %+v, want {0 8}", got)
	}

	after := Position{Line: 0, Column: 10}
	if got := patch.Apply(after); got != (Position{Line: 0, Column: 13}) {
		t.Fatalf("Apply after origin = %+v, want {0 13}", got)
	}
}

func TestPatchHasReportsCoverage(t *testing.T) {
	patch := NewPatch()
	patch.Set(Position{Line: 1, Column: 0}, Delta{Column: 1})

	if patch.Has(Position{Line: 0, Column: 99}) {
		t.Fatalf("Has should be false before the patch's lowest origin")
	}
	if !patch.Has(Position{Line: 1, Column: 0}) {
		t.Fatalf("Has should be true at the origin")
	}
}

func TestPatchWithMultipleOriginsPicksTheLatestCoveringOne(t *testing.T) {
	patch := NewPatch()
	patch.Set(Position{Line: 0, Column: 0}, Delta{Column: 1})
	patch.Set(Position{Line: 0, Column: 10}, Delta{Column: 100})

	got := patch.Apply(Position{Line: 0, Column: 15})
	if got != (Position{Line: 0, Column: 115}) {
		t.Fatalf("Apply = %+v, want the later origin's delta applied", got)
	}
}

func TestComposeMatchesSequentialApplication(t *testing.T) {
	p := NewPatch()
	p.Set(Position{Line: 0, Column: 0}, Delta{Column: 3})
	q := NewPatch()
	q.Set(Position{Line: 0, Column: 0}, Delta{Column: 2})

	composed := Compose(p, q)

	origin := Position{Line: 0, Column: 0}
	want := q.Apply(p.Apply(origin))
	if got := composed.Apply(origin); got != want {
		t.Fatalf("Compose(p,q).Apply(origin) = %+v, want %+v", got, want)
	}
}

func TestIdentityReportsNoEffect(t *testing.T) {
	noop := NewPatch()
	noop.Set(Position{Line: 0, Column: 0}, Delta{})
	if !noop.Identity() {
		t.Fatalf("expected an all-zero-delta patch to be Identity")
	}

	mutating := NewPatch()
	mutating.Set(Position{Line: 0, Column: 0}, Delta{Column: 1})
	if mutating.Identity() {
		t.Fatalf("expected a patch with a nonzero delta to not be Identity")
	}
}

func TestIdentityHandlesColumnResetEntries(t *testing.T) {
	origin := Position{Line: 2, Column: 7}
	noop := NewPatch()
	noop.Set(origin, Delta{Column: int64(origin.Column), ColumnReset: true})
	if !noop.Identity() {
		t.Fatalf("a ColumnReset entry resetting to its own origin column should be Identity")
	}

	mutating := NewPatch()
	mutating.Set(origin, Delta{Column: 0, ColumnReset: true})
	if mutating.Identity() {
		t.Fatalf("a ColumnReset entry to a different column should not be Identity")
	}
}
