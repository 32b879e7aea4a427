// Package position implements TextPosition and PatchMap (spec C2): the
// (line, column) identifier used throughout the editing core and the delta
// map a transaction produces to describe how later positions shift.
package position

import "sort"

// Position is a (line, column) pair. Column counts codepoints, never bytes.
type Position struct {
	Line   uint64
	Column uint64
}

// Max is the sentinel position greater than any real position.
var Max = Position{Line: ^uint64(0), Column: ^uint64(0)}

// Less reports whether p sorts strictly before o, lexicographically by
// line then column.
func (p Position) Less(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

// LessEqual reports p <= o.
func (p Position) LessEqual(o Position) bool {
	return p == o || p.Less(o)
}

// Delta is a signed shift applied to a position at or after a patch's
// origin. Line and Column deltas are applied independently; a negative
// value shifts toward zero, and a result below zero clamps at zero.
type Delta struct {
	Line       int64
	Column     int64
	// ColumnReset, when true, means the column component is not a delta
	// relative to the old column but an absolute replacement (used when a
	// position's line changes and its column must be recomputed relative
	// to a different line, e.g. a ClearRegion join).
	ColumnReset bool
}

// Apply returns p shifted by d. If ColumnReset is set, the resulting
// column is taken directly from d.Column rather than added to p.Column.
func (d Delta) Apply(p Position) Position {
	out := p
	out.Line = addSigned(p.Line, d.Line)
	if d.ColumnReset {
		out.Column = uint64(d.Column)
	} else {
		out.Column = addSigned(p.Column, d.Column)
	}
	return out
}

func addSigned(base uint64, delta int64) uint64 {
	if delta < 0 {
		dec := uint64(-delta)
		if dec > base {
			return 0
		}
		return base - dec
	}
	return base + uint64(delta)
}

// entry is one (origin, delta) pair in a Patch, kept sorted by origin.
type entry struct {
	origin Position
	delta  Delta
}

// Patch maps a position to the delta that should be applied to any
// position at or after the patch's origin. A patch never modifies
// positions strictly before its origin (spec.md §3).
type Patch struct {
	entries []entry
}

// NewPatch builds an empty patch.
func NewPatch() *Patch {
	return &Patch{}
}

// Set records that positions at or after origin shift by delta. Later
// calls with a higher origin take precedence over the range they cover;
// Set must be called in ascending origin order (the multiplexer and
// transaction implementations guarantee this).
func (p *Patch) Set(origin Position, delta Delta) {
	p.entries = append(p.entries, entry{origin: origin, delta: delta})
}

// Has reports whether pos is covered by any origin in the patch (i.e. pos
// is at or after the patch's lowest origin).
func (p *Patch) Has(pos Position) bool {
	return p.find(pos) >= 0
}

// find returns the index of the last entry whose origin is <= pos, or -1.
func (p *Patch) find(pos Position) int {
	idx := sort.Search(len(p.entries), func(i int) bool {
		return pos.Less(p.entries[i].origin)
	})
	idx--
	if idx < 0 {
		return -1
	}
	return idx
}

// At returns the delta that applies to pos, or the zero Delta if pos is
// before every origin in the patch.
func (p *Patch) At(pos Position) Delta {
	idx := p.find(pos)
	if idx < 0 {
		return Delta{}
	}
	return p.entries[idx].delta
}

// Apply rebases pos through the patch.
func (p *Patch) Apply(pos Position) Position {
	idx := p.find(pos)
	if idx < 0 {
		return pos
	}
	return p.entries[idx].delta.Apply(pos)
}

// Compose returns a new patch equivalent to applying p then q in sequence:
// for every position covered by either, Compose(p, q).Apply(pos) ==
// q.Apply(p.Apply(pos)).
func Compose(p, q *Patch) *Patch {
	out := NewPatch()
	origins := make(map[Position]struct{}, len(p.entries)+len(q.entries))
	for _, e := range p.entries {
		origins[e.origin] = struct{}{}
	}
	for _, e := range q.entries {
		origins[e.origin] = struct{}{}
	}
	sorted := make([]Position, 0, len(origins))
	for o := range origins {
		sorted = append(sorted, o)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })
	for _, origin := range sorted {
		shifted := p.Apply(origin)
		shifted = q.Apply(shifted)
		out.Set(origin, Delta{
			Line:        int64(shifted.Line) - int64(origin.Line),
			Column:      int64(shifted.Column) - int64(origin.Column),
			ColumnReset: true,
		})
		// Store column as an absolute recomputation: ColumnReset entries
		// always carry the destination column directly.
		out.entries[len(out.entries)-1].delta.Column = int64(shifted.Column)
	}
	return out
}

// Identity reports whether the patch has no effect on any position it
// covers (used by invariant checks: rollback_patch(commit_patch(p)) == p).
func (p *Patch) Identity() bool {
	for _, e := range p.entries {
		if e.delta.Line != 0 {
			return false
		}
		if e.delta.ColumnReset {
			if e.delta.Column != int64(e.origin.Column) {
				return false
			}
		} else if e.delta.Column != 0 {
			return false
		}
	}
	return true
}
