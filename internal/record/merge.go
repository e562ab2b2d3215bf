package record

import (
	"math"
	"strings"

	"github.com/labwise/medextract/internal/schema"
)

// Merger folds extraction results from the three layers into a record,
// resolving conflicts by category priority and keeping a ledger of every
// disagreement. Merging the same values again is a no-op.
type Merger struct {
	// NumericTolerance is the absolute difference at or below which two
	// numeric values count as agreeing.
	NumericTolerance float64
}

// NewMerger returns a merger with the given agreement tolerance.
func NewMerger(tolerance float64) *Merger {
	return &Merger{NumericTolerance: tolerance}
}

// rank orders sources per field category. Higher wins. Numeric and enum
// values trust the pattern layer over inference; narrative and identity
// fields read the other way, since free text defeats regexes.
func rank(cat schema.Category, src Source) int {
	switch cat {
	case schema.Numeric, schema.Enum:
		switch src {
		case SourceDeterministic:
			return 3
		case SourceExternal:
			return 2
		default:
			return 1
		}
	default: // Narrative, Identity
		switch src {
		case SourceExternal:
			return 3
		case SourceDeterministic:
			return 2
		default:
			return 1
		}
	}
}

// Merge folds one value into the record. Sealed records reject writes.
func (m *Merger) Merge(r *Record, v FieldValue) {
	if r.sealed || v.Name == "" {
		return
	}
	if v.Number == nil && strings.TrimSpace(v.Text) == "" {
		return
	}

	def, ok := schema.Lookup(v.Name)
	if !ok {
		return
	}

	cur, exists := r.values[v.Name]
	if !exists {
		r.values[v.Name] = v
		r.markSource(v.Name, v.Source)
		return
	}

	if m.agree(cur, v) {
		// Same value from another layer: record the corroboration and
		// keep whichever flag is set.
		r.markSource(v.Name, v.Source)
		if cur.Flag == FlagNone && v.Flag != FlagNone {
			cur.Flag = v.Flag
			r.values[v.Name] = cur
		}
		return
	}

	curRank, newRank := rank(def.Category, cur.Source), rank(def.Category, v.Source)
	switch {
	case newRank > curRank:
		r.values[v.Name] = v
		r.resetSource(v.Name, v.Source)
		r.ledger(Conflict{Field: v.Name, Kept: v, Rejected: cur})
	case newRank < curRank:
		r.ledger(Conflict{Field: v.Name, Kept: cur, Rejected: v})
	default:
		// Equal rank. Narrative fields concatenate distinct values so a
		// remark on page 3 does not erase the remark on page 1; anything
		// else keeps the first writer and ledgers the loser.
		if def.Category == schema.Narrative {
			cur.Text = cur.String() + " | " + v.String()
			cur.Number = nil
			r.values[v.Name] = cur
			r.markSource(v.Name, v.Source)
			return
		}
		r.ledger(Conflict{Field: v.Name, Kept: cur, Rejected: v})
	}
}

// MergeAll folds a batch of values from one layer.
func (m *Merger) MergeAll(r *Record, vals []FieldValue) {
	for _, v := range vals {
		m.Merge(r, v)
	}
}

// agree reports whether two values for the same field match: numerics within
// the absolute tolerance (a difference of exactly the tolerance still
// agrees), text after trimming and case folding.
func (m *Merger) agree(a, b FieldValue) bool {
	if a.Number != nil && b.Number != nil {
		return math.Abs(*a.Number-*b.Number) <= m.NumericTolerance
	}
	if a.Number != nil || b.Number != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(a.Text), strings.TrimSpace(b.Text))
}

// ledger records a disagreement once. Re-merging the identical losing
// contribution must not grow the ledger, so the whole merge stays idempotent.
func (r *Record) ledger(c Conflict) {
	for _, e := range r.conflicts {
		if e.Field == c.Field && sameValue(e.Kept, c.Kept) && sameValue(e.Rejected, c.Rejected) {
			return
		}
	}
	r.conflicts = append(r.conflicts, c)
}

func sameValue(a, b FieldValue) bool {
	if a.Source != b.Source || a.Text != b.Text {
		return false
	}
	if (a.Number == nil) != (b.Number == nil) {
		return false
	}
	return a.Number == nil || *a.Number == *b.Number
}

func (r *Record) markSource(name string, s Source) {
	set := r.sources[name]
	if set == nil {
		set = make(map[Source]bool, 2)
		r.sources[name] = set
	}
	set[s] = true
}

// resetSource replaces the source set when a higher-priority value displaces
// the current one; the rejected layer no longer corroborates anything.
func (r *Record) resetSource(name string, s Source) {
	r.sources[name] = map[Source]bool{s: true}
}
