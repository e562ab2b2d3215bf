// Package record holds the in-flight patient record: field values accumulated
// across pages, the per-field source sets and conflict ledger the merger
// maintains, and the confidence scoring applied once the document is done.
package record

import (
	"sort"
	"strconv"
	"strings"

	"github.com/labwise/medextract/internal/schema"
)

// Source identifies which extraction layer produced a value.
type Source string

const (
	SourceDeterministic Source = "deterministic"
	SourceLocal         Source = "local-recognition"
	SourceExternal      Source = "external"
)

// Flag marks a value outside the lab's reference range.
type Flag string

const (
	FlagNone Flag = ""
	FlagHigh Flag = "H"
	FlagLow  Flag = "L"
)

// Confidence is the per-field score assigned after the document completes.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// FieldValue is one extracted value with its provenance.
type FieldValue struct {
	Name   string
	Number *float64 // set for numeric values
	Text   string   // set for everything else
	Source Source
	Flag   Flag
}

// IsNumeric reports whether the value carries a parsed number.
func (v FieldValue) IsNumeric() bool { return v.Number != nil }

// String renders the value for display and narrative concatenation.
func (v FieldValue) String() string {
	if v.Number != nil {
		return trimFloat(*v.Number)
	}
	return v.Text
}

// Conflict records a disagreement between two sources for one field: which
// value the priority table kept and which it rejected.
type Conflict struct {
	Field    string
	Kept     FieldValue
	Rejected FieldValue
}

// Record accumulates field values for one document. Not safe for concurrent
// use; each document is processed by exactly one goroutine.
type Record struct {
	values     map[string]FieldValue
	sources    map[string]map[Source]bool
	conflicts  []Conflict
	confidence map[string]Confidence
	notes      []string
	sealed     bool
}

// New returns an empty record.
func New() *Record {
	return &Record{
		values:     make(map[string]FieldValue),
		sources:    make(map[string]map[Source]bool),
		confidence: make(map[string]Confidence),
	}
}

// Get returns the current value for name.
func (r *Record) Get(name string) (FieldValue, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Has reports whether name holds a non-null value.
func (r *Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Sources returns the set of layers that contributed (agreeing or kept)
// values for name.
func (r *Record) Sources(name string) []Source {
	set := r.sources[name]
	out := make([]Source, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Conflicts returns the conflict ledger.
func (r *Record) Conflicts() []Conflict {
	return r.conflicts
}

// ConflictedFields returns the names of fields with at least one ledger entry.
func (r *Record) ConflictedFields() map[string]bool {
	out := make(map[string]bool, len(r.conflicts))
	for _, c := range r.conflicts {
		out[c.Field] = true
	}
	return out
}

// Confidence returns the scored confidence for name. Valid after scoring.
func (r *Record) Confidence(name string) Confidence {
	return r.confidence[name]
}

// MissingFields returns the non-optional field names still null, in
// canonical order.
func (r *Record) MissingFields() []string {
	var out []string
	for _, def := range schema.Fields() {
		if def.Optional {
			continue
		}
		if !r.Has(def.Name) {
			out = append(out, def.Name)
		}
	}
	return out
}

// Set overwrites a value directly, bypassing merge priority. Used by the
// validation pass for normalization and fallbacks; rejected once sealed.
func (r *Record) Set(v FieldValue) {
	if r.sealed || v.Name == "" {
		return
	}
	r.values[v.Name] = v
	r.markSource(v.Name, v.Source)
}

// Delete removes a value. Used when normalization finds it unusable.
func (r *Record) Delete(name string) {
	if r.sealed {
		return
	}
	delete(r.values, name)
	delete(r.sources, name)
}

// AddNote appends a processing note unless already present.
func (r *Record) AddNote(note string) {
	for _, n := range r.notes {
		if n == note {
			return
		}
	}
	r.notes = append(r.notes, note)
}

// Notes returns the accumulated processing notes.
func (r *Record) Notes() []string {
	return r.notes
}

// NoteString joins the notes for the export column.
func (r *Record) NoteString() string {
	return strings.Join(r.notes, " | ")
}

// Sealed reports whether scoring has finalized the record.
func (r *Record) Sealed() bool { return r.sealed }

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
