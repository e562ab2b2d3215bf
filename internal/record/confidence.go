package record

import "github.com/labwise/medextract/internal/schema"

// Scorer assigns per-field confidence once all pages and the safety-net pass
// have merged. Scoring is a pure function of the record's sources and ledger:
// running it twice produces the same result.
type Scorer struct{}

// Score assigns confidence to every populated field, seals the record, and
// returns the critical fields left at LOW confidence, which require human
// review.
//
//	HIGH:   two or more layers agreed on the value
//	MEDIUM: a single layer produced it, unchallenged
//	LOW:    the conflict ledger holds a disagreement for it
func (Scorer) Score(r *Record) []string {
	conflicted := r.ConflictedFields()

	var review []string
	for name := range r.values {
		switch {
		case conflicted[name]:
			r.confidence[name] = ConfidenceLow
		case len(r.sources[name]) >= 2:
			r.confidence[name] = ConfidenceHigh
		default:
			r.confidence[name] = ConfidenceMedium
		}
	}

	for _, name := range schema.CriticalFields() {
		if r.confidence[name] == ConfidenceLow {
			review = append(review, name)
		}
	}
	r.sealed = true
	return review
}
