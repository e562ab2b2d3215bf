// Package validate runs the data-quality pass over a merged record before
// scoring: value normalization, identity fallbacks, and plausibility checks
// that catch recognition garbage the extraction layers let through.
package validate

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/labwise/medextract/constants"
	"github.com/labwise/medextract/internal/record"
	"github.com/labwise/medextract/internal/schema"
)

// embeddedFlagRe splits values like "12.6 H" that slipped through as text.
var embeddedFlagRe = regexp.MustCompile(`^([\d.]+)\s*(H|L|High|Low)$`)

// Validator mutates the record in place and reports quality issues.
type Validator struct{}

// Validate normalizes values and returns human-readable quality issues. The
// record itself is only changed for normalization and the patient-name
// fallback; implausible values stay in place but are reported, since a
// reviewer must see them.
func (Validator) Validate(rec *record.Record, sourcePath string) []string {
	var issues []string

	splitEmbeddedFlags(rec)
	normalizeBloodGroup(rec)
	normalizeRh(rec)

	if !rec.Has("PatientName") {
		stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
		rec.Set(record.FieldValue{Name: "PatientName", Text: stem, Source: record.SourceDeterministic})
		rec.AddNote(constants.NoteNameNotFound)
	}

	issues = append(issues, plausibility(rec)...)
	if issue := differentialSum(rec); issue != "" {
		issues = append(issues, issue)
	}
	if issue := bmiCrossCheck(rec); issue != "" {
		issues = append(issues, issue)
	}
	return issues
}

// splitEmbeddedFlags converts text values of numeric fields like "12.6 H"
// into a number plus flag.
func splitEmbeddedFlags(rec *record.Record) {
	for _, def := range schema.Fields() {
		if def.Category != schema.Numeric {
			continue
		}
		v, ok := rec.Get(def.Name)
		if !ok || v.Number != nil {
			continue
		}
		text := strings.TrimSpace(v.Text)
		if m := embeddedFlagRe.FindStringSubmatch(text); m != nil {
			if f, err := strconv.ParseFloat(m[1], 64); err == nil {
				v.Number = &f
				v.Text = ""
				if v.Flag == record.FlagNone {
					v.Flag = flagFromToken(m[2])
				}
				rec.Set(v)
				continue
			}
		}
		// Plain numeric text coerces too.
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			v.Number = &f
			v.Text = ""
			rec.Set(v)
		}
	}
}

func flagFromToken(tok string) record.Flag {
	switch strings.ToUpper(tok) {
	case "H", "HIGH":
		return record.FlagHigh
	case "L", "LOW":
		return record.FlagLow
	}
	return record.FlagNone
}

func normalizeBloodGroup(rec *record.Record) {
	v, ok := rec.Get("Blood_Group")
	if !ok {
		return
	}
	u := strings.ToUpper(strings.TrimSpace(v.Text))
	u = strings.TrimSuffix(strings.TrimSuffix(u, "+"), "-")
	u = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(u, "POSITIVE"), "NEGATIVE"))
	switch u {
	case "A", "B", "AB", "O":
		v.Text = u
		rec.Set(v)
	default:
		rec.Delete("Blood_Group")
	}
}

func normalizeRh(rec *record.Record) {
	v, ok := rec.Get("Rh_Type")
	if !ok {
		return
	}
	switch strings.ToUpper(strings.TrimSpace(v.Text)) {
	case "+", "POSITIVE", "POS":
		v.Text = "Positive"
		rec.Set(v)
	case "-", "NEGATIVE", "NEG":
		v.Text = "Negative"
		rec.Set(v)
	default:
		rec.Delete("Rh_Type")
	}
}

func plausibility(rec *record.Record) []string {
	var issues []string
	for _, def := range schema.Fields() {
		if def.Min == 0 && def.Max == 0 {
			continue
		}
		v, ok := rec.Get(def.Name)
		if !ok || v.Number == nil {
			continue
		}
		if *v.Number < def.Min || *v.Number > def.Max {
			issues = append(issues, fmt.Sprintf("%s=%s outside plausible range [%g, %g]",
				def.Name, v.String(), def.Min, def.Max))
		}
	}
	return issues
}

// differentialSum checks that the five WBC differential percentages add up
// to roughly 100 when all are present.
func differentialSum(rec *record.Record) string {
	parts := []string{
		"Neutrophil_Percent", "Lymphocyte_Percent", "Eosinophils_Percent",
		"Monocytes_Percent", "Basophils_Percent",
	}
	var sum float64
	for _, name := range parts {
		v, ok := rec.Get(name)
		if !ok || v.Number == nil {
			return ""
		}
		sum += *v.Number
	}
	if math.Abs(sum-100) > 10 {
		return fmt.Sprintf("WBC differential sums to %.1f, expected ~100", sum)
	}
	return ""
}

// bmiCrossCheck recomputes BMI from height (cm) and weight (kg) and flags a
// reported BMI more than 3 points away.
func bmiCrossCheck(rec *record.Record) string {
	h, okH := rec.Get("Height")
	w, okW := rec.Get("Weight")
	b, okB := rec.Get("BMI")
	if !okH || !okW || !okB || h.Number == nil || w.Number == nil || b.Number == nil {
		return ""
	}
	metres := *h.Number / 100
	if metres <= 0 {
		return ""
	}
	computed := *w.Number / (metres * metres)
	if math.Abs(computed-*b.Number) > 3 {
		return fmt.Sprintf("BMI %s disagrees with height/weight (computed %.1f)", b.String(), computed)
	}
	return ""
}
