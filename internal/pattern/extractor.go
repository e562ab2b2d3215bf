// Package pattern is the deterministic extraction layer: a fixed battery of
// compiled patterns run against a page's text. Either a pattern matches or
// the field stays null; nothing here can invent a value.
package pattern

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/labwise/medextract/internal/record"
)

// Extractor runs the pattern battery over one page of text.
type Extractor struct{}

// Extract returns every field the battery matched, attributed to src
// (deterministic for embedded text, local-recognition for OCR output).
// Values and out-of-range flags are always separated; a line reading
// "Haemoglobin 12.6 L" yields Number=12.6 with Flag=L, never the text
// "12.6 L".
func (Extractor) Extract(text string, src record.Source) []record.FieldValue {
	var out []record.FieldValue
	add := func(v record.FieldValue) {
		v.Source = src
		out = append(out, v)
	}

	for _, p := range numericPatterns {
		if value, flag, ok := matchValueAndFlag(text, p.re); ok {
			add(record.FieldValue{Name: p.field, Number: &value, Flag: flag})
		}
	}
	for _, p := range vitalsPatterns {
		if value, _, ok := matchValueAndFlag(text, p.re); ok {
			add(record.FieldValue{Name: p.field, Number: &value})
		}
	}

	if m := bpRe.FindStringSubmatch(text); m != nil {
		add(record.FieldValue{Name: "BP", Text: strings.ReplaceAll(m[1], " ", "")})
	}
	if name, ok := matchName(text); ok {
		add(record.FieldValue{Name: "PatientName", Text: name})
	}
	if m := genderRe.FindStringSubmatch(text); m != nil {
		g := strings.ToUpper(m[1])
		if g == "M" || g == "MALE" {
			add(record.FieldValue{Name: "Gender", Text: "Male"})
		} else {
			add(record.FieldValue{Name: "Gender", Text: "Female"})
		}
	}

	rhSeen := false
	if m := bloodGroupRe.FindStringSubmatch(text); m != nil {
		add(record.FieldValue{Name: "Blood_Group", Text: strings.ToUpper(m[1])})
		if rh := normalizeRh(m[2]); rh != "" {
			add(record.FieldValue{Name: "Rh_Type", Text: rh})
			rhSeen = true
		}
	}
	if !rhSeen {
		if m := rhRe.FindStringSubmatch(text); m != nil {
			if rh := normalizeRh(m[1]); rh != "" {
				add(record.FieldValue{Name: "Rh_Type", Text: rh})
			}
		}
	}

	if m := empCodeRe.FindStringSubmatch(text); m != nil {
		add(record.FieldValue{Name: "EmpCode", Text: strings.TrimSpace(m[1])})
	}
	if m := uhidRe.FindStringSubmatch(text); m != nil {
		add(record.FieldValue{Name: "UHIDNo", Text: strings.TrimSpace(m[1])})
	}
	return out
}

// Count is the page-resolution test: the number of matched fields, flags not
// counted separately since they ride on their parent value.
func (e Extractor) Count(text string) int {
	return len(e.Extract(text, record.SourceDeterministic))
}

// matchValueAndFlag finds the pattern, parses group 1 as a float, then scans
// the matched line and the following line for an out-of-range marker.
func matchValueAndFlag(text string, re *regexp.Regexp) (float64, record.Flag, bool) {
	idx := re.FindStringSubmatchIndex(text)
	if idx == nil || idx[2] < 0 {
		return 0, record.FlagNone, false
	}
	value, err := strconv.ParseFloat(text[idx[2]:idx[3]], 64)
	if err != nil {
		return 0, record.FlagNone, false
	}

	lineStart := strings.LastIndexByte(text[:idx[0]], '\n') + 1
	lineEnd := strings.IndexByte(text[idx[1]:], '\n')
	if lineEnd == -1 {
		lineEnd = len(text)
	} else {
		lineEnd += idx[1]
	}

	if m := inlineFlagRe.FindStringSubmatch(text[lineStart:lineEnd]); m != nil {
		return value, normalizeFlag(m[2]), true
	}

	nextEnd := len(text)
	if lineEnd < len(text) {
		if i := strings.IndexByte(text[lineEnd+1:], '\n'); i != -1 {
			nextEnd = lineEnd + 1 + i
		}
		next := strings.TrimSpace(text[lineEnd:nextEnd])
		if m := standaloneFlagRe.FindStringSubmatch(next); m != nil {
			return value, normalizeFlag(m[1]), true
		}
	}
	return value, record.FlagNone, true
}

func matchName(text string) (string, bool) {
	m := nameRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	name := strings.TrimSpace(m[1])
	if len(name) < 3 || nameStopRe.MatchString(name) {
		return "", false
	}
	return name, true
}

func normalizeFlag(raw string) record.Flag {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "H", "HIGH", "↑":
		return record.FlagHigh
	case "L", "LOW", "↓":
		return record.FlagLow
	}
	return record.FlagNone
}

func normalizeRh(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "+", "POSITIVE", "POS":
		return "Positive"
	case "-", "NEGATIVE", "NEG":
		return "Negative"
	}
	return ""
}
