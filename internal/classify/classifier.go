// Package classify routes each page to one of three kinds from its embedded
// text layer alone, before any rendering or recognition happens.
package classify

import "strings"

// Kind is the page class driving the routing decision.
type Kind string

const (
	// KindGraph pages are waveform or plot output (ECG strips, audiograms)
	// whose numbers are axis labels, not lab values.
	KindGraph Kind = "graph"
	// KindText pages carry a usable embedded text layer.
	KindText Kind = "text"
	// KindScan pages have little or no embedded text and need recognition.
	KindScan Kind = "scan"
)

// graphKeywords maps lowercase keywords to the graph type they indicate.
// Checked in a fixed order so multi-keyword pages classify deterministically.
var graphKeywords = []struct {
	keyword   string
	graphType string
}{
	{"electrocardiogram", "ECG"},
	{"ecg", "ECG"},
	{"ekg", "ECG"},
	{"audiometry graph", "AUDIOGRAM"},
	{"audiogram", "AUDIOGRAM"},
	{"treadmill", "TMT"},
	{"tmt", "TMT"},
	{"spirometry curve", "SPIROMETRY_CURVE"},
	{"flow volume", "SPIROMETRY_CURVE"},
	{"waveform", "GRAPH"},
}

// Classifier decides a page's kind from its text length and graph keywords.
type Classifier struct {
	// TextMinChars is the minimum embedded-text length for a text page.
	TextMinChars int
	// GraphMaxChars caps the text length at which a graph keyword still
	// marks a graph page; longer pages are tabular reports that merely
	// mention the test.
	GraphMaxChars int
}

// New returns a classifier with the given thresholds.
func New(textMin, graphMax int) *Classifier {
	return &Classifier{TextMinChars: textMin, GraphMaxChars: graphMax}
}

// Result is the classification of one page.
type Result struct {
	Kind      Kind
	GraphType string // set only for KindGraph
}

// Classify inspects the page's embedded text. Graph detection runs first:
// a short page naming a graph test is graph output even when its length
// would otherwise qualify it as text.
func (c *Classifier) Classify(text string) Result {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	if len(trimmed) < c.GraphMaxChars {
		for _, g := range graphKeywords {
			if strings.Contains(lower, g.keyword) {
				return Result{Kind: KindGraph, GraphType: g.graphType}
			}
		}
	}
	if len(trimmed) >= c.TextMinChars {
		return Result{Kind: KindText}
	}
	return Result{Kind: KindScan}
}
