// Package route decides, page by page, which extraction layer handles the
// content and when to spend an external inference call.
package route

import (
	"strings"

	"github.com/labwise/medextract/internal/extract"
)

// Gate is the quality bar for local recognition output. Text below the
// confidence threshold is discarded entirely rather than merged: a wrong lab
// value is worse than a missing one.
type Gate struct {
	Threshold float64
}

// Admit returns the recognized text when its confidence clears the
// threshold. Empty text never passes.
func (g Gate) Admit(res extract.RecognitionResult) (string, bool) {
	if res.Confidence < g.Threshold {
		return "", false
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return "", false
	}
	return text, true
}
