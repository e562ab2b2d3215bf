package route

import (
	"context"
	"log/slog"
	"strings"

	"github.com/labwise/medextract/constants"
	"github.com/labwise/medextract/internal/extract"
	"github.com/labwise/medextract/internal/ratelimit"
	"github.com/labwise/medextract/internal/record"
)

// SafetyNet is the final text-only pass over the whole document. It fires at
// most once, only when the combined text is substantial and non-optional
// fields are still null; its purpose is to catch values printed on pages the
// pattern battery considered resolved.
type SafetyNet struct {
	adapter  extract.InferenceAdapter
	limiter  *ratelimit.Admission
	merger   *record.Merger
	minChars int
	logger   *slog.Logger
}

// NewSafetyNet wires the final pass.
func NewSafetyNet(adapter extract.InferenceAdapter, limiter *ratelimit.Admission, merger *record.Merger, minChars int, logger *slog.Logger) *SafetyNet {
	if logger == nil {
		logger = slog.Default()
	}
	return &SafetyNet{adapter: adapter, limiter: limiter, merger: merger, minChars: minChars, logger: logger}
}

// Run merges whatever the pass recovers. The returned outcome reports
// whether a call was spent.
func (s *SafetyNet) Run(ctx context.Context, pages []extract.Page, rec *record.Record) (Outcome, error) {
	var sb strings.Builder
	for _, p := range pages {
		if t := strings.TrimSpace(p.Text); t != "" {
			if sb.Len() > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(t)
		}
	}
	text := sb.String()

	// Optional fields alone do not justify the extra call.
	if len(text) < s.minChars || len(rec.MissingFields()) == 0 {
		s.logger.Info("safety net skipped", "text_len", len(text))
		return Outcome{}, nil
	}
	missing := requestFields(rec, "")

	if err := s.limiter.Wait(ctx); err != nil {
		return Outcome{}, err
	}

	res, err := s.adapter.Extract(ctx, extract.InferenceRequest{Fields: missing, Text: text})
	out := Outcome{Handler: HandlerExternal, ExternalCall: true, Mode: "text"}
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{}, err
		}
		s.logger.Error("safety net call failed", "error", err)
		rec.AddNote(constants.NoteAPIError)
		return out, nil
	}

	vals := ValuesFromInference(res.Fields)
	s.merger.MergeAll(rec, vals)
	out.FieldsAdded = len(vals)
	out.InputTokens = res.InputTokens
	out.OutputTokens = res.OutputTokens
	s.logger.Info("safety net recovered fields", "fields", len(vals))
	return out, nil
}
