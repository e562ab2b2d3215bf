package route

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/labwise/medextract/constants"
	"github.com/labwise/medextract/internal/classify"
	"github.com/labwise/medextract/internal/extract"
	"github.com/labwise/medextract/internal/pattern"
	"github.com/labwise/medextract/internal/ratelimit"
	"github.com/labwise/medextract/internal/record"
	"github.com/labwise/medextract/internal/schema"
)

// Handler identifies which layer resolved a page.
type Handler string

const (
	HandlerGraph    Handler = "graph"    // sentinel only, no extraction
	HandlerPattern  Handler = "pattern"  // deterministic battery on embedded text
	HandlerLocal    Handler = "local"    // pattern battery on gated OCR text
	HandlerExternal Handler = "external" // escalated to the inference adapter
)

// Outcome summarizes how one page was handled.
type Outcome struct {
	Handler      Handler
	ExternalCall bool
	Mode         string // "text" or "image" when an external call was spent
	FieldsAdded  int
	InputTokens  int
	OutputTokens int
}

// Router walks one document's pages in order, cheapest layer first. It holds
// no per-document state and is safe to share across workers; the record
// carries everything document-scoped.
type Router struct {
	classifier *classify.Classifier
	patterns   pattern.Extractor
	recognizer extract.Recognizer
	adapter    extract.InferenceAdapter
	gate       Gate
	limiter    *ratelimit.Admission
	merger     *record.Merger
	minFields  int
	logger     *slog.Logger
}

// NewRouter wires the routing layers together.
func NewRouter(
	classifier *classify.Classifier,
	recognizer extract.Recognizer,
	adapter extract.InferenceAdapter,
	gate Gate,
	limiter *ratelimit.Admission,
	merger *record.Merger,
	minFields int,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		classifier: classifier,
		recognizer: recognizer,
		adapter:    adapter,
		gate:       gate,
		limiter:    limiter,
		merger:     merger,
		minFields:  minFields,
		logger:     logger,
	}
}

// RoutePage classifies one page and drives it through the escalation ladder,
// merging whatever each layer produces into rec. External failures degrade
// to a note on the record; only context cancellation propagates as an error.
func (r *Router) RoutePage(ctx context.Context, page extract.Page, rec *record.Record) (Outcome, error) {
	cls := r.classifier.Classify(page.Text)
	log := r.logger.With("page", page.Number, "kind", cls.Kind)

	switch cls.Kind {
	case classify.KindGraph:
		// Graph pages never render and never escalate: their numbers are
		// axis labels. Mark the speciality test as present and move on.
		added := 0
		if field := schema.GraphField(cls.GraphType); field != "" {
			r.merger.Merge(rec, record.FieldValue{
				Name:   field,
				Text:   "PRESENT",
				Source: record.SourceDeterministic,
			})
			added = 1
		}
		log.Info("page routed", "graph_type", cls.GraphType, "handler", HandlerGraph)
		return Outcome{Handler: HandlerGraph, FieldsAdded: added}, nil

	case classify.KindText:
		vals := r.patterns.Extract(page.Text, record.SourceDeterministic)
		r.merger.MergeAll(rec, vals)
		if len(vals) >= r.minFields {
			log.Info("page routed", "handler", HandlerPattern, "fields", len(vals))
			return Outcome{Handler: HandlerPattern, FieldsAdded: len(vals)}, nil
		}
		// Too few matches to trust the page resolved; partials are kept
		// and the remainder goes to inference in text mode.
		return r.escalate(ctx, log, rec, extract.InferenceRequest{Text: page.Text}, page.Text, len(vals), HandlerPattern)

	default: // classify.KindScan
		return r.routeScan(ctx, log, page, rec)
	}
}

func (r *Router) routeScan(ctx context.Context, log *slog.Logger, page extract.Page, rec *record.Record) (Outcome, error) {
	img, err := page.Render(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{}, err
		}
		log.Error("page render failed", "error", err)
		rec.AddNote(constants.NotePartialOCR)
		return Outcome{Handler: HandlerExternal}, nil
	}

	res, err := r.recognizer.Recognize(ctx, img)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{}, err
		}
		log.Warn("local recognition failed", "error", err)
		rec.AddNote(constants.NotePartialOCR)
		return r.escalate(ctx, log, rec, extract.InferenceRequest{Image: img}, "", 0, HandlerExternal)
	}

	text, ok := r.gate.Admit(res)
	if !ok {
		// Sub-threshold text is thrown away, not merged: the page goes
		// to inference with the image instead.
		log.Info("recognition below threshold", "confidence", res.Confidence)
		return r.escalate(ctx, log, rec, extract.InferenceRequest{Image: img}, "", 0, HandlerExternal)
	}

	vals := r.patterns.Extract(text, record.SourceLocal)
	r.merger.MergeAll(rec, vals)
	if len(vals) >= r.minFields {
		log.Info("page routed", "handler", HandlerLocal, "fields", len(vals), "confidence", res.Confidence)
		return Outcome{Handler: HandlerLocal, FieldsAdded: len(vals)}, nil
	}
	return r.escalate(ctx, log, rec, extract.InferenceRequest{Image: img}, text, len(vals), HandlerLocal)
}

// escalate sends one inference request for the document's still-null fields.
// In text mode the request is pruned to fields whose aliases appear on the
// page; an empty field list skips the call outright.
func (r *Router) escalate(ctx context.Context, log *slog.Logger, rec *record.Record, req extract.InferenceRequest, pruneText string, partial int, fallback Handler) (Outcome, error) {
	req.Fields = requestFields(rec, pruneText)
	if len(req.Fields) == 0 {
		log.Info("escalation skipped, nothing left to request")
		return Outcome{Handler: fallback, FieldsAdded: partial}, nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return Outcome{}, err
	}

	mode := "text"
	if req.Image != nil {
		mode = "image"
	}
	res, err := r.adapter.Extract(ctx, req)
	out := Outcome{Handler: HandlerExternal, ExternalCall: true, Mode: mode, FieldsAdded: partial}
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{}, err
		}
		// A failed call costs this page's escalation, nothing else. The
		// record keeps whatever the cheaper layers found.
		log.Error("inference call failed", "error", err)
		rec.AddNote(constants.NoteAPIError)
		return out, nil
	}

	vals := ValuesFromInference(res.Fields)
	r.merger.MergeAll(rec, vals)
	out.FieldsAdded += len(vals)
	out.InputTokens = res.InputTokens
	out.OutputTokens = res.OutputTokens
	log.Info("page routed", "handler", HandlerExternal, "fields", len(vals))
	return out, nil
}

// requestFields lists the document-level null fields still worth asking for.
// With pruneText set (text-mode escalation) fields are dropped unless an
// alias appears on the page; AlwaysRequest fields are kept regardless since
// their content is visual or free-form.
func requestFields(rec *record.Record, pruneText string) []string {
	lower := " " + strings.ToLower(pruneText) + " "
	var out []string
	for _, def := range schema.Fields() {
		if rec.Has(def.Name) {
			continue
		}
		if pruneText != "" && !def.AlwaysRequest && !anyAlias(lower, def.Aliases) {
			continue
		}
		out = append(out, def.Name)
	}
	return out
}

func anyAlias(lowerText string, aliases []string) bool {
	for _, a := range aliases {
		if strings.Contains(lowerText, a) {
			return true
		}
	}
	return false
}

// ValuesFromInference converts a validated response map into field values.
// Null entries are skipped; _Flag keys attach to their parent value.
func ValuesFromInference(fields map[string]any) []record.FieldValue {
	flags := make(map[string]record.Flag)
	for key, raw := range fields {
		parent, ok := schema.IsFlagKey(key)
		if !ok {
			continue
		}
		if s, ok := raw.(string); ok {
			switch strings.ToUpper(s) {
			case "HIGH":
				flags[parent] = record.FlagHigh
			case "LOW":
				flags[parent] = record.FlagLow
			}
		}
	}

	var out []record.FieldValue
	for key, raw := range fields {
		if _, isFlag := schema.IsFlagKey(key); isFlag || raw == nil {
			continue
		}
		def, ok := schema.Lookup(key)
		if !ok {
			continue
		}
		v := record.FieldValue{Name: key, Source: record.SourceExternal, Flag: flags[key]}
		switch t := raw.(type) {
		case float64:
			v.Number = &t
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				continue
			}
			if def.Category == schema.Numeric {
				if f, err := strconv.ParseFloat(s, 64); err == nil {
					v.Number = &f
				} else {
					v.Text = s
				}
			} else {
				v.Text = s
			}
		default:
			continue
		}
		out = append(out, v)
	}
	return out
}
