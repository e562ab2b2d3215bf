// Package pipeline drives documents through classification, routing, the
// safety net, validation and scoring, and fans a batch of documents across a
// bounded worker pool.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/labwise/medextract/constants"
	"github.com/labwise/medextract/internal/common"
	"github.com/labwise/medextract/internal/extract"
	"github.com/labwise/medextract/internal/record"
	"github.com/labwise/medextract/internal/route"
	"github.com/labwise/medextract/internal/validate"
)

// PageOutcome pairs a routing outcome with its page number.
type PageOutcome struct {
	Page int
	route.Outcome
}

// DocumentStats summarizes one document's run for reporting and persistence.
type DocumentStats struct {
	Pages            int
	PagesByHandler   map[route.Handler]int
	PageOutcomes     []PageOutcome
	ExternalCalls    int
	InputTokens      int
	OutputTokens     int
	ConflictCount    int
	UnresolvedFields []string
	ReviewFields     []string
	QualityIssues    []string
	Status           constants.DocStatus
	Elapsed          time.Duration
}

// Orchestrator processes one document's ordered pages. Stateless; safe to
// share across workers.
type Orchestrator struct {
	router    *route.Router
	safety    *route.SafetyNet
	validator validate.Validator
	scorer    record.Scorer
	logger    *slog.Logger
}

// NewOrchestrator wires the per-document pipeline.
func NewOrchestrator(router *route.Router, safety *route.SafetyNet, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{router: router, safety: safety, logger: logger}
}

// ProcessDocument walks the pages strictly in order, runs the safety net,
// validates, scores, and seals the record. Page-level failures degrade to
// notes; the only fatal outcomes are an empty document and context
// cancellation.
func (o *Orchestrator) ProcessDocument(ctx context.Context, pages []extract.Page, sourcePath string) (*record.Record, DocumentStats, error) {
	start := time.Now()
	stats := DocumentStats{
		Pages:          len(pages),
		PagesByHandler: make(map[route.Handler]int),
		Status:         constants.DocStatusFailed,
	}

	if len(pages) == 0 {
		return nil, stats, common.NewAppError("EMPTY_DOCUMENT", "document has no pages", common.ErrNoExtractableContent)
	}

	rec := record.New()
	for _, page := range pages {
		out, err := o.router.RoutePage(ctx, page, rec)
		if err != nil {
			stats.Elapsed = time.Since(start)
			return nil, stats, err
		}
		stats.PagesByHandler[out.Handler]++
		stats.PageOutcomes = append(stats.PageOutcomes, PageOutcome{Page: page.Number, Outcome: out})
		if out.ExternalCall {
			stats.ExternalCalls++
			stats.InputTokens += out.InputTokens
			stats.OutputTokens += out.OutputTokens
		}
	}

	netOut, err := o.safety.Run(ctx, pages, rec)
	if err != nil {
		stats.Elapsed = time.Since(start)
		return nil, stats, err
	}
	if netOut.ExternalCall {
		stats.ExternalCalls++
		stats.InputTokens += netOut.InputTokens
		stats.OutputTokens += netOut.OutputTokens
		stats.PageOutcomes = append(stats.PageOutcomes, PageOutcome{Page: 0, Outcome: netOut})
	}

	stats.QualityIssues = o.validator.Validate(rec, sourcePath)
	stats.ReviewFields = o.scorer.Score(rec)
	stats.ConflictCount = len(rec.Conflicts())
	stats.UnresolvedFields = rec.MissingFields()

	if len(rec.Notes()) > 0 {
		stats.Status = constants.DocStatusPartial
	} else {
		stats.Status = constants.DocStatusDone
	}
	stats.Elapsed = time.Since(start)

	o.logger.Info("document processed",
		"source", sourcePath,
		"pages", stats.Pages,
		"external_calls", stats.ExternalCalls,
		"conflicts", stats.ConflictCount,
		"unresolved", len(stats.UnresolvedFields),
		"status", stats.Status,
		"elapsed_ms", stats.Elapsed.Milliseconds(),
	)
	return rec, stats, nil
}
