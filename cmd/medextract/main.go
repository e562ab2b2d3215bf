// Command medextract processes a batch of lab-report PDFs into a results
// workbook, spending external inference calls only on pages the cheaper
// layers cannot resolve.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/labwise/medextract/constants"
	"github.com/labwise/medextract/internal/classify"
	"github.com/labwise/medextract/internal/common"
	"github.com/labwise/medextract/internal/decode"
	"github.com/labwise/medextract/internal/export"
	"github.com/labwise/medextract/internal/extract"
	"github.com/labwise/medextract/internal/inference/openai"
	"github.com/labwise/medextract/internal/ocr"
	"github.com/labwise/medextract/internal/pipeline"
	"github.com/labwise/medextract/internal/ratelimit"
	"github.com/labwise/medextract/internal/record"
	"github.com/labwise/medextract/internal/route"
	"github.com/labwise/medextract/internal/store"
	"github.com/labwise/medextract/internal/store/postgres"
	"github.com/labwise/medextract/internal/store/sqlite"
)

func main() {
	var (
		configPath = flag.String("config", "", "optional YAML config file applied over env defaults")
		inputDir   = flag.String("in", "", "directory of PDF documents to process")
		outputPath = flag.String("out", "", "workbook output path (default <output_dir>/results-<job>.xlsx)")
		logJSON    = flag.Bool("log-json", false, "emit JSON logs")
	)
	flag.Parse()

	setupLogger(*logJSON)

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		fatal("load config", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("validate config", err)
	}

	paths, err := collectPDFs(*inputDir, flag.Args())
	if err != nil {
		fatal("collect input", err)
	}
	if len(paths) == 0 {
		fatal("collect input", fmt.Errorf("no PDF documents to process"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobs, err := openStore(ctx, cfg)
	if err != nil {
		fatal("open job store", err)
	}
	defer jobs.Close()

	runner := extract.ExecRunner{}
	adapter := openai.NewClient(openai.Config{
		APIKey:      cfg.Inference.APIKey,
		BaseURL:     cfg.Inference.BaseURL,
		Model:       cfg.Inference.Model,
		Temperature: cfg.Inference.Temperature,
		Timeout:     cfg.Inference.Timeout,
		MaxRetries:  cfg.Inference.MaxRetries,
	}, slog.Default())

	merger := record.NewMerger(cfg.Routing.NumericTolerance)
	limiter := ratelimit.New(cfg.Inference.RequestsPerMinute)
	router := route.NewRouter(
		classify.New(cfg.Routing.TextMinChars, cfg.Routing.GraphMaxChars),
		ocr.New(runner, cfg.OCR),
		adapter,
		route.Gate{Threshold: cfg.OCR.ConfidenceThreshold},
		limiter,
		merger,
		cfg.Routing.MinPatternFields,
		slog.Default(),
	)
	safety := route.NewSafetyNet(adapter, limiter, merger, cfg.Routing.TextMinChars, slog.Default())
	orch := pipeline.NewOrchestrator(router, safety, slog.Default())
	batch := pipeline.NewBatch(decode.New(runner, cfg.OCR), orch, jobs, cfg.Batch, slog.Default())

	jobID := uuid.New()
	if err := jobs.CreateJob(ctx, store.Job{
		ID:        jobID,
		SourceDir: *inputDir,
		Status:    constants.JobStatusProcessing,
		CreatedAt: time.Now(),
	}); err != nil {
		fatal("create job", err)
	}

	workRoot, err := os.MkdirTemp("", "medextract-*")
	if err != nil {
		fatal("create work dir", err)
	}
	defer func() { _ = os.RemoveAll(workRoot) }()

	slog.Info("batch starting", "job_id", jobID, "documents", len(paths), "workers", cfg.Batch.Workers)
	start := time.Now()

	rows, runErr := batch.Run(ctx, jobID, paths, workRoot)
	if runErr != nil {
		slog.Error("batch aborted", "error", runErr)
	}

	out := *outputPath
	if out == "" {
		out = filepath.Join(cfg.Export.OutputDir, fmt.Sprintf("results-%s.xlsx", jobID))
	}
	if err := writeWorkbook(rows, out); err != nil {
		fatal("write workbook", err)
	}
	if err := jobs.SaveWorkbookPath(context.WithoutCancel(ctx), jobID, out); err != nil {
		slog.Error("save workbook path", "error", err)
	}
	if err := jobs.SetJobStatus(context.WithoutCancel(ctx), jobID, constants.JobStatusComplete); err != nil {
		slog.Error("set job status", "error", err)
	}

	done, partial, failed := 0, 0, 0
	for _, r := range rows {
		switch r.Status {
		case string(constants.DocStatusDone):
			done++
		case string(constants.DocStatusPartial):
			partial++
		default:
			failed++
		}
	}
	slog.Info("batch finished",
		"job_id", jobID,
		"done", done, "partial", partial, "failed", failed,
		"workbook", out,
		"elapsed_s", fmt.Sprintf("%.1f", time.Since(start).Seconds()),
	)
	if runErr != nil {
		os.Exit(1)
	}
}

func setupLogger(json bool) {
	level := slog.LevelInfo
	if strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func openStore(ctx context.Context, cfg *common.Config) (store.Store, error) {
	if cfg.Database.DSN != "" {
		return postgres.Open(ctx, cfg.Database, slog.Default())
	}
	return sqlite.Open(ctx, cfg.Database.SQLitePath)
}

// collectPDFs merges the -in directory listing with positional arguments.
func collectPDFs(dir string, args []string) ([]string, error) {
	var paths []string
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
				continue
			}
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	paths = append(paths, args...)
	sort.Strings(paths)
	return paths, nil
}

func writeWorkbook(rows []export.Row, out string) error {
	// A cancelled run leaves zero-value rows; skip them.
	kept := rows[:0]
	for _, r := range rows {
		if r.Record != nil {
			kept = append(kept, r)
		}
	}
	b, err := export.NewService(slog.Default()).BuildWorkbook(kept)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	return os.WriteFile(out, b, 0o644)
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
