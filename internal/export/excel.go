// Package export produces the batch output workbook: a Results sheet with
// one row per document in the master column order, and a Summary sheet of
// per-file processing statistics.
package export

import (
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/labwise/medextract/internal/record"
	"github.com/labwise/medextract/internal/schema"
)

// Row is one processed document ready for export.
type Row struct {
	FileName      string
	Record        *record.Record
	Status        string
	Pages         int
	ExternalCalls int
	Conflicts     int
	Issues        []string
	Elapsed       time.Duration
}

// Service renders workbooks.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// BuildWorkbook returns XLSX bytes for the batch. Flagged values are
// rendered as "12.6 (H)"; confidence LOW values get a trailing asterisk so
// reviewers can spot them without opening the conflict detail.
func (s *Service) BuildWorkbook(rows []Row) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()

	if err := s.writeResults(f, rows); err != nil {
		return nil, err
	}
	if err := s.writeSummary(f, rows); err != nil {
		return nil, err
	}

	index, _ := f.GetSheetIndex("Results")
	f.SetActiveSheet(index)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) writeResults(f *excelize.File, rows []Row) error {
	const sheet = "Results"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	// excelize seeds a default sheet we do not want.
	_ = f.DeleteSheet("Sheet1")

	headers := []string{"S.No", "File Name"}
	for _, def := range schema.Fields() {
		headers = append(headers, def.Display)
	}
	headers = append(headers, "Extraction Note")
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for n, r := range rows {
		row := n + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, n+1)
		write(2, r.FileName)

		col := 3
		for _, def := range schema.Fields() {
			write(col, renderValue(r.Record, def.Name))
			col++
		}
		write(col, r.Record.NoteString())
	}

	_ = f.SetColWidth(sheet, "A", "A", 6)
	_ = f.SetColWidth(sheet, "B", "B", 36)
	_ = f.SetPanes(sheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	})
	return nil
}

func (s *Service) writeSummary(f *excelize.File, rows []Row) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{
		"File Name", "Status", "Pages", "External Calls",
		"Conflicts", "Quality Issues", "Elapsed (s)",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for n, r := range rows {
		row := n + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, r.FileName)
		write(2, r.Status)
		write(3, r.Pages)
		write(4, r.ExternalCalls)
		write(5, r.Conflicts)
		write(6, truncate(joinIssues(r.Issues), 200))
		write(7, fmt.Sprintf("%.1f", r.Elapsed.Seconds()))
	}

	_ = f.SetColWidth(sheet, "A", "A", 36)
	_ = f.SetColWidth(sheet, "F", "F", 60)
	return nil
}

// renderValue formats one cell: numeric values trimmed, flags appended as
// "(H)", LOW-confidence values suffixed with an asterisk.
func renderValue(rec *record.Record, name string) string {
	v, ok := rec.Get(name)
	if !ok {
		return ""
	}
	out := v.String()
	if v.Flag != record.FlagNone {
		out += " (" + string(v.Flag) + ")"
	}
	if rec.Confidence(name) == record.ConfidenceLow {
		out += " *"
	}
	return out
}

func joinIssues(issues []string) string {
	out := ""
	for i, issue := range issues {
		if i > 0 {
			out += "; "
		}
		out += issue
	}
	return out
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	// Back off to a rune boundary so the cut never splits a multi-byte
	// character from an issue message.
	cut := n - 1
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
