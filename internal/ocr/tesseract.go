// Package ocr is the local recognition layer: tesseract over a rendered page
// image, reporting both the recognized text and a mean word confidence so
// the gate downstream can decide whether the text is trustworthy.
package ocr

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/labwise/medextract/internal/common"
	"github.com/labwise/medextract/internal/extract"
)

// Recognizer shells out to tesseract.
type Recognizer struct {
	runner extract.Runner
	bin    string
	lang   string
	psm    int
}

// New returns a tesseract-backed recognizer.
func New(runner extract.Runner, cfg common.OCRConfig) *Recognizer {
	return &Recognizer{
		runner: runner,
		bin:    cfg.Tesseract,
		lang:   cfg.Language,
		psm:    cfg.PSM,
	}
}

// Recognize runs one tesseract pass in TSV mode. The word rows give both the
// text (joined in reading order) and the mean confidence; rows with conf -1
// are layout markers, not words, and are excluded from both.
func (r *Recognizer) Recognize(ctx context.Context, img *extract.ImageHandle) (extract.RecognitionResult, error) {
	args := []string{img.Path, "stdout", "-l", r.lang}
	if r.psm > 0 {
		args = append(args, "--psm", fmt.Sprintf("%d", r.psm))
	}
	args = append(args, "tsv")

	out, errb, err := r.runner.Run(ctx, r.bin, args...)
	if err != nil {
		return extract.RecognitionResult{}, common.WrapError(err, fmt.Sprintf("tesseract: %s", strings.TrimSpace(string(errb))))
	}
	return parseTSV(string(out)), nil
}

// parseTSV reads tesseract's TSV output. Column layout:
// level page block par line word left top width height conf text.
func parseTSV(out string) extract.RecognitionResult {
	var (
		sb      strings.Builder
		sum     float64
		n       int
		curLine string
	)
	lines := strings.Split(out, "\n")
	for i, ln := range lines {
		if i == 0 || len(ln) == 0 {
			continue // skip header
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := cols[10]
		word := cols[11]
		if confStr == "" || confStr == "-1" {
			continue
		}
		conf, err := strconv.ParseFloat(confStr, 64)
		if err != nil {
			continue
		}
		if strings.TrimSpace(word) == "" {
			continue
		}
		sum += conf
		n++

		// New text line when the line-number columns change.
		lineKey := cols[1] + ":" + cols[2] + ":" + cols[3] + ":" + cols[4]
		if curLine != "" && lineKey != curLine {
			sb.WriteByte('\n')
		} else if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		curLine = lineKey
		sb.WriteString(word)
	}

	res := extract.RecognitionResult{Text: sb.String()}
	if n > 0 {
		res.Confidence = sum / float64(n) / 100.0
	}
	return res
}
