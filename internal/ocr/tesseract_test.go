package ocr

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labwise/medextract/internal/common"
	"github.com/labwise/medextract/internal/extract"
)

type scriptRunner struct {
	stdout []byte
	stderr []byte
	err    error
	args   []string
}

func (s *scriptRunner) Run(_ context.Context, _ string, args ...string) ([]byte, []byte, error) {
	s.args = args
	return s.stdout, s.stderr, s.err
}

const tsvHeader = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext"

func tsvRow(block, par, line int, conf, text string) string {
	return strings.Join([]string{
		"5", "1",
		itoa(block), itoa(par), itoa(line), "1",
		"0", "0", "10", "10",
		conf, text,
	}, "\t")
}

func itoa(i int) string { return string(rune('0' + i)) }

func TestRecognizeMeanConfidence(t *testing.T) {
	out := strings.Join([]string{
		tsvHeader,
		tsvRow(1, 1, 1, "90", "Haemoglobin"),
		tsvRow(1, 1, 1, "80", "12.6"),
		tsvRow(1, 1, 2, "70", "TLC"),
		tsvRow(1, 1, 1, "-1", ""), // layout marker, excluded
	}, "\n")
	r := New(&scriptRunner{stdout: []byte(out)}, common.OCRConfig{Tesseract: "tesseract", Language: "eng", PSM: 6})

	got, err := r.Recognize(context.Background(), &extract.ImageHandle{Path: "page-1.png"})
	require.NoError(t, err)
	assert.InDelta(t, 0.8, got.Confidence, 1e-9)
	assert.Equal(t, "Haemoglobin 12.6\nTLC", got.Text)
}

func TestRecognizeEmptyOutput(t *testing.T) {
	r := New(&scriptRunner{stdout: []byte(tsvHeader + "\n")}, common.OCRConfig{Tesseract: "tesseract", Language: "eng"})

	got, err := r.Recognize(context.Background(), &extract.ImageHandle{Path: "page-1.png"})
	require.NoError(t, err)
	assert.Zero(t, got.Confidence)
	assert.Empty(t, got.Text)
}

func TestRecognizeCommandFailure(t *testing.T) {
	r := New(&scriptRunner{err: errors.New("exit status 1"), stderr: []byte("cannot open image")},
		common.OCRConfig{Tesseract: "tesseract", Language: "eng"})

	_, err := r.Recognize(context.Background(), &extract.ImageHandle{Path: "missing.png"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tesseract")
}

func TestRecognizePassesPSM(t *testing.T) {
	s := &scriptRunner{stdout: []byte(tsvHeader + "\n")}
	r := New(s, common.OCRConfig{Tesseract: "tesseract", Language: "eng", PSM: 6})

	_, err := r.Recognize(context.Background(), &extract.ImageHandle{Path: "p.png"})
	require.NoError(t, err)
	assert.Contains(t, s.args, "--psm")
	assert.Contains(t, s.args, "tsv")
}
