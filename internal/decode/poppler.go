// Package decode turns PDF documents into ordered pages using the poppler
// command-line tools. The text layer comes from one pdftotext call per
// document; page images are rendered lazily with pdftoppm only when a page
// actually needs one.
package decode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/labwise/medextract/constants"
	"github.com/labwise/medextract/internal/common"
	"github.com/labwise/medextract/internal/extract"
)

// Decoder extracts page text and renders page images via poppler binaries.
type Decoder struct {
	runner    extract.Runner
	pdftotext string
	pdftoppm  string
	dpi       int
}

// New returns a poppler-backed decoder.
func New(runner extract.Runner, cfg common.OCRConfig) *Decoder {
	return &Decoder{
		runner:    runner,
		pdftotext: cfg.Pdftotext,
		pdftoppm:  cfg.Pdftoppm,
		dpi:       cfg.DPI,
	}
}

// Decode extracts the embedded text of every page in order. Each returned
// page carries a render closure that rasterizes that single page into
// workDir on first use; the handle is cached so classification never forces
// a render and escalation renders at most once.
func (d *Decoder) Decode(ctx context.Context, path string, workDir string) ([]extract.Page, error) {
	out, errb, err := d.runner.Run(ctx, d.pdftotext, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return nil, decodeFailure(err, string(errb))
	}

	// pdftotext separates pages with form feeds and appends a trailing one.
	raw := strings.TrimSuffix(string(out), "\f")
	chunks := strings.Split(raw, "\f")

	pages := make([]extract.Page, len(chunks))
	for i, text := range chunks {
		pages[i] = extract.Page{
			Number: i + 1,
			Text:   text,
			Render: d.renderFunc(path, workDir, i+1),
		}
	}
	return pages, nil
}

// renderFunc builds the deferred single-page rasterizer. sync.Once keeps the
// render idempotent per page.
func (d *Decoder) renderFunc(path, workDir string, page int) extract.RenderFunc {
	var (
		once   sync.Once
		handle *extract.ImageHandle
		err    error
	)
	return func(ctx context.Context) (*extract.ImageHandle, error) {
		once.Do(func() {
			prefix := filepath.Join(workDir, "page-"+strconv.Itoa(page))
			n := strconv.Itoa(page)
			_, errb, runErr := d.runner.Run(ctx, d.pdftoppm,
				"-png", "-singlefile",
				"-r", strconv.Itoa(d.dpi),
				"-f", n, "-l", n,
				path, prefix)
			if runErr != nil {
				err = decodeFailure(runErr, string(errb))
				return
			}
			img := prefix + ".png"
			if _, statErr := os.Stat(img); statErr != nil {
				err = common.WrapError(statErr, "rendered page missing")
				return
			}
			handle = &extract.ImageHandle{Path: img}
		})
		return handle, err
	}
}

// decodeFailure maps poppler stderr to the password/corrupt taxonomy.
func decodeFailure(err error, stderr string) error {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "incorrect password") || strings.Contains(lower, "encrypted"):
		return common.NewAppError(constants.NotePDFPasswordLocked, "document is password protected", err)
	case strings.Contains(lower, "syntax error") || strings.Contains(lower, "not a pdf") || strings.Contains(lower, "damaged"):
		return common.NewAppError(constants.NotePDFCorrupted, "document is corrupted", err)
	}
	return common.WrapError(err, fmt.Sprintf("poppler: %s", firstLine(stderr)))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i != -1 {
		return s[:i]
	}
	return s
}
