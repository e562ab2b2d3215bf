package decode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labwise/medextract/constants"
	"github.com/labwise/medextract/internal/common"
)

// fakeRunner scripts poppler output per binary name.
type fakeRunner struct {
	stdout map[string][]byte
	stderr map[string][]byte
	errs   map[string]error
	calls  map[string]int
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		stdout: map[string][]byte{},
		stderr: map[string][]byte{},
		errs:   map[string]error{},
		calls:  map[string]int{},
	}
}

func (f *fakeRunner) Run(_ context.Context, name string, _ ...string) ([]byte, []byte, error) {
	f.calls[name]++
	return f.stdout[name], f.stderr[name], f.errs[name]
}

func testConfig() common.OCRConfig {
	return common.OCRConfig{Pdftotext: "pdftotext", Pdftoppm: "pdftoppm", DPI: 200}
}

func TestDecodeSplitsPages(t *testing.T) {
	r := newFakeRunner()
	r.stdout["pdftotext"] = []byte("page one text\fpage two text\f")

	pages, err := New(r, testConfig()).Decode(context.Background(), "doc.pdf", t.TempDir())
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, "page one text", pages[0].Text)
	assert.Equal(t, 2, pages[1].Number)
	assert.Equal(t, "page two text", pages[1].Text)
}

func TestDecodeDoesNotRender(t *testing.T) {
	r := newFakeRunner()
	r.stdout["pdftotext"] = []byte("text\f")

	_, err := New(r, testConfig()).Decode(context.Background(), "doc.pdf", t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, r.calls["pdftoppm"], "decoding must not rasterize anything")
}

func TestRenderCachedAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	r := newFakeRunner()
	r.stdout["pdftotext"] = []byte("text\f")

	pages, err := New(r, testConfig()).Decode(context.Background(), "doc.pdf", dir)
	require.NoError(t, err)

	// Pre-create the file pdftoppm would write.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page-1.png"), []byte("png"), 0o644))

	h1, err := pages[0].Render(context.Background())
	require.NoError(t, err)
	h2, err := pages[0].Render(context.Background())
	require.NoError(t, err)

	assert.Same(t, h1, h2)
	assert.Equal(t, 1, r.calls["pdftoppm"])
	assert.Equal(t, filepath.Join(dir, "page-1.png"), h1.Path)
}

func TestDecodePasswordProtected(t *testing.T) {
	r := newFakeRunner()
	r.stderr["pdftotext"] = []byte("Command Line Error: Incorrect password\n")
	r.errs["pdftotext"] = errors.New("exit status 1")

	_, err := New(r, testConfig()).Decode(context.Background(), "doc.pdf", t.TempDir())
	require.Error(t, err)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, constants.NotePDFPasswordLocked, appErr.Code)
}

func TestDecodeCorrupted(t *testing.T) {
	r := newFakeRunner()
	r.stderr["pdftotext"] = []byte("Syntax Error: Couldn't find trailer dictionary\n")
	r.errs["pdftotext"] = errors.New("exit status 1")

	_, err := New(r, testConfig()).Decode(context.Background(), "doc.pdf", t.TempDir())
	require.Error(t, err)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, constants.NotePDFCorrupted, appErr.Code)
}
