package export

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/labwise/medextract/internal/record"
)

func buildRecord(t *testing.T) *record.Record {
	t.Helper()
	rec := record.New()
	m := record.NewMerger(0.1)
	hb := 9.8
	m.Merge(rec, record.FieldValue{Name: "Haemoglobin", Number: &hb, Source: record.SourceDeterministic, Flag: record.FlagLow})
	m.Merge(rec, record.FieldValue{Name: "PatientName", Text: "RAJESH KUMAR", Source: record.SourceExternal})
	cr1, cr2 := 0.9, 1.4
	m.Merge(rec, record.FieldValue{Name: "Serum_Creatinine", Number: &cr1, Source: record.SourceDeterministic})
	m.Merge(rec, record.FieldValue{Name: "Serum_Creatinine", Number: &cr2, Source: record.SourceExternal})
	record.Scorer{}.Score(rec)
	return rec
}

func TestBuildWorkbookSheets(t *testing.T) {
	rows := []Row{{
		FileName:      "report.pdf",
		Record:        buildRecord(t),
		Status:        "done",
		Pages:         4,
		ExternalCalls: 2,
		Conflicts:     1,
		Issues:        []string{"WBC differential sums to 87.0, expected ~100"},
		Elapsed:       3200 * time.Millisecond,
	}}

	b, err := NewService(nil).BuildWorkbook(rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Contains(t, f.GetSheetList(), "Results")
	assert.Contains(t, f.GetSheetList(), "Summary")

	// Header row starts with S.No and File Name.
	a1, _ := f.GetCellValue("Results", "A1")
	b1, _ := f.GetCellValue("Results", "B1")
	assert.Equal(t, "S.No", a1)
	assert.Equal(t, "File Name", b1)

	b2, _ := f.GetCellValue("Results", "B2")
	assert.Equal(t, "report.pdf", b2)

	// Summary carries the per-file stats.
	s2, _ := f.GetCellValue("Summary", "B2")
	assert.Equal(t, "done", s2)
}

func TestTruncateCutsOnRuneBoundary(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))

	// Issue text can carry multi-byte characters, e.g. the micro sign in a
	// unit; a byte-level cut inside one would corrupt the cell.
	s := strings.Repeat("µ", 40)
	out := truncate(s, 22)
	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, "…"))
	assert.Less(t, len(out), len(s))
}

func TestRenderValueFormats(t *testing.T) {
	rec := buildRecord(t)

	assert.Equal(t, "9.8 (L)", renderValue(rec, "Haemoglobin"))
	assert.Equal(t, "RAJESH KUMAR", renderValue(rec, "PatientName"))
	assert.Equal(t, "0.9 *", renderValue(rec, "Serum_Creatinine"), "conflicted value marked for review")
	assert.Empty(t, renderValue(rec, "TLC"))
}
