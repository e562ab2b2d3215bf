package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labwise/medextract/constants"
	"github.com/labwise/medextract/internal/record"
)

func f64(f float64) *float64 { return &f }

func set(rec *record.Record, name string, n *float64, text string) {
	rec.Set(record.FieldValue{Name: name, Number: n, Text: text, Source: record.SourceExternal})
}

func TestSplitEmbeddedFlag(t *testing.T) {
	rec := record.New()
	set(rec, "Haemoglobin", nil, "9.8 L")

	Validator{}.Validate(rec, "report.pdf")

	v, ok := rec.Get("Haemoglobin")
	require.True(t, ok)
	require.NotNil(t, v.Number)
	assert.Equal(t, 9.8, *v.Number)
	assert.Equal(t, record.FlagLow, v.Flag)
	assert.Empty(t, v.Text)
}

func TestCoercesNumericText(t *testing.T) {
	rec := record.New()
	set(rec, "TLC", nil, "7400")

	Validator{}.Validate(rec, "report.pdf")

	v, _ := rec.Get("TLC")
	require.NotNil(t, v.Number)
	assert.Equal(t, 7400.0, *v.Number)
}

func TestNameFallbackToFilename(t *testing.T) {
	rec := record.New()

	Validator{}.Validate(rec, "/data/in/RAJESH_KUMAR_2024.pdf")

	v, ok := rec.Get("PatientName")
	require.True(t, ok)
	assert.Equal(t, "RAJESH_KUMAR_2024", v.Text)
	assert.Contains(t, rec.Notes(), constants.NoteNameNotFound)
}

func TestNamePresentNoFallback(t *testing.T) {
	rec := record.New()
	set(rec, "PatientName", nil, "RAJESH KUMAR")

	Validator{}.Validate(rec, "report.pdf")

	v, _ := rec.Get("PatientName")
	assert.Equal(t, "RAJESH KUMAR", v.Text)
	assert.NotContains(t, rec.Notes(), constants.NoteNameNotFound)
}

func TestBloodGroupNormalization(t *testing.T) {
	cases := map[string]string{
		"ab":          "AB",
		"O Positive":  "O",
		"B+":          "B",
		"a NEGATIVE ": "A",
	}
	for in, want := range cases {
		rec := record.New()
		set(rec, "Blood_Group", nil, in)
		Validator{}.Validate(rec, "r.pdf")
		v, ok := rec.Get("Blood_Group")
		require.True(t, ok, in)
		assert.Equal(t, want, v.Text, in)
	}

	rec := record.New()
	set(rec, "Blood_Group", nil, "unknown")
	Validator{}.Validate(rec, "r.pdf")
	assert.False(t, rec.Has("Blood_Group"), "unusable group dropped")
}

func TestRhNormalization(t *testing.T) {
	rec := record.New()
	set(rec, "Rh_Type", nil, "+")
	Validator{}.Validate(rec, "r.pdf")
	v, _ := rec.Get("Rh_Type")
	assert.Equal(t, "Positive", v.Text)
}

func TestPlausibilityIssue(t *testing.T) {
	rec := record.New()
	set(rec, "Haemoglobin", f64(310), "")

	issues := Validator{}.Validate(rec, "r.pdf")
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "Haemoglobin")
	// Implausible value stays in place for the reviewer.
	assert.True(t, rec.Has("Haemoglobin"))
}

func TestDifferentialSumIssue(t *testing.T) {
	rec := record.New()
	set(rec, "Neutrophil_Percent", f64(60), "")
	set(rec, "Lymphocyte_Percent", f64(20), "")
	set(rec, "Eosinophils_Percent", f64(2), "")
	set(rec, "Monocytes_Percent", f64(4), "")
	set(rec, "Basophils_Percent", f64(1), "")

	issues := Validator{}.Validate(rec, "r.pdf")
	require.NotEmpty(t, issues)
	assert.Contains(t, issues[0], "differential")
}

func TestDifferentialSumWithinTolerance(t *testing.T) {
	rec := record.New()
	set(rec, "Neutrophil_Percent", f64(62), "")
	set(rec, "Lymphocyte_Percent", f64(28), "")
	set(rec, "Eosinophils_Percent", f64(3), "")
	set(rec, "Monocytes_Percent", f64(6), "")
	set(rec, "Basophils_Percent", f64(1), "")

	issues := Validator{}.Validate(rec, "r.pdf")
	assert.Empty(t, issues)
}

func TestBMICrossCheck(t *testing.T) {
	rec := record.New()
	set(rec, "Height", f64(170), "")
	set(rec, "Weight", f64(70), "")
	set(rec, "BMI", f64(35), "") // computed ~24.2

	issues := Validator{}.Validate(rec, "r.pdf")
	require.NotEmpty(t, issues)
	assert.Contains(t, issues[0], "BMI")
}
