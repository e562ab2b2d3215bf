package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labwise/medextract/internal/record"
)

func extractMap(t *testing.T, text string) map[string]record.FieldValue {
	t.Helper()
	out := make(map[string]record.FieldValue)
	for _, v := range (Extractor{}).Extract(text, record.SourceDeterministic) {
		out[v.Name] = v
	}
	return out
}

func TestExtractCBCPanel(t *testing.T) {
	text := `COMPLETE BLOOD COUNT
Haemoglobin : 12.6
TLC : 7400
Platelet Count : 250
MCV : 88.2
`
	got := extractMap(t, text)
	require.Contains(t, got, "Haemoglobin")
	assert.Equal(t, 12.6, *got["Haemoglobin"].Number)
	assert.Equal(t, 7400.0, *got["TLC"].Number)
	assert.Equal(t, 250.0, *got["Platelet_Count"].Number)
	assert.Equal(t, 88.2, *got["MCV"].Number)
	assert.Equal(t, record.SourceDeterministic, got["MCV"].Source)
}

func TestExtractInlineFlag(t *testing.T) {
	got := extractMap(t, "Haemoglobin : 9.8 L\n")
	require.Contains(t, got, "Haemoglobin")
	assert.Equal(t, 9.8, *got["Haemoglobin"].Number)
	assert.Equal(t, record.FlagLow, got["Haemoglobin"].Flag)
}

func TestExtractNextLineFlag(t *testing.T) {
	got := extractMap(t, "SGPT/ALT : 72\nH\nSerum Creatinine : 0.9\n")
	require.Contains(t, got, "SGPT_ALT")
	assert.Equal(t, record.FlagHigh, got["SGPT_ALT"].Flag)
	assert.Equal(t, record.FlagNone, got["Serum_Creatinine"].Flag)
}

func TestExtractBloodPressure(t *testing.T) {
	got := extractMap(t, "BP : 120 / 80 mmHg\n")
	require.Contains(t, got, "BP")
	assert.Equal(t, "120/80", got["BP"].Text)
}

func TestExtractPatientIdentity(t *testing.T) {
	text := `Patient Name : RAJESH KUMAR
Age : 34 Yrs
Sex : M
Emp Code : EMP-4471
UHID No : UH/2024/0031
`
	got := extractMap(t, text)
	assert.Equal(t, "RAJESH KUMAR", got["PatientName"].Text)
	assert.Equal(t, 34.0, *got["Age"].Number)
	assert.Equal(t, "Male", got["Gender"].Text)
	assert.Equal(t, "EMP-4471", got["EmpCode"].Text)
	assert.Equal(t, "UH/2024/0031", got["UHIDNo"].Text)
}

func TestExtractNameRejectsHeaderWords(t *testing.T) {
	got := extractMap(t, "Name : Report\n")
	assert.NotContains(t, got, "PatientName")
}

func TestExtractBloodGroupWithRh(t *testing.T) {
	got := extractMap(t, "Blood Group : AB Positive\n")
	assert.Equal(t, "AB", got["Blood_Group"].Text)
	assert.Equal(t, "Positive", got["Rh_Type"].Text)
}

func TestExtractStandaloneRh(t *testing.T) {
	got := extractMap(t, "ABO Group : O\nRh Factor : -\n")
	assert.Equal(t, "O", got["Blood_Group"].Text)
	assert.Equal(t, "Negative", got["Rh_Type"].Text)
}

func TestCountThreshold(t *testing.T) {
	e := Extractor{}
	assert.GreaterOrEqual(t, e.Count("Haemoglobin: 12.6\nTLC: 7400\nMCV: 88\n"), 3)
	assert.Less(t, e.Count("Consultation notes follow."), 3)
	assert.Zero(t, e.Count(""))
}

func TestFlagDoesNotInflateCount(t *testing.T) {
	// One field with a flag is still one field.
	vals := Extractor{}.Extract("Haemoglobin : 9.8 L\n", record.SourceDeterministic)
	assert.Len(t, vals, 1)
}
