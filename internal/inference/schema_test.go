package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildExtractionSchemaFlagPairing(t *testing.T) {
	s := BuildExtractionSchema([]string{"Haemoglobin", "PatientName"})
	props := s["properties"].(map[string]any)

	assert.Contains(t, props, "Haemoglobin")
	assert.Contains(t, props, "Haemoglobin_Flag")
	assert.Contains(t, props, "PatientName")
	assert.NotContains(t, props, "PatientName_Flag")
	assert.Equal(t, false, s["additionalProperties"])
}

func TestValidateAcceptsWellFormedResponse(t *testing.T) {
	s := BuildExtractionSchema([]string{"Haemoglobin", "Remarks"})
	data := []byte(`{"Haemoglobin": 12.6, "Haemoglobin_Flag": "HIGH", "Remarks": "mild anaemia"}`)
	require.NoError(t, ValidateJSONAgainstSchema(s, data))
}

func TestValidateAcceptsNulls(t *testing.T) {
	s := BuildExtractionSchema([]string{"Haemoglobin"})
	require.NoError(t, ValidateJSONAgainstSchema(s, []byte(`{"Haemoglobin": null, "Haemoglobin_Flag": null}`)))
}

func TestValidateRejectsUnknownKey(t *testing.T) {
	s := BuildExtractionSchema([]string{"Haemoglobin"})
	err := ValidateJSONAgainstSchema(s, []byte(`{"Haemoglobin": 12.6, "Invented": 1}`))
	assert.Error(t, err)
}

func TestValidateRejectsBadFlag(t *testing.T) {
	s := BuildExtractionSchema([]string{"Haemoglobin"})
	err := ValidateJSONAgainstSchema(s, []byte(`{"Haemoglobin_Flag": "ELEVATED"}`))
	assert.Error(t, err)
}

func TestValidateRejectsMalformedJSON(t *testing.T) {
	s := BuildExtractionSchema([]string{"Haemoglobin"})
	err := ValidateJSONAgainstSchema(s, []byte(`{"Haemoglobin": `))
	assert.Error(t, err)
}
