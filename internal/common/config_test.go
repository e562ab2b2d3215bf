package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Routing.TextMinChars)
	assert.Equal(t, 200, cfg.Routing.GraphMaxChars)
	assert.Equal(t, 3, cfg.Routing.MinPatternFields)
	assert.Equal(t, 0.1, cfg.Routing.NumericTolerance)
	assert.Equal(t, 0.8, cfg.OCR.ConfidenceThreshold)
	assert.Equal(t, 5, cfg.Batch.Workers)
	assert.Equal(t, 150, cfg.Inference.RequestsPerMinute)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("MAX_WORKERS", "8")
	t.Setenv("OCR_CONFIDENCE_THRESHOLD", "0.9")
	t.Setenv("DOCUMENT_TIMEOUT", "5m")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Batch.Workers)
	assert.Equal(t, 0.9, cfg.OCR.ConfidenceThreshold)
	assert.Equal(t, 5*time.Minute, cfg.Batch.DocumentTimeout)
}

func TestLoadConfigYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
routing:
  min_pattern_fields: 4
ocr:
  language: eng+hin
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Routing.MinPatternFields)
	assert.Equal(t, "eng+hin", cfg.OCR.Language)
	// Untouched sections keep their defaults.
	assert.Equal(t, 100, cfg.Routing.TextMinChars)
}

func TestValidateRequiresAPIKey(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	cfg.Inference.APIKey = ""
	assert.Error(t, cfg.Validate())

	cfg.Inference.APIKey = "sk-test"
	assert.NoError(t, cfg.Validate())
}
