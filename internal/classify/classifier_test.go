package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyGraphKeywordShortPage(t *testing.T) {
	c := New(100, 200)

	got := c.Classify("ECG Report\nLead II\n25mm/s")
	assert.Equal(t, KindGraph, got.Kind)
	assert.Equal(t, "ECG", got.GraphType)
}

func TestClassifyGraphKeywordLongPageIsText(t *testing.T) {
	c := New(100, 200)
	// A tabular report that mentions TMT within plenty of text is a text
	// page, not graph output.
	text := "TMT performed earlier. " + strings.Repeat("Haemoglobin 12.6 g/dL. ", 20)

	got := c.Classify(text)
	assert.Equal(t, KindText, got.Kind)
	assert.Empty(t, got.GraphType)
}

func TestClassifyGraphTypes(t *testing.T) {
	c := New(100, 200)
	cases := map[string]string{
		"Audiometry Graph attached": "AUDIOGRAM",
		"audiogram left ear":        "AUDIOGRAM",
		"Treadmill Test Stage 2":    "TMT",
		"Spirometry Curve FEV1":     "SPIROMETRY_CURVE",
		"flow volume loop":          "SPIROMETRY_CURVE",
		"waveform capture":          "GRAPH",
	}
	for text, want := range cases {
		got := c.Classify(text)
		assert.Equal(t, KindGraph, got.Kind, text)
		assert.Equal(t, want, got.GraphType, text)
	}
}

func TestClassifyTextThreshold(t *testing.T) {
	c := New(100, 200)

	long := strings.Repeat("x", 100)
	assert.Equal(t, KindText, c.Classify(long).Kind)

	short := strings.Repeat("x", 99)
	assert.Equal(t, KindScan, c.Classify(short).Kind)
}

func TestClassifyEmptyPageIsScan(t *testing.T) {
	c := New(100, 200)
	assert.Equal(t, KindScan, c.Classify("").Kind)
	assert.Equal(t, KindScan, c.Classify("   \n\t  ").Kind)
}
