package route

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labwise/medextract/internal/extract"
	"github.com/labwise/medextract/internal/ratelimit"
	"github.com/labwise/medextract/internal/record"
)

func textPages(texts ...string) []extract.Page {
	pages := make([]extract.Page, len(texts))
	for i, t := range texts {
		pages[i] = extract.Page{Number: i + 1, Text: t}
	}
	return pages
}

func TestSafetyNetRecoversMissedFields(t *testing.T) {
	ad := &fakeAdapter{res: extract.InferenceResult{
		Fields:       map[string]any{"Blood_Group": "O", "Rh_Type": "Positive"},
		InputTokens:  800,
		OutputTokens: 40,
	}}
	merger := record.NewMerger(0.1)
	rec := record.New()
	s := NewSafetyNet(ad, ratelimit.New(0), merger, 100, nil)

	pages := textPages(strings.Repeat("Blood Group O Positive reported on requisition form. ", 5))
	out, err := s.Run(context.Background(), pages, rec)
	require.NoError(t, err)
	assert.True(t, out.ExternalCall)
	assert.Equal(t, "text", out.Mode)
	assert.Equal(t, 800, out.InputTokens)

	require.Len(t, ad.calls, 1)
	assert.Nil(t, ad.calls[0].Image)
	assert.True(t, rec.Has("Blood_Group"))
	assert.True(t, rec.Has("Rh_Type"))
}

func TestSafetyNetSkipsThinDocuments(t *testing.T) {
	ad := &fakeAdapter{}
	s := NewSafetyNet(ad, ratelimit.New(0), record.NewMerger(0.1), 100, nil)

	out, err := s.Run(context.Background(), textPages("short"), record.New())
	require.NoError(t, err)
	assert.False(t, out.ExternalCall)
	assert.Empty(t, ad.calls)
}

func TestSafetyNetSkipsWhenOnlyOptionalMissing(t *testing.T) {
	ad := &fakeAdapter{}
	merger := record.NewMerger(0.1)
	rec := record.New()
	optional := map[string]bool{
		"EmpCode": true, "UHIDNo": true, "Mobile": true, "Remarks": true, "Suggestion": true,
	}
	for _, v := range allFieldValues() {
		if optional[v.Name] {
			continue
		}
		merger.Merge(rec, v)
	}
	s := NewSafetyNet(ad, ratelimit.New(0), merger, 100, nil)

	pages := textPages(strings.Repeat("plenty of embedded report text here. ", 10))
	out, err := s.Run(context.Background(), pages, rec)
	require.NoError(t, err)
	assert.False(t, out.ExternalCall)
	assert.Empty(t, ad.calls)
}

func TestSafetyNetRequestsOnlyNullFields(t *testing.T) {
	ad := &fakeAdapter{res: extract.InferenceResult{Fields: map[string]any{}}}
	merger := record.NewMerger(0.1)
	rec := record.New()
	hb := 12.6
	merger.Merge(rec, record.FieldValue{Name: "Haemoglobin", Number: &hb, Source: record.SourceDeterministic})
	s := NewSafetyNet(ad, ratelimit.New(0), merger, 100, nil)

	pages := textPages(strings.Repeat("full laboratory report text for the patient. ", 5))
	_, err := s.Run(context.Background(), pages, rec)
	require.NoError(t, err)
	require.Len(t, ad.calls, 1)
	assert.NotContains(t, ad.calls[0].Fields, "Haemoglobin")
	assert.Contains(t, ad.calls[0].Fields, "Blood_Group")
}
