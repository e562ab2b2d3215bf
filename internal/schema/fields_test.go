package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamesUniqueAndOrdered(t *testing.T) {
	names := Names()
	require.NotEmpty(t, names)
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		assert.False(t, seen[n], "duplicate field %s", n)
		seen[n] = true
	}
	assert.Equal(t, "EmpCode", names[0])
	assert.Equal(t, "Suggestion", names[len(names)-1])
}

func TestCriticalFields(t *testing.T) {
	assert.ElementsMatch(t,
		[]string{"Haemoglobin", "Blood_Group", "SGOT_AST", "SGPT_ALT", "Serum_Creatinine"},
		CriticalFields())
}

func TestIsFlagKey(t *testing.T) {
	parent, ok := IsFlagKey("Haemoglobin_Flag")
	require.True(t, ok)
	assert.Equal(t, "Haemoglobin", parent)

	// Age has no paired flag.
	_, ok = IsFlagKey("Age_Flag")
	assert.False(t, ok)

	_, ok = IsFlagKey("Haemoglobin")
	assert.False(t, ok)

	_, ok = IsFlagKey("Unknown_Flag")
	assert.False(t, ok)
}

func TestGraphField(t *testing.T) {
	assert.Equal(t, "AUDIOMETRY", GraphField(GraphAudiogram))
	assert.Equal(t, "PFT", GraphField(GraphTMT))
	assert.Equal(t, "PFT", GraphField(GraphSpirometry))
	assert.Equal(t, "", GraphField(GraphECG))
	assert.Equal(t, "", GraphField(GraphGeneric))
}

func TestLookupCategories(t *testing.T) {
	hb, ok := Lookup("Haemoglobin")
	require.True(t, ok)
	assert.Equal(t, Numeric, hb.Category)
	assert.True(t, hb.HasFlag)

	bg, ok := Lookup("Blood_Group")
	require.True(t, ok)
	assert.Equal(t, Enum, bg.Category)

	name, ok := Lookup("PatientName")
	require.True(t, ok)
	assert.Equal(t, Identity, name.Category)
	assert.True(t, name.AlwaysRequest)

	_, ok = Lookup("NoSuchField")
	assert.False(t, ok)
}
