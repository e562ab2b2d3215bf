// Package schema is the single source of truth for the patient-record field
// set: names, order, semantic category, paired out-of-range flags, critical
// fields, request-pruning aliases, display names, and plausibility ranges.
package schema

import "strings"

// Category tags a field's semantic class. The merge priority table is keyed
// on it: numeric lab values and enumerated results trust the pattern layer,
// narrative and identity fields trust external inference.
type Category string

const (
	Numeric   Category = "numeric"
	Narrative Category = "narrative"
	Identity  Category = "identity"
	Enum      Category = "enum"
)

// FieldDef describes one field of the patient record.
type FieldDef struct {
	Name     string
	Display  string
	Category Category

	// HasFlag pairs the field with a HIGH/LOW out-of-range marker.
	HasFlag bool

	// Critical fields at LOW confidence are flagged for human review.
	Critical bool

	// Optional fields excluded from unrecovered-field reporting.
	Optional bool

	// AlwaysRequest keeps the field in every escalation request even when
	// no alias appears in the page text (visual or header content).
	AlwaysRequest bool

	// Aliases are lowercase substrings used to prune text-mode escalation
	// requests. Deliberately broad: a kept false positive is harmless, a
	// dropped field that IS present is lost for good.
	Aliases []string

	// Plausible value range; Min==Max==0 means unchecked.
	Min, Max float64
}

var fields = []FieldDef{
	// Identity
	{Name: "EmpCode", Display: "EmpCode", Category: Identity, Optional: true, AlwaysRequest: true},
	{Name: "UHIDNo", Display: "UHIDNo.", Category: Identity, Optional: true, AlwaysRequest: true},
	{Name: "PatientName", Display: "PatientName", Category: Identity, AlwaysRequest: true},
	{Name: "Age", Display: "Age", Category: Identity, Aliases: []string{"age"}, Min: 1, Max: 120},
	{Name: "Gender", Display: "Gender", Category: Identity, Aliases: []string{"gender", "sex"}},
	{Name: "Height", Display: "Height", Category: Numeric, Aliases: []string{"height", " ht "}},
	{Name: "Weight", Display: "Weight", Category: Numeric, Aliases: []string{"weight", " wt "}},
	{Name: "BMI", Display: "BMI", Category: Numeric, Aliases: []string{"bmi"}, Min: 10, Max: 70},
	{Name: "BP", Display: "BP", Category: Enum, Aliases: []string{"bp", "blood pressure"}},
	{Name: "Pulse", Display: "Pulse", Category: Numeric, Aliases: []string{"pulse", " pr "}, Min: 30, Max: 220},
	{Name: "Mobile", Display: "Mobile", Category: Identity, Optional: true, AlwaysRequest: true},

	// Biochemistry
	{Name: "Blood_Sugar_Random", Display: "Blood Sugar Random", Category: Numeric, HasFlag: true,
		Aliases: []string{"blood sugar", "blood glucose", "bsr", " rbs "}, Min: 20, Max: 700},

	// Blood group
	{Name: "Blood_Group", Display: "Blood Group", Category: Enum, Critical: true,
		Aliases: []string{"blood group", "abo group", "blood grp"}},
	{Name: "Rh_Type", Display: "Rh Type", Category: Enum, Aliases: []string{"rh ", "rhesus"}},

	// CBC: red cell
	{Name: "Haemoglobin", Display: "Haemoglobin", Category: Numeric, HasFlag: true, Critical: true,
		Aliases: []string{"haemoglobin", "hemoglobin", "hb%", " hb "}, Min: 3, Max: 25},
	{Name: "Red_Blood_Cell_Count", Display: "Red Blood Cell Count", Category: Numeric, HasFlag: true,
		Aliases: []string{"rbc", "r.b.c", "red blood cell"}, Min: 1, Max: 10},
	{Name: "Hct", Display: "Hct", Category: Numeric, HasFlag: true,
		Aliases: []string{"hct", "pcv", "p.c.v", "haematocrit", "hematocrit"}, Min: 5, Max: 65},
	{Name: "MCV", Display: "MCV", Category: Numeric, HasFlag: true, Aliases: []string{"mcv"}, Min: 50, Max: 130},
	{Name: "MCH", Display: "MCH", Category: Numeric, HasFlag: true, Aliases: []string{" mch "}, Min: 10, Max: 50},
	{Name: "MCHC", Display: "MCHC", Category: Numeric, HasFlag: true, Aliases: []string{"mchc"}, Min: 20, Max: 40},
	{Name: "RDW_CV", Display: "RDW - CV", Category: Numeric, HasFlag: true, Aliases: []string{"rdw"}},
	{Name: "RDW_SD", Display: "RDW - SD", Category: Numeric, HasFlag: true, Aliases: []string{"rdw"}},

	// CBC: white cell
	{Name: "TLC", Display: "TLC", Category: Numeric, HasFlag: true,
		Aliases: []string{"tlc", "wbc", "leucocyte", "leukocyte", "total wbc"}, Min: 0.5, Max: 100},
	{Name: "Neutrophil_Percent", Display: "Neutrophil %", Category: Numeric, HasFlag: true,
		Aliases: []string{"neutrophil", "neut"}, Min: 0, Max: 100},
	{Name: "Lymphocyte_Percent", Display: "Lymphocyte %", Category: Numeric, HasFlag: true,
		Aliases: []string{"lymphocyte", "lymph"}, Min: 0, Max: 100},
	{Name: "Eosinophils_Percent", Display: "Eosinophils %", Category: Numeric, HasFlag: true,
		Aliases: []string{"eosinophil", "eos"}, Min: 0, Max: 60},
	{Name: "Monocytes_Percent", Display: "Monocytes %", Category: Numeric, HasFlag: true,
		Aliases: []string{"monocyte", "mono"}, Min: 0, Max: 30},
	{Name: "Basophils_Percent", Display: "Basophils %", Category: Numeric, HasFlag: true,
		Aliases: []string{"basophil", "baso"}, Min: 0, Max: 10},

	// CBC: absolute counts
	{Name: "Neutrophils_Absolute", Display: "Neutrophils (Abs)", Category: Numeric, Aliases: []string{"neutrophil", "neut"}},
	{Name: "Lymphocytes_Absolute", Display: "Lymphocytes (Abs)", Category: Numeric, Aliases: []string{"lymphocyte", "lymph"}},
	{Name: "Eosinophils_Absolute", Display: "Eosinophils (Abs)", Category: Numeric, Aliases: []string{"eosinophil"}},
	{Name: "Monocytes_Absolute", Display: "Monocytes (Abs)", Category: Numeric, Aliases: []string{"monocyte"}},
	{Name: "Basophils_Absolute", Display: "Basophils (Abs)", Category: Numeric, Aliases: []string{"basophil"}},

	// CBC: platelets / other
	{Name: "Platelet_Count", Display: "Platelet Count", Category: Numeric, HasFlag: true,
		Aliases: []string{"platelet", "plt"}, Min: 10, Max: 1500},
	{Name: "MPV", Display: "MPV", Category: Numeric, HasFlag: true, Aliases: []string{"mpv"}},
	{Name: "ESR", Display: "ESR", Category: Numeric, HasFlag: true,
		Aliases: []string{"esr", "e.s.r", "erythrocyte sedimentation"}, Min: 0, Max: 150},

	// Biochemistry continued
	{Name: "Serum_Creatinine", Display: "Serum Creatinine", Category: Numeric, HasFlag: true, Critical: true,
		Aliases: []string{"creatinine", "s.creatinine"}, Min: 0.1, Max: 20},
	{Name: "SGOT_AST", Display: "SGOT / AST", Category: Numeric, HasFlag: true, Critical: true,
		Aliases: []string{"sgot", "s.g.o.t", " ast "}, Min: 5, Max: 2000},
	{Name: "SGPT_ALT", Display: "SGPT / ALT", Category: Numeric, HasFlag: true, Critical: true,
		Aliases: []string{"sgpt", "s.g.p.t", " alt "}, Min: 5, Max: 2000},

	// Urine
	{Name: "Urine_Colour", Display: "Colour", Category: Narrative, Aliases: []string{"colour", "color", "urine"}},
	{Name: "Urine_Transparency", Display: "Transparency", Category: Narrative, Aliases: []string{"transparency", "urine"}},
	{Name: "Urine_Protein_Albumin", Display: "Protein (Albumin)", Category: Narrative, Aliases: []string{"protein", "albumin"}},
	{Name: "Urine_Glucose", Display: "Glucose", Category: Narrative, Aliases: []string{"glucose", "urine"}},
	{Name: "Urine_Bilirubin", Display: "Bilirubin", Category: Narrative, Aliases: []string{"bilirubin"}},
	{Name: "Urine_Blood", Display: "Blood", Category: Narrative, Aliases: []string{"urine blood", "blood urine"}},
	{Name: "Urine_Casts", Display: "Casts", Category: Narrative, Aliases: []string{"casts"}},
	{Name: "Urine_Crystals", Display: "Crystals", Category: Narrative, Aliases: []string{"crystals"}},
	{Name: "Urine_RBC", Display: "RBC", Category: Narrative, Aliases: []string{"urine rbc", "rbc urine"}},
	{Name: "Urine_PH", Display: "PH", Category: Numeric, Aliases: []string{"urine ph", " ph "}},
	{Name: "Urine_Specific_Gravity", Display: "Specific Gravity", Category: Numeric,
		Aliases: []string{"specific gravity", "sp. gravity", "sp.gr"}},

	// Speciality tests carry visual content and are always requested.
	{Name: "AUDIOMETRY", Display: "AUDIOMETRY", Category: Narrative, AlwaysRequest: true},
	{Name: "PFT", Display: "PFT", Category: Narrative, AlwaysRequest: true},
	{Name: "XRAY", Display: "X-RAY", Category: Narrative, AlwaysRequest: true},

	// Free text
	{Name: "Remarks", Display: "Remarks", Category: Narrative, Optional: true, AlwaysRequest: true},
	{Name: "Suggestion", Display: "Suggestion", Category: Narrative, Optional: true, AlwaysRequest: true},
}

var byName = func() map[string]FieldDef {
	m := make(map[string]FieldDef, len(fields))
	for _, f := range fields {
		m[f.Name] = f
	}
	return m
}()

// Fields returns all field definitions in canonical (export) order.
func Fields() []FieldDef {
	return fields
}

// Lookup returns the definition for name.
func Lookup(name string) (FieldDef, bool) {
	def, ok := byName[name]
	return def, ok
}

// Names returns all field names in canonical order.
func Names() []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

// CriticalFields returns the fixed set of fields whose LOW confidence
// mandates human review.
func CriticalFields() []string {
	var out []string
	for _, f := range fields {
		if f.Critical {
			out = append(out, f.Name)
		}
	}
	return out
}

// IsFlagKey reports whether key is a paired out-of-range flag key
// ("<field>_Flag") and returns the parent field name.
func IsFlagKey(key string) (string, bool) {
	parent, ok := strings.CutSuffix(key, "_Flag")
	if !ok {
		return "", false
	}
	def, ok := byName[parent]
	if !ok || !def.HasFlag {
		return "", false
	}
	return parent, true
}

// Graph page kinds detected by the classifier's keyword heuristic.
const (
	GraphECG        = "ECG"
	GraphAudiogram  = "AUDIOGRAM"
	GraphTMT        = "TMT"
	GraphSpirometry = "SPIROMETRY_CURVE"
	GraphGeneric    = "GRAPH"
)

// GraphField maps a detected graph type to the record field marked PRESENT.
// ECG and generic graphs have no dedicated column.
func GraphField(graphType string) string {
	switch graphType {
	case GraphAudiogram:
		return "AUDIOMETRY"
	case GraphTMT, GraphSpirometry:
		return "PFT"
	default:
		return ""
	}
}
