package pattern

import "regexp"

const number = `(\d+(?:\.\d+)?)`

// Out-of-range markers printed next to a value ("12.6 L") or alone on the
// following line.
var (
	inlineFlagRe     = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s+(H|L|High|Low|↑|↓)(?:\W|$)`)
	standaloneFlagRe = regexp.MustCompile(`(?i)^(H|L|High|Low|↑|↓)$`)
)

// numericPatterns capture the value in group 1. Label variants cover the
// common Indian lab report layouts.
var numericPatterns = []struct {
	re    *regexp.Regexp
	field string
}{
	{regexp.MustCompile(`(?i)(?:Haemoglobin|Hemoglobin|HB%?|Hb)\s*[:\-]?\s*` + number), "Haemoglobin"},
	{regexp.MustCompile(`(?i)(?:RBC(?:\s+Count)?|R\.?B\.?C\.?(?:\s+Count)?|Red\s+Blood\s+Cell(?:\s+Count)?)\s*[:\-]?\s*` + number), "Red_Blood_Cell_Count"},
	{regexp.MustCompile(`(?i)(?:Haematocrit|Hematocrit|HCT|PCV|P\.?C\.?V\.?)\s*[:\-]?\s*` + number), "Hct"},
	{regexp.MustCompile(`(?i)MCV\s*[:\-]?\s*` + number), "MCV"},
	{regexp.MustCompile(`(?i)\bMCH\b\s*[:\-]?\s*` + number), "MCH"},
	{regexp.MustCompile(`(?i)MCHC\s*[:\-]?\s*` + number), "MCHC"},
	{regexp.MustCompile(`(?i)RDW[-\s]?CV\s*[:\-]?\s*` + number), "RDW_CV"},
	{regexp.MustCompile(`(?i)RDW[-\s]?SD\s*[:\-]?\s*` + number), "RDW_SD"},
	{regexp.MustCompile(`(?i)(?:Total\s+(?:Leucocyte|Leukocyte|WBC)\s+Count|TLC|Total\s+W\.?B\.?C\.?(?:\s+Count)?)\s*[:\-]?\s*` + number), "TLC"},
	{regexp.MustCompile(`(?i)(?:Neutrophils?|Neut%?)\s*[:\-]?\s*` + number), "Neutrophil_Percent"},
	{regexp.MustCompile(`(?i)(?:Lymphocytes?|Lymph%?)\s*[:\-]?\s*` + number), "Lymphocyte_Percent"},
	{regexp.MustCompile(`(?i)(?:Eosinophils?|Eos%?)\s*[:\-]?\s*` + number), "Eosinophils_Percent"},
	{regexp.MustCompile(`(?i)(?:Monocytes?|Mono%?)\s*[:\-]?\s*` + number), "Monocytes_Percent"},
	{regexp.MustCompile(`(?i)(?:Basophils?|Baso%?)\s*[:\-]?\s*` + number), "Basophils_Percent"},
	{regexp.MustCompile(`(?i)Neutrophils?\s+(?:Absolute|Abs\.?)\s*[:\-]?\s*` + number), "Neutrophils_Absolute"},
	{regexp.MustCompile(`(?i)Lymphocytes?\s+(?:Absolute|Abs\.?)\s*[:\-]?\s*` + number), "Lymphocytes_Absolute"},
	{regexp.MustCompile(`(?i)Eosinophils?\s+(?:Absolute|Abs\.?)\s*[:\-]?\s*` + number), "Eosinophils_Absolute"},
	{regexp.MustCompile(`(?i)Monocytes?\s+(?:Absolute|Abs\.?)\s*[:\-]?\s*` + number), "Monocytes_Absolute"},
	{regexp.MustCompile(`(?i)Basophils?\s+(?:Absolute|Abs\.?)\s*[:\-]?\s*` + number), "Basophils_Absolute"},
	{regexp.MustCompile(`(?i)(?:Platelet(?:\s+Count)?|PLT|Plt(?:\s+Count)?)\s*[:\-]?\s*` + number), "Platelet_Count"},
	{regexp.MustCompile(`(?i)\bMPV\b\s*[:\-]?\s*` + number), "MPV"},
	{regexp.MustCompile(`(?i)(?:E\.?S\.?R\.?\*?|Erythrocyte\s+Sedimentation\s+Rate(?:\s*\(ESR\))?)\s*[:\-]?\s*` + number), "ESR"},
	{regexp.MustCompile(`(?i)(?:Blood\s+(?:Sugar|Glucose)\s+Random|Random\s+Blood\s+(?:Sugar|Glucose)|BSR|RBS)\s*[:\-]?\s*` + number), "Blood_Sugar_Random"},
	{regexp.MustCompile(`(?i)(?:S\.?\s*Creatinine|Serum\s+Creatinine|CREATININE)\s*[:\-]?\s*` + number), "Serum_Creatinine"},
	{regexp.MustCompile(`(?i)(?:SGOT(?:/AST)?|S\.?G\.?O\.?T\.?(?:[,/]\s*AST)?|AST)\s*[:\-]?\s*` + number), "SGOT_AST"},
	{regexp.MustCompile(`(?i)(?:SGPT(?:/ALT)?|S\.?G\.?P\.?T\.?(?:[,/]\s*ALT)?|ALT)\s*[:\-]?\s*` + number), "SGPT_ALT"},
}

// vitalsPatterns are numeric identity/vitals fields without paired flags.
var vitalsPatterns = []struct {
	re    *regexp.Regexp
	field string
}{
	{regexp.MustCompile(`(?i)Age\s*[:\-]?\s*(\d+)\s*(?:Y(?:rs?|ears?)?)?`), "Age"},
	{regexp.MustCompile(`(?i)(?:Height|Ht\.?)\s*[:\-]?\s*` + number), "Height"},
	{regexp.MustCompile(`(?i)(?:Weight|Wt\.?)\s*[:\-]?\s*` + number), "Weight"},
	{regexp.MustCompile(`(?i)BMI\s*[:\-]?\s*` + number), "BMI"},
	{regexp.MustCompile(`(?i)(?:Pulse(?:\s+Rate)?|PR)\s*[:\-]?\s*(\d+)`), "Pulse"},
}

var (
	bpRe = regexp.MustCompile(`(?i)(?:BP|Blood\s+Pressure)\s*[:\-]?\s*(\d{2,3}\s*/\s*\d{2,3})`)

	// The terminator set stops the name capture at layout boundaries;
	// it is consumed, not looked ahead, so group 1 stays the name alone.
	nameRe     = regexp.MustCompile(`(?m)(?:Patient\s+Name|Name\s+of\s+Patient|Patient|Name)\s*[:\-]\s*([A-Z][A-Za-z .]{2,50}?)(?:\r|\n|$|\s{2}|Age|DOB|Sex|Gender|Mr\.|Mrs\.)`)
	nameStopRe = regexp.MustCompile(`(?i)^(Report|Lab|Date|Test)$`)

	genderRe     = regexp.MustCompile(`(?i)(?:Gender|Sex)\s*[:\-]?\s*(Male|Female|M|F)\b`)
	bloodGroupRe = regexp.MustCompile(`(?i)(?:Blood\s+Group(?:\s*\(ABO\))?|ABO\s+Group)\s*[:\-]?\s*(AB|A|B|O)\b(?:\s*(Positive|\+|Negative|-))?`)
	rhRe         = regexp.MustCompile(`(?i)(?:Rh(?:\s+(?:Factor|Type))?|RHESUS)\s*[:\-]?\s*(Positive|\+|Negative|-)`)
	empCodeRe    = regexp.MustCompile(`(?i)(?:Emp(?:loyee)?\s*(?:Code|ID|No\.?)|EMP(?:CODE|ID|NO))\s*[:\-]?\s*([A-Za-z0-9\-_/]{2,20})`)
	uhidRe       = regexp.MustCompile(`(?i)(?:UHID\s*(?:No\.?|Number)?|U\.?H\.?I\.?D\.?)\s*[:\-]?\s*([A-Za-z0-9\-_/]{2,20})`)
)
