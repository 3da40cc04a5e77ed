package domain

import "slices"

// Semantic field names. They double as the derived output column names.
const (
	FieldPeriod          = "period"
	FieldRegisteredCases = "registered_cases"
	FieldIncidentType    = "incident_type"
	FieldProvince        = "province"
	FieldStartDate       = "start_date"
	FieldTypes           = "types"
)

// Fixed vocabulary categories.
const (
	CategoryShootings  = "baleamentos"
	CategoryDetentions = "detencoes"
	CategoryDeaths     = "mortes"
)

// Schema is the immutable configuration of one normalization job: the
// candidate header names per field in priority order, the fixed category
// vocabulary, and the output file names. [NewNormalizer] takes a private copy,
// so later edits to the caller's slices do not reach a running job.
type Schema struct {
	PeriodColumns   []string
	CasesColumns    []string
	TypeColumns     []string
	ProvinceColumns []string

	Vocabulary []string

	LongFile   string
	WideFile   string
	ReportFile string
}

// DefaultSchema returns the schema used for the 2024 monitoring spreadsheet.
func DefaultSchema() Schema {
	return Schema{
		PeriodColumns:   []string{"period", "periodo", "período"},
		CasesColumns:    []string{"registered_cases", "casos_registados", "casos", "registados"},
		TypeColumns:     []string{"incident_type", "tipo_incidente", "tipo", "incidente", "incidentes"},
		ProvinceColumns: []string{"province", "provincia", "província"},
		Vocabulary:      []string{CategoryShootings, CategoryDetentions, CategoryDeaths},
		LongFile:        "incidentes_clean_long.csv",
		WideFile:        "incidentes_clean_wide.csv",
		ReportFile:      "incidentes_report.html",
	}
}

// Clone returns a deep copy of s.
func (s Schema) Clone() Schema {
	s.PeriodColumns = slices.Clone(s.PeriodColumns)
	s.CasesColumns = slices.Clone(s.CasesColumns)
	s.TypeColumns = slices.Clone(s.TypeColumns)
	s.ProvinceColumns = slices.Clone(s.ProvinceColumns)
	s.Vocabulary = slices.Clone(s.Vocabulary)
	return s
}
