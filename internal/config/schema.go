package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/sivem-incident-service/internal/domain"
)

// Schema file validation errors.
var (
	ErrEmptyCandidates   = errors.New("columns: every field needs at least one candidate name")
	ErrBlankCandidate    = errors.New("columns: candidate names must not be blank")
	ErrEmptyVocabulary   = errors.New("vocabulary must list at least one category")
	ErrDuplicateCategory = errors.New("vocabulary categories must be unique after normalization")
	ErrReservedCategory  = errors.New("vocabulary category collides with a derived column name")
	ErrMissingOutputName = errors.New("outputs: long, wide and report file names are required")
)

// SchemaFile is the YAML form of domain.Schema. Omitted sections keep the
// built-in defaults.
//
//	columns:
//	  period: [period, periodo, período]
//	  registered_cases: [registered_cases, casos]
//	  incident_type: [incident_type, tipo]
//	  province: [province, provincia]
//	vocabulary: [baleamentos, detencoes, mortes]
//	outputs:
//	  long: incidentes_clean_long.csv
//	  wide: incidentes_clean_wide.csv
//	  report: incidentes_report.html
type SchemaFile struct {
	Columns struct {
		Period          []string `yaml:"period"`
		RegisteredCases []string `yaml:"registered_cases"`
		IncidentType    []string `yaml:"incident_type"`
		Province        []string `yaml:"province"`
	} `yaml:"columns"`
	Vocabulary []string `yaml:"vocabulary"`
	Outputs    struct {
		Long   string `yaml:"long"`
		Wide   string `yaml:"wide"`
		Report string `yaml:"report"`
	} `yaml:"outputs"`
}

// LoadSchema reads and validates a YAML schema file.
func LoadSchema(path string) (domain.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Schema{}, fmt.Errorf("read schema file: %w", err)
	}
	return ParseSchema(data)
}

// ParseSchema decodes YAML over the default schema and validates the result.
func ParseSchema(data []byte) (domain.Schema, error) {
	var f SchemaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return domain.Schema{}, fmt.Errorf("parse schema file: %w", err)
	}

	s := domain.DefaultSchema()
	override(&s.PeriodColumns, f.Columns.Period)
	override(&s.CasesColumns, f.Columns.RegisteredCases)
	override(&s.TypeColumns, f.Columns.IncidentType)
	override(&s.ProvinceColumns, f.Columns.Province)
	if f.Vocabulary != nil {
		s.Vocabulary = make([]string, len(f.Vocabulary))
		for i, c := range f.Vocabulary {
			s.Vocabulary[i] = domain.NormalizeToken(c)
		}
	}
	if f.Outputs.Long != "" {
		s.LongFile = f.Outputs.Long
	}
	if f.Outputs.Wide != "" {
		s.WideFile = f.Outputs.Wide
	}
	if f.Outputs.Report != "" {
		s.ReportFile = f.Outputs.Report
	}

	if err := ValidateSchema(s); err != nil {
		return domain.Schema{}, err
	}
	return s, nil
}

// ValidateSchema checks a schema for structural problems.
func ValidateSchema(s domain.Schema) error {
	for _, c := range [][]string{s.PeriodColumns, s.CasesColumns, s.TypeColumns, s.ProvinceColumns} {
		if len(c) == 0 {
			return ErrEmptyCandidates
		}
		for _, name := range c {
			// A blank name is a substring of every header.
			if domain.NormalizeName(name) == "" {
				return fmt.Errorf("%w: %q", ErrBlankCandidate, name)
			}
		}
	}
	if len(s.Vocabulary) == 0 {
		return ErrEmptyVocabulary
	}

	reserved := map[string]bool{
		domain.FieldStartDate:       true,
		domain.FieldRegisteredCases: true,
		domain.FieldTypes:           true,
		domain.FieldProvince:        true,
	}
	seen := make(map[string]bool, len(s.Vocabulary))
	for _, c := range s.Vocabulary {
		key := domain.NormalizeToken(c)
		if reserved[key] {
			return fmt.Errorf("%w: %q", ErrReservedCategory, c)
		}
		if key == "" || seen[key] {
			return fmt.Errorf("%w: %q", ErrDuplicateCategory, c)
		}
		seen[key] = true
	}

	if s.LongFile == "" || s.WideFile == "" || s.ReportFile == "" {
		return ErrMissingOutputName
	}
	return nil
}

func override(dst *[]string, src []string) {
	if len(src) > 0 {
		*dst = src
	}
}
