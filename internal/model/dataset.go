package model

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/couchcryptid/sivem-incident-service/internal/domain"
)

// ErrMissingFeature is returned when a wide table lacks a feature column.
var ErrMissingFeature = errors.New("missing feature column")

// FieldsFromTable reads model inputs from a processed wide table. The case
// count and vocabulary columns must be present by exact name; the province
// column is resolved with the schema candidates and is optional. Unreadable
// numbers count as 0.
func FieldsFromTable(t domain.Table, s domain.Schema) ([]Fields, error) {
	cases := slices.Index(t.Headers, domain.FieldRegisteredCases)
	if cases < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingFeature, domain.FieldRegisteredCases)
	}
	indicators := make([]int, len(s.Vocabulary))
	for i, c := range s.Vocabulary {
		indicators[i] = slices.Index(t.Headers, c)
		if indicators[i] < 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingFeature, c)
		}
	}
	province, ok := domain.ResolveColumn(t.Headers, s.ProvinceColumns)
	if !ok {
		province = -1
	}

	out := make([]Fields, 0, len(t.Rows))
	for _, row := range t.Rows {
		f := Fields{
			RegisteredCases: number(cellAt(row, cases)),
			Indicators:      make(map[string]float64, len(s.Vocabulary)),
		}
		for i, c := range s.Vocabulary {
			f.Indicators[c] = number(cellAt(row, indicators[i]))
		}
		if province >= 0 {
			f.Province = strings.TrimSpace(cellAt(row, province))
		}
		out = append(out, f)
	}
	return out, nil
}

// FieldsFromSummaries converts persisted wide rows to model inputs.
func FieldsFromSummaries(incs []domain.IncidentSummary) []Fields {
	out := make([]Fields, 0, len(incs))
	for _, inc := range incs {
		f := Fields{
			Province:        inc.Province,
			RegisteredCases: float64(inc.RegisteredCases),
			Indicators:      make(map[string]float64, len(inc.Indicators)),
		}
		for c, v := range inc.Indicators {
			f.Indicators[c] = float64(v)
		}
		out = append(out, f)
	}
	return out
}

func number(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
