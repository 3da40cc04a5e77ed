package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingColumn means the input does not carry a required field at all.
// It is a configuration error: the file does not match the expected schema.
var ErrMissingColumn = errors.New("required column not found")

// ColumnMap holds the resolved header index of each semantic field.
// Province is -1 when the input has no province column.
type ColumnMap struct {
	Period   int
	Cases    int
	Type     int
	Province int
}

// ResolveColumn returns the index of the header that best matches the ordered
// candidates, or false when nothing matches.
//
// Exact matches on the normalized name are tried for every candidate first.
// Only if none hits does the substring tier run, where either string may
// contain the other. Both tiers iterate candidates in priority order, so a
// higher-priority candidate with a weak match beats a lower one with a strong
// match inside the same tier.
func ResolveColumn(headers, candidates []string) (int, bool) {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeName(h)
	}

	for _, cand := range candidates {
		cn := NormalizeName(cand)
		for i, nh := range normalized {
			if cn == nh {
				return i, true
			}
		}
	}

	for _, cand := range candidates {
		cn := NormalizeName(cand)
		for i, nh := range normalized {
			if strings.Contains(nh, cn) || strings.Contains(cn, nh) {
				return i, true
			}
		}
	}

	return -1, false
}

// ResolveColumns locates every semantic field of the schema in headers.
// Missing period, case count or incident type is fatal; a missing province
// is reported as index -1.
func ResolveColumns(headers []string, s Schema) (ColumnMap, error) {
	var cm ColumnMap
	required := []struct {
		field      string
		candidates []string
		dst        *int
	}{
		{FieldPeriod, s.PeriodColumns, &cm.Period},
		{FieldRegisteredCases, s.CasesColumns, &cm.Cases},
		{FieldIncidentType, s.TypeColumns, &cm.Type},
	}
	for _, r := range required {
		idx, ok := ResolveColumn(headers, r.candidates)
		if !ok {
			return ColumnMap{}, fmt.Errorf("resolve %s: %w", r.field, ErrMissingColumn)
		}
		*r.dst = idx
	}

	cm.Province = -1
	if idx, ok := ResolveColumn(headers, s.ProvinceColumns); ok {
		cm.Province = idx
	}
	return cm, nil
}
