package model

import (
	"slices"
	"strconv"

	"github.com/couchcryptid/sivem-incident-service/internal/domain"
)

// Batch prediction output columns.
const (
	ColumnPrediction  = "incident_pred"
	ColumnProbability = "incident_proba"
)

// PredictTable classifies every row of a wide table and returns a copy with
// the label and class-1 probability appended as two columns.
func (m *Model) PredictTable(t domain.Table, s domain.Schema) (domain.Table, error) {
	fields, err := FieldsFromTable(t, s)
	if err != nil {
		return domain.Table{}, err
	}

	out := domain.Table{
		Headers: append(slices.Clone(t.Headers), ColumnPrediction, ColumnProbability),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, f := range fields {
		p, err := m.PredictFields(f)
		if err != nil {
			return domain.Table{}, err
		}
		row := make([]string, len(t.Headers), len(t.Headers)+2)
		copy(row, t.Rows[i])
		out.Rows[i] = append(row,
			strconv.Itoa(p.Label),
			strconv.FormatFloat(p.Probability, 'f', -1, 64),
		)
	}
	return out, nil
}
