package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Dataset is the result of one normalization pass.
type Dataset struct {
	// Headers are the original headers, plus "province" when it was synthesized.
	Headers []string
	Columns ColumnMap
	// ProvinceSynthesized is true when the input had no province column.
	ProvinceSynthesized bool
	Vocabulary          []string
	Records             []CanonicalRecord
}

// LongRow is one (record, category) pair.
type LongRow struct {
	Record *CanonicalRecord
	Type   string
}

// WideRow is one record with a 0/1 indicator per vocabulary category,
// aligned with Dataset.Vocabulary.
type WideRow struct {
	Record     *CanonicalRecord
	Indicators []int
}

// Normalizer turns raw spreadsheet tables into canonical records under a
// fixed schema. It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	schema Schema
}

// NewNormalizer creates a Normalizer bound to a private copy of s.
func NewNormalizer(s Schema) *Normalizer {
	return &Normalizer{schema: s.Clone()}
}

// Schema returns a copy of the normalizer's schema.
func (n *Normalizer) Schema() Schema { return n.schema.Clone() }

// Normalize resolves columns and normalizes every row of t. It fails only
// when a required column is missing; bad cells degrade to missing values.
func (n *Normalizer) Normalize(t Table) (*Dataset, error) {
	cols, err := ResolveColumns(t.Headers, n.schema)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		Headers:    slices.Clone(t.Headers),
		Columns:    cols,
		Vocabulary: slices.Clone(n.schema.Vocabulary),
		Records:    make([]CanonicalRecord, 0, len(t.Rows)),
	}
	if cols.Province < 0 {
		ds.Headers = append(ds.Headers, FieldProvince)
		ds.Columns.Province = len(ds.Headers) - 1
		ds.ProvinceSynthesized = true
	}

	for i, row := range t.Rows {
		ds.Records = append(ds.Records, n.normalizeRow(i, row, ds))
	}
	return ds, nil
}

func (n *Normalizer) normalizeRow(index int, row []string, ds *Dataset) CanonicalRecord {
	fields := make([]string, len(ds.Headers))
	copy(fields, row)

	rec := CanonicalRecord{
		ID:       generateID(index, fields),
		Fields:   fields,
		Types:    SplitTypes(cell(fields, ds.Columns.Type)),
		Province: strings.TrimSpace(cell(fields, ds.Columns.Province)),
	}
	if d, ok := ParsePeriod(cell(fields, ds.Columns.Period)); ok {
		rec.StartDate = CorrectYear(d)
	}
	rec.RegisteredCases, rec.CasesValid = parseCases(cell(fields, ds.Columns.Cases))
	return rec
}

// Long expands the dataset into one row per record category. Records with no
// categories contribute no rows.
func (d *Dataset) Long() []LongRow {
	var out []LongRow
	for i := range d.Records {
		rec := &d.Records[i]
		for _, t := range rec.Types {
			out = append(out, LongRow{Record: rec, Type: t})
		}
	}
	return out
}

// Wide expands the dataset into one row per record with vocabulary indicators.
// Categories outside the vocabulary are dropped.
func (d *Dataset) Wide() []WideRow {
	out := make([]WideRow, 0, len(d.Records))
	for i := range d.Records {
		rec := &d.Records[i]
		ind := make([]int, len(d.Vocabulary))
		for j, c := range d.Vocabulary {
			if rec.HasType(c) {
				ind[j] = 1
			}
		}
		out = append(out, WideRow{Record: rec, Indicators: ind})
	}
	return out
}

// LongTable renders the long rows with their output header.
func (d *Dataset) LongTable() Table {
	headers, pos := d.outputHeaders([]string{FieldStartDate, FieldRegisteredCases, FieldTypes})
	rows := make([][]string, 0, len(d.Records))
	for _, lr := range d.Long() {
		cells := d.baseCells(lr.Record, len(headers), pos)
		cells[pos[FieldTypes]] = lr.Type
		rows = append(rows, cells)
	}
	return Table{Headers: headers, Rows: rows}
}

// WideTable renders the wide rows with their output header.
func (d *Dataset) WideTable() Table {
	derived := append([]string{FieldStartDate, FieldRegisteredCases}, d.Vocabulary...)
	headers, pos := d.outputHeaders(derived)
	rows := make([][]string, 0, len(d.Records))
	for _, wr := range d.Wide() {
		cells := d.baseCells(wr.Record, len(headers), pos)
		for j, c := range d.Vocabulary {
			cells[pos[c]] = strconv.Itoa(wr.Indicators[j])
		}
		rows = append(rows, cells)
	}
	return Table{Headers: headers, Rows: rows}
}

// Summaries returns the model-facing view of every wide row.
func (d *Dataset) Summaries() []IncidentSummary {
	out := make([]IncidentSummary, 0, len(d.Records))
	for _, wr := range d.Wide() {
		ind := make(map[string]int, len(d.Vocabulary))
		for j, c := range d.Vocabulary {
			ind[c] = wr.Indicators[j]
		}
		out = append(out, IncidentSummary{
			ID:              wr.Record.ID,
			Province:        wr.Record.Province,
			StartDate:       wr.Record.StartDate,
			RegisteredCases: wr.Record.RegisteredCases,
			Types:           slices.Clone(wr.Record.Types),
			Indicators:      ind,
		})
	}
	return out
}

// outputHeaders appends derived columns to the dataset headers. A derived
// column whose name already exists overwrites that column in place.
func (d *Dataset) outputHeaders(derived []string) ([]string, map[string]int) {
	headers := slices.Clone(d.Headers)
	pos := make(map[string]int, len(derived))
	for _, name := range derived {
		if i := slices.Index(headers, name); i >= 0 {
			pos[name] = i
			continue
		}
		headers = append(headers, name)
		pos[name] = len(headers) - 1
	}
	return headers, pos
}

func (d *Dataset) baseCells(rec *CanonicalRecord, width int, pos map[string]int) []string {
	cells := make([]string, width)
	copy(cells, rec.Fields)
	cells[pos[FieldStartDate]] = rec.FormatDate()
	cells[pos[FieldRegisteredCases]] = strconv.Itoa(rec.RegisteredCases)
	return cells
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// String summarizes the dataset for logs.
func (d *Dataset) String() string {
	return fmt.Sprintf("dataset{records=%d, columns=%d, vocabulary=%v}", len(d.Records), len(d.Headers), d.Vocabulary)
}
