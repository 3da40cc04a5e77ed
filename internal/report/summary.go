// Package report aggregates a normalized dataset into the descriptive tables,
// validation flags and figures published alongside the processed CSV files.
package report

import (
	"math"
	"slices"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/sivem-incident-service/internal/domain"
)

// Advisory validation flags. They never abort a run.
const (
	FlagInvalidCases  = "registered_cases com NA"
	FlagNegativeCases = "registered_cases com valores negativos"
	FlagEmptyTypes    = "linhas com incident_type vazio"
)

// ProvinceTotal is the incident count and case sum for one province label.
type ProvinceTotal struct {
	Province        string
	Incidents       int
	RegisteredCases int
}

// PeriodTotal aggregates dated records into a period ending on End.
type PeriodTotal struct {
	End             time.Time
	Events          int
	RegisteredCases int
}

// TypeCount is the number of long rows carrying a category.
type TypeCount struct {
	Type  string
	Count int
}

// Stats mirrors a descriptive summary of one numeric column. With Count 0
// every other field is NaN; with Count 1 Std is NaN.
type Stats struct {
	Count int
	Mean  float64
	Std   float64
	Min   float64
	P25   float64
	P50   float64
	P75   float64
	Max   float64
}

// Summary is everything the report renders for one run.
type Summary struct {
	RunID       string
	GeneratedAt time.Time

	Records      int
	DatedRecords int
	LongRows     int

	Provinces []ProvinceTotal
	Weekly    []PeriodTotal
	Monthly   []PeriodTotal
	Types     []TypeCount
	Cases     Stats

	Flags   []string
	Figures []string
}

// Summarize computes the report tables for ds. It is pure: figures are
// attached later by the Writer.
func Summarize(run domain.Run, ds *domain.Dataset) *Summary {
	s := &Summary{
		RunID:       run.ID,
		GeneratedAt: run.StartedAt,
		Records:     len(ds.Records),
		Provinces:   provinceTotals(ds.Records),
		Weekly:      bucket(ds.Records, weekEnd, nextWeek),
		Monthly:     bucket(ds.Records, monthEnd, nextMonth),
		Types:       typeCounts(ds.Long()),
		Flags:       Validate(ds),
	}
	for _, t := range s.Types {
		s.LongRows += t.Count
	}
	cases := make([]float64, 0, len(ds.Records))
	for _, r := range ds.Records {
		cases = append(cases, float64(r.RegisteredCases))
		if r.HasDate() {
			s.DatedRecords++
		}
	}
	s.Cases = Describe(cases)
	return s
}

// Validate returns the advisory flags raised by ds, in a fixed order.
func Validate(ds *domain.Dataset) []string {
	var invalid, negative, emptyTypes bool
	for _, r := range ds.Records {
		if !r.CasesValid {
			invalid = true
		}
		if r.RegisteredCases < 0 {
			negative = true
		}
		if len(r.Types) == 0 {
			emptyTypes = true
		}
	}
	flags := []string{}
	if invalid {
		flags = append(flags, FlagInvalidCases)
	}
	if negative {
		flags = append(flags, FlagNegativeCases)
	}
	if emptyTypes {
		flags = append(flags, FlagEmptyTypes)
	}
	return flags
}

func provinceTotals(records []domain.CanonicalRecord) []ProvinceTotal {
	idx := make(map[string]int)
	var out []ProvinceTotal
	for _, r := range records {
		if r.Province == "" {
			continue
		}
		i, ok := idx[r.Province]
		if !ok {
			i = len(out)
			idx[r.Province] = i
			out = append(out, ProvinceTotal{Province: r.Province})
		}
		out[i].Incidents++
		out[i].RegisteredCases += r.RegisteredCases
	}
	slices.SortFunc(out, func(a, b ProvinceTotal) int { return strings.Compare(a.Province, b.Province) })
	return out
}

// bucket groups dated records into contiguous periods between the first and
// last record. Periods without records are kept with zero totals.
func bucket(records []domain.CanonicalRecord, end func(time.Time) time.Time, next func(time.Time) time.Time) []PeriodTotal {
	totals := make(map[time.Time]*PeriodTotal)
	var first, last time.Time
	for _, r := range records {
		if !r.HasDate() {
			continue
		}
		e := end(r.StartDate)
		if first.IsZero() || e.Before(first) {
			first = e
		}
		if e.After(last) {
			last = e
		}
		t, ok := totals[e]
		if !ok {
			t = &PeriodTotal{End: e}
			totals[e] = t
		}
		t.Events++
		t.RegisteredCases += r.RegisteredCases
	}
	if first.IsZero() {
		return nil
	}

	var out []PeriodTotal
	for e := first; !e.After(last); e = next(e) {
		if t, ok := totals[e]; ok {
			out = append(out, *t)
		} else {
			out = append(out, PeriodTotal{End: e})
		}
	}
	return out
}

// weekEnd returns the Sunday closing the week that contains t.
func weekEnd(t time.Time) time.Time {
	d := dateOf(t)
	return d.AddDate(0, 0, (7-int(d.Weekday()))%7)
}

func nextWeek(t time.Time) time.Time { return t.AddDate(0, 0, 7) }

// monthEnd returns the last day of t's month.
func monthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

func nextMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+2, 0, 0, 0, 0, 0, time.UTC)
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func typeCounts(rows []domain.LongRow) []TypeCount {
	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.Type]++
	}
	out := make([]TypeCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, TypeCount{Type: t, Count: n})
	}
	slices.SortFunc(out, func(a, b TypeCount) int { return strings.Compare(a.Type, b.Type) })
	return out
}

// Describe computes count, mean, sample standard deviation, min, quartiles
// and max. Quartiles interpolate linearly between closest ranks.
func Describe(values []float64) Stats {
	nan := math.NaN()
	if len(values) == 0 {
		return Stats{Mean: nan, Std: nan, Min: nan, P25: nan, P50: nan, P75: nan, Max: nan}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	s := Stats{
		Count: len(sorted),
		Mean:  stat.Mean(sorted, nil),
		Std:   nan,
		Min:   sorted[0],
		P25:   quantile(sorted, 0.25),
		P50:   quantile(sorted, 0.5),
		P75:   quantile(sorted, 0.75),
		Max:   sorted[len(sorted)-1],
	}
	if len(sorted) > 1 {
		s.Std = stat.StdDev(sorted, nil)
	}
	return s
}

// quantile expects sorted input.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
