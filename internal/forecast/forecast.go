// Package forecast turns a province's incident history into expected event
// counts for a year, optionally scored by the trained classifier.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/sivem-incident-service/internal/domain"
	"github.com/couchcryptid/sivem-incident-service/internal/model"
)

var (
	ErrMissingProvince = errors.New("province is required")
	ErrNoHistory       = errors.New("no history for province")
)

// HistoryStore returns the stored incidents of a province, matched ignoring
// case and accents.
type HistoryStore interface {
	History(ctx context.Context, province string) ([]domain.IncidentSummary, error)
}

// ModelSource returns the current classifier or model.ErrModelUnavailable.
type ModelSource interface {
	Model() (*model.Model, error)
}

// Request asks for a forecast. A zero Year selects the latest year on record.
type Request struct {
	Province string `json:"province"`
	Year     int    `json:"year"`
}

// Forecast is the historical outlook for one province and year. Probability
// and Prediction are nil when no model is available.
type Forecast struct {
	Province            string             `json:"province"`
	Year                int                `json:"year"`
	Records             int                `json:"records"`
	RegisteredCasesMean float64            `json:"registered_cases_mean"`
	ExpectedCounts      map[string]float64 `json:"expected_counts"`
	Rates               map[string]float64 `json:"rates"`
	Probability         *float64           `json:"probability"`
	Prediction          *int               `json:"prediction"`
}

// Forecaster computes forecasts from stored history.
type Forecaster struct {
	store      HistoryStore
	models     ModelSource
	vocabulary []string
	logger     *slog.Logger
}

// New creates a Forecaster. models may be nil to disable scoring.
func New(store HistoryStore, models ModelSource, vocabulary []string, logger *slog.Logger) *Forecaster {
	return &Forecaster{
		store:      store,
		models:     models,
		vocabulary: slices.Clone(vocabulary),
		logger:     logger,
	}
}

// Forecast aggregates the province history. Rows dated in the requested year
// form the window when there are any; otherwise the whole history does.
func (f *Forecaster) Forecast(ctx context.Context, req Request) (*Forecast, error) {
	province := strings.TrimSpace(req.Province)
	if province == "" {
		return nil, ErrMissingProvince
	}
	history, err := f.store.History(ctx, province)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoHistory, province)
	}

	year := req.Year
	if year == 0 {
		year = latestYear(history)
	}
	window := history
	if inYear := filterYear(history, year); len(inYear) > 0 {
		window = inYear
	}

	out := &Forecast{
		Province:       history[0].Province,
		Year:           year,
		Records:        len(window),
		ExpectedCounts: make(map[string]float64, len(f.vocabulary)),
		Rates:          make(map[string]float64, len(f.vocabulary)),
	}

	cases := make([]float64, len(window))
	for i, inc := range window {
		cases[i] = float64(inc.RegisteredCases)
	}
	out.RegisteredCasesMean = stat.Mean(cases, nil)

	years := float64(max(1, distinctYears(window)))
	for _, c := range f.vocabulary {
		sum := 0.0
		for _, inc := range window {
			sum += float64(inc.Indicators[c])
		}
		out.ExpectedCounts[c] = sum / years
		out.Rates[c] = sum / float64(len(window))
	}

	if err := f.score(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *Forecaster) score(out *Forecast) error {
	if f.models == nil {
		return nil
	}
	m, err := f.models.Model()
	if errors.Is(err, model.ErrModelUnavailable) {
		f.logger.Debug("forecast without model", "province", out.Province)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	p, err := m.PredictFields(model.Fields{
		Province:        out.Province,
		RegisteredCases: out.RegisteredCasesMean,
		Indicators:      out.Rates,
	})
	if err != nil {
		return fmt.Errorf("score forecast: %w", err)
	}
	out.Probability = &p.Probability
	out.Prediction = &p.Label
	return nil
}

func filterYear(history []domain.IncidentSummary, year int) []domain.IncidentSummary {
	var out []domain.IncidentSummary
	for _, inc := range history {
		if !inc.StartDate.IsZero() && inc.StartDate.Year() == year {
			out = append(out, inc)
		}
	}
	return out
}

func latestYear(history []domain.IncidentSummary) int {
	year := 0
	for _, inc := range history {
		if !inc.StartDate.IsZero() && inc.StartDate.Year() > year {
			year = inc.StartDate.Year()
		}
	}
	return year
}

func distinctYears(window []domain.IncidentSummary) int {
	seen := make(map[int]struct{})
	for _, inc := range window {
		if !inc.StartDate.IsZero() {
			seen[inc.StartDate.Year()] = struct{}{}
		}
	}
	return len(seen)
}
