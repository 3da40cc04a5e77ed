package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/sivem-incident-service/internal/domain"
	"github.com/couchcryptid/sivem-incident-service/internal/observability"
	"github.com/couchcryptid/sivem-incident-service/internal/pipeline"
	"github.com/couchcryptid/sivem-incident-service/internal/report"
)

// --- mocks ---

type mockExtractor struct {
	table domain.Table
	err   error
}

func (m *mockExtractor) Extract(_ context.Context) (domain.Table, error) {
	return m.table, m.err
}

type mockLoader struct {
	failures int // number of calls that fail before succeeding
	calls    int
	runs     []domain.Run
	loaded   []*domain.Dataset
}

func (m *mockLoader) LoadDataset(_ context.Context, run domain.Run, ds *domain.Dataset) error {
	m.calls++
	if m.calls <= m.failures {
		return errors.New("broker unavailable")
	}
	m.runs = append(m.runs, run)
	m.loaded = append(m.loaded, ds)
	return nil
}

type mockReporter struct {
	flags []string
	err   error
}

func (m *mockReporter) Report(_ context.Context, run domain.Run, _ *domain.Dataset) (*report.Summary, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &report.Summary{RunID: run.ID, Flags: m.flags}, nil
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func sampleTable() domain.Table {
	return domain.Table{
		Headers: []string{"period", "registered_cases", "incident_type", "province"},
		Rows: [][]string{
			{"21/10/2024", "3", "Mortes e Baleamentos", "Maputo"},
			{"sem data", "abc", "Detenções", "Sofala"},
		},
	}
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.November, 20, 9, 0, 0, 0, time.UTC))
	ext := &mockExtractor{table: sampleTable()}
	csv := &mockLoader{}
	db := &mockLoader{}
	rep := &mockReporter{flags: []string{report.FlagInvalidCases}}

	p := pipeline.New(ext, pipeline.NewTransformer(domain.DefaultSchema(), slog.Default()), rep,
		slog.Default(), newTestMetrics(), csv, db).WithClock(fakeClock)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, res.Dataset)
	assert.Len(t, res.Dataset.Records, 2)
	assert.NotEmpty(t, res.Run.ID)
	assert.Equal(t, fakeClock.Now(), res.Run.StartedAt)
	assert.Equal(t, []string{report.FlagInvalidCases}, res.Summary.Flags)
	assert.Equal(t, res.Run.ID, res.Summary.RunID)

	require.Len(t, csv.loaded, 1)
	require.Len(t, db.loaded, 1)
	assert.Same(t, res.Dataset, csv.loaded[0])
	assert.Equal(t, res.Run, db.runs[0])
}

func TestPipeline_Run_DistinctRunIDs(t *testing.T) {
	p := pipeline.New(&mockExtractor{table: sampleTable()}, pipeline.NewTransformer(domain.DefaultSchema(), slog.Default()),
		nil, slog.Default(), newTestMetrics())

	first, err := p.Run(context.Background())
	require.NoError(t, err)
	second, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.Run.ID, second.Run.ID)
	assert.Nil(t, first.Summary)
}

func TestPipeline_Run_ExtractError(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{err: errors.New("file not found")},
		pipeline.NewTransformer(domain.DefaultSchema(), slog.Default()), nil, slog.Default(), newTestMetrics(), ldr)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract: file not found")
	assert.Zero(t, ldr.calls)
}

func TestPipeline_Run_MissingColumnIsFatal(t *testing.T) {
	ext := &mockExtractor{table: domain.Table{
		Headers: []string{"period", "incident_type"},
		Rows:    [][]string{{"1/1/2024", "Mortes"}},
	}}
	ldr := &mockLoader{}
	p := pipeline.New(ext, pipeline.NewTransformer(domain.DefaultSchema(), slog.Default()), nil,
		slog.Default(), newTestMetrics(), ldr)

	_, err := p.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrMissingColumn)
	assert.Contains(t, err.Error(), "registered_cases")
	assert.Zero(t, ldr.calls)
}

func TestPipeline_Run_RetriesTransientLoadFailure(t *testing.T) {
	ldr := &mockLoader{failures: 2}
	p := pipeline.New(&mockExtractor{table: sampleTable()}, pipeline.NewTransformer(domain.DefaultSchema(), slog.Default()),
		nil, slog.Default(), newTestMetrics(), ldr).WithRetryBackoff(time.Millisecond)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, ldr.calls)
	assert.Len(t, ldr.loaded, 1)
}

func TestPipeline_Run_LoadFailsAfterRetries(t *testing.T) {
	failing := &mockLoader{failures: 10}
	after := &mockLoader{}
	p := pipeline.New(&mockExtractor{table: sampleTable()}, pipeline.NewTransformer(domain.DefaultSchema(), slog.Default()),
		&mockReporter{}, slog.Default(), newTestMetrics(), failing, after).WithRetryBackoff(time.Millisecond)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load: broker unavailable")
	assert.Equal(t, 3, failing.calls)
	assert.Zero(t, after.calls)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{table: sampleTable()}, pipeline.NewTransformer(domain.DefaultSchema(), slog.Default()),
		nil, slog.Default(), newTestMetrics(), ldr)

	_, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, ldr.calls)
}

func TestPipeline_Run_ReportError(t *testing.T) {
	p := pipeline.New(&mockExtractor{table: sampleTable()}, pipeline.NewTransformer(domain.DefaultSchema(), slog.Default()),
		&mockReporter{err: errors.New("disk full")}, slog.Default(), newTestMetrics())

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report: disk full")
}

func TestIncidentTransformer_SynthesizesProvince(t *testing.T) {
	tfm := pipeline.NewTransformer(domain.DefaultSchema(), slog.Default())
	ds, err := tfm.Transform(context.Background(), domain.Table{
		Headers: []string{"periodo", "casos", "tipo"},
		Rows:    [][]string{{"3/3/2024", "1", "Mortes"}},
	})
	require.NoError(t, err)
	assert.True(t, ds.ProvinceSynthesized)
	assert.Equal(t, []string{"periodo", "casos", "tipo", "province"}, ds.Headers)
	assert.Empty(t, ds.Records[0].Province)
}
