package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/sivem-incident-service/internal/domain"
	"github.com/couchcryptid/sivem-incident-service/internal/observability"
	"github.com/couchcryptid/sivem-incident-service/internal/report"
)

// Extractor reads the raw incident spreadsheet.
type Extractor interface {
	Extract(ctx context.Context) (domain.Table, error)
}

// Transformer normalizes a raw table into canonical records.
type Transformer interface {
	Transform(ctx context.Context, t domain.Table) (*domain.Dataset, error)
}

// Loader writes a normalized dataset to one destination.
type Loader interface {
	LoadDataset(ctx context.Context, run domain.Run, ds *domain.Dataset) error
}

// Reporter publishes the descriptive report for a run.
type Reporter interface {
	Report(ctx context.Context, run domain.Run, ds *domain.Dataset) (*report.Summary, error)
}

// Result describes a completed run.
type Result struct {
	Run      domain.Run
	Dataset  *domain.Dataset
	Summary  *report.Summary
	Duration time.Duration
}

const (
	loadAttempts   = 3
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline runs one extract-transform-load-report pass over the input file.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loaders     []Loader
	reporter    Reporter
	logger      *slog.Logger
	metrics     *observability.Metrics
	clock       clockwork.Clock
	backoff     time.Duration
}

// New creates a Pipeline. Loaders run in order; the first is normally the CSV
// writer so the processed files exist even if a later sink fails.
func New(e Extractor, t Transformer, r Reporter, logger *slog.Logger, metrics *observability.Metrics, loaders ...Loader) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loaders:     loaders,
		reporter:    r,
		logger:      logger,
		metrics:     metrics,
		clock:       clockwork.NewRealClock(),
		backoff:     initialBackoff,
	}
}

// WithClock replaces the pipeline clock. Tests pass a fake clock so run
// timestamps are deterministic.
func (p *Pipeline) WithClock(c clockwork.Clock) *Pipeline {
	p.clock = c
	return p
}

// WithRetryBackoff sets the delay before the first load retry.
func (p *Pipeline) WithRetryBackoff(d time.Duration) *Pipeline {
	p.backoff = d
	return p
}

// Run executes a single pass. Data problems in individual rows never fail the
// run; a missing required column or a failing sink does.
func (p *Pipeline) Run(ctx context.Context) (res Result, err error) {
	start := p.clock.Now()
	res.Run = domain.Run{ID: uuid.NewString(), StartedAt: start.UTC()}
	logger := p.logger.With("run_id", res.Run.ID)
	logger.Info("pipeline started")

	defer func() {
		res.Duration = p.clock.Since(start)
		p.metrics.RunDuration.Observe(res.Duration.Seconds())
		if err != nil {
			p.metrics.LastRunSuccess.Set(0)
			logger.Error("pipeline failed", "error", err, "duration", res.Duration)
			return
		}
		p.metrics.LastRunSuccess.Set(1)
		logger.Info("pipeline finished", "records", len(res.Dataset.Records), "duration", res.Duration)
	}()

	table, err := p.extractor.Extract(ctx)
	if err != nil {
		return res, fmt.Errorf("extract: %w", err)
	}
	p.metrics.RecordsRead.Add(float64(len(table.Rows)))

	ds, err := p.transformer.Transform(ctx, table)
	if err != nil {
		return res, fmt.Errorf("transform: %w", err)
	}
	res.Dataset = ds
	p.recordDatasetMetrics(ds)
	logger.Info("records normalized", "dataset", ds.String())

	for _, l := range p.loaders {
		if err := p.loadWithRetry(ctx, l, res.Run, ds, logger); err != nil {
			return res, fmt.Errorf("load: %w", err)
		}
	}
	p.metrics.LongRowsWritten.Add(float64(len(ds.Long())))
	p.metrics.WideRowsWritten.Add(float64(len(ds.Records)))

	if p.reporter != nil {
		summary, err := p.reporter.Report(ctx, res.Run, ds)
		if err != nil {
			return res, fmt.Errorf("report: %w", err)
		}
		for _, f := range summary.Flags {
			p.metrics.ValidationFlags.WithLabelValues(f).Inc()
		}
		res.Summary = summary
	}
	return res, nil
}

func (p *Pipeline) recordDatasetMetrics(ds *domain.Dataset) {
	p.metrics.RecordsNormalized.Add(float64(len(ds.Records)))
	for _, r := range ds.Records {
		if !r.HasDate() {
			p.metrics.MissingDates.Inc()
		}
		if !r.CasesValid {
			p.metrics.InvalidCaseCounts.Inc()
		}
	}
}

// loadWithRetry retries a failing loader with exponential backoff. Context
// cancellation stops retrying immediately.
func (p *Pipeline) loadWithRetry(ctx context.Context, l Loader, run domain.Run, ds *domain.Dataset, logger *slog.Logger) error {
	backoff := p.backoff
	var err error
	for attempt := 1; attempt <= loadAttempts; attempt++ {
		if err = l.LoadDataset(ctx, run, ds); err == nil {
			return nil
		}
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return err
		}
		logger.Warn("load failed", "loader", fmt.Sprintf("%T", l), "attempt", attempt, "error", err)
		if attempt == loadAttempts {
			break
		}
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return err
}
