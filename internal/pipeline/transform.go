package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/sivem-incident-service/internal/domain"
)

// IncidentTransformer implements Transformer with a domain.Normalizer bound
// to one schema.
type IncidentTransformer struct {
	normalizer *domain.Normalizer
	logger     *slog.Logger
}

// NewTransformer creates an IncidentTransformer for schema s.
func NewTransformer(s domain.Schema, logger *slog.Logger) *IncidentTransformer {
	return &IncidentTransformer{
		normalizer: domain.NewNormalizer(s),
		logger:     logger,
	}
}

func (t *IncidentTransformer) Transform(ctx context.Context, table domain.Table) (*domain.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ds, err := t.normalizer.Normalize(table)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	if ds.ProvinceSynthesized {
		t.logger.Warn("no province column found, all records have unknown province")
	}
	t.logger.Debug("columns resolved",
		"period", ds.Headers[ds.Columns.Period],
		"registered_cases", ds.Headers[ds.Columns.Cases],
		"incident_type", ds.Headers[ds.Columns.Type],
		"province", ds.Headers[ds.Columns.Province],
	)
	return ds, nil
}
