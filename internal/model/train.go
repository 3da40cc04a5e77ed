package model

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/jonboulle/clockwork"
)

// TrainConfig holds the forest hyperparameters.
type TrainConfig struct {
	Trees    int
	MaxDepth int
	Seed     uint64
}

// Trainer fits random forests. The clock stamps TrainedAt.
type Trainer struct {
	cfg    TrainConfig
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewTrainer creates a Trainer.
func NewTrainer(cfg TrainConfig, clock clockwork.Clock, logger *slog.Logger) *Trainer {
	return &Trainer{cfg: cfg, clock: clock, logger: logger}
}

// Train fits a forest on samples. The label of a sample is
// RegisteredCases > 0. A province feature is added when at least one sample
// has a known province. Training is deterministic for a given seed.
func (t *Trainer) Train(ctx context.Context, samples []Fields, vocabulary []string) (*Model, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	if t.cfg.Trees < 1 || t.cfg.MaxDepth < 1 {
		return nil, fmt.Errorf("invalid train config: trees=%d max_depth=%d", t.cfg.Trees, t.cfg.MaxDepth)
	}

	labels := make([]string, len(samples))
	for i, s := range samples {
		labels[i] = s.Province
	}
	enc := FitEncoder(labels)
	vocab := slices.Clone(vocabulary)

	x := make([][]float64, len(samples))
	y := make([]int, len(samples))
	positives := 0
	for i, s := range samples {
		x[i] = buildVector(s, vocab, enc)
		if s.RegisteredCases > 0 {
			y[i] = 1
			positives++
		}
	}

	m := &Model{
		Version:   ArtifactVersion,
		TrainedAt: t.clock.Now().UTC(),
		Features:  featureNames(vocab, enc != nil),
		Trees:     make([]Tree, 0, t.cfg.Trees),
		Encoder:   enc,
	}
	for i := range t.cfg.Trees {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rng := rand.New(rand.NewPCG(t.cfg.Seed, uint64(i)))
		m.Trees = append(m.Trees, growTree(x, y, t.cfg.MaxDepth, rng))
	}

	t.logger.Info("model trained",
		"samples", len(samples),
		"positives", positives,
		"features", m.Features,
		"trees", len(m.Trees),
		"train_accuracy", accuracy(m, x, y),
	)
	return m, nil
}

func accuracy(m *Model, x [][]float64, y []int) float64 {
	correct := 0
	for i := range x {
		p, err := m.Predict(x[i])
		if err == nil && p.Label == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(x))
}
