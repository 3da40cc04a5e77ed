package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/sivem-incident-service/internal/adapter/tabular"
	"github.com/couchcryptid/sivem-incident-service/internal/model"
)

func newTrainCmd(a *app) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the incident classifier on the processed wide table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if data == "" {
				data = a.cfg.WidePath()
			}
			return a.train(cmd.Context(), data, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "wide CSV to train on (default the processed wide table)")
	return cmd
}

func (a *app) train(ctx context.Context, data string, out io.Writer) error {
	cfg, logger := a.cfg, a.logger

	if _, err := os.Stat(data); errors.Is(err, fs.ErrNotExist) {
		logger.Warn("wide table not found, skipping training; run preprocess first", "path", data)
		return nil
	}
	table, err := tabular.ReadFile(data)
	if err != nil {
		return a.fail("read training data", err)
	}
	samples, err := model.FieldsFromTable(table, cfg.Schema)
	if err != nil {
		return a.fail("read training data", err)
	}

	trainer := model.NewTrainer(model.TrainConfig{
		Trees:    cfg.ModelTrees,
		MaxDepth: cfg.ModelMaxDepth,
		Seed:     cfg.ModelSeed,
	}, clockwork.NewRealClock(), logger)
	m, err := trainer.Train(ctx, samples, cfg.Schema.Vocabulary)
	if err != nil {
		return a.fail("train", err)
	}
	if err := m.Save(cfg.ModelPath); err != nil {
		return a.fail("save model", err)
	}
	logger.Info("model saved", "path", cfg.ModelPath, "samples", len(samples), "features", m.Features)

	return json.NewEncoder(out).Encode(map[string]any{
		"samples":  len(samples),
		"features": m.Features,
		"model":    cfg.ModelPath,
	})
}
