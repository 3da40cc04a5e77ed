package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	kafkaadapter "github.com/couchcryptid/sivem-incident-service/internal/adapter/kafka"
	"github.com/couchcryptid/sivem-incident-service/internal/adapter/sqlite"
	"github.com/couchcryptid/sivem-incident-service/internal/adapter/tabular"
	"github.com/couchcryptid/sivem-incident-service/internal/observability"
	"github.com/couchcryptid/sivem-incident-service/internal/pipeline"
	"github.com/couchcryptid/sivem-incident-service/internal/report"
)

func newPreprocessCmd(a *app) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Normalize the incident spreadsheet into long/wide tables, the store, and the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if input != "" {
				a.cfg.InputPath = input
			}
			return a.preprocess(cmd.Context(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "input spreadsheet, .xlsx or .csv (default $INPUT_PATH)")
	return cmd
}

func (a *app) preprocess(ctx context.Context, out io.Writer) error {
	cfg, logger := a.cfg, a.logger
	metrics := observability.NewMetrics()

	store, err := sqlite.Open(cfg.DBPath, logger)
	if err != nil {
		return a.fail("open store", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("store close error", "error", err)
		}
	}()

	// CSV first so the processed files exist even if a later sink fails.
	loaders := []pipeline.Loader{
		tabular.NewCSVWriter(cfg.ProcessedDir, cfg.Schema, logger),
		store,
	}
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		loaders = append(loaders, writer)
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	p := pipeline.New(
		tabular.NewFileReader(cfg.InputPath, logger),
		pipeline.NewTransformer(cfg.Schema, logger),
		report.NewWriter(cfg.ProcessedDir, cfg.Schema, cfg.ReportFigures, logger),
		logger,
		metrics,
		loaders...,
	)
	res, err := p.Run(ctx)
	if err != nil {
		return a.fail("preprocess", err)
	}
	return report.WriteText(out, res.Summary)
}
