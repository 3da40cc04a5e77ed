package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/sivem-incident-service/internal/adapter/http"
	"github.com/couchcryptid/sivem-incident-service/internal/adapter/sqlite"
	"github.com/couchcryptid/sivem-incident-service/internal/forecast"
	"github.com/couchcryptid/sivem-incident-service/internal/model"
	"github.com/couchcryptid/sivem-incident-service/internal/observability"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions, forecasts, and the report over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
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

	models := model.NewLoader(cfg.ModelPath)
	if _, err := models.Model(); err != nil {
		logger.Warn("model not loaded; /predict returns 503 until trained", "path", cfg.ModelPath, "error", err)
	}

	var forecaster forecast.Service = forecast.New(store, models, cfg.Schema.Vocabulary, logger)
	if cfg.ForecastCacheSize > 0 {
		forecaster = forecast.NewCache(forecaster, cfg.ForecastCacheSize, cfg.ForecastCacheTTL, clockwork.NewRealClock())
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Options{
		Provinces:   store,
		Models:      models,
		Ready:       models,
		Forecaster:  forecaster,
		Metrics:     metrics,
		ReportDir:   cfg.ProcessedDir,
		ReportFile:  cfg.Schema.ReportFile,
		CORSOrigins: cfg.CORSOrigins,
	}, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return a.fail("http server error", err)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return a.fail("http server shutdown error", fmt.Errorf("after %s: %w", cfg.ShutdownTimeout, err))
	}
	logger.Info("shutdown complete")
	return nil
}
