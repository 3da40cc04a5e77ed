package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/couchcryptid/sivem-incident-service/internal/forecast"
	"github.com/couchcryptid/sivem-incident-service/internal/model"
	"github.com/couchcryptid/sivem-incident-service/internal/observability"
	"github.com/couchcryptid/sivem-incident-service/internal/report"
)

// ProvinceLister lists the distinct province labels on record.
type ProvinceLister interface {
	Provinces(ctx context.Context) ([]string, error)
}

// ModelSource returns the current classifier or model.ErrModelUnavailable.
type ModelSource interface {
	Model() (*model.Model, error)
}

// Forecaster computes a province outlook from stored history.
type Forecaster interface {
	Forecast(ctx context.Context, req forecast.Request) (*forecast.Forecast, error)
}

// Options wires the server's collaborators.
type Options struct {
	Provinces  ProvinceLister
	Models     ModelSource
	Ready      sharedobs.ReadinessChecker
	Forecaster Forecaster
	Metrics    *observability.Metrics

	// ReportDir holds the HTML report and figures served as static files.
	ReportDir   string
	ReportFile  string
	CORSOrigins []string
}

// Server exposes the prediction API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	opts       Options
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the API, static report, and probe routes.
func NewServer(addr string, opts Options, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		opts:   opts,
		logger: logger,
	}

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(opts.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /provinces", s.handleProvinces)
	mux.HandleFunc("POST /predict", s.handlePredict)
	mux.HandleFunc("POST /forecast", s.handleForecast)
	if opts.ReportDir != "" {
		for _, name := range append([]string{opts.ReportFile}, report.FigureNames()...) {
			if name != "" {
				mux.HandleFunc("GET /"+name, s.handleStatic(name))
			}
		}
	}

	s.handler = cors.New(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(mux)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
