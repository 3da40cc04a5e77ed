package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/sivem-incident-service/internal/domain"
	"github.com/couchcryptid/sivem-incident-service/internal/forecast"
	"github.com/couchcryptid/sivem-incident-service/internal/model"
)

const maxBodyBytes = 1 << 20

// Outcome label values for the predictions_total counter.
const (
	outcomeSuccess     = "success"
	outcomeUnavailable = "unavailable"
	outcomeInvalid     = "invalid"
	outcomeNotFound    = "not_found"
	outcomeError       = "error"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProvinces(w http.ResponseWriter, r *http.Request) {
	provinces, err := s.opts.Provinces.Provinces(r.Context())
	if err != nil {
		s.logger.Error("list provinces", "error", err)
		writeError(w, http.StatusInternalServerError, "falha ao listar provincias")
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string][]string{"provinces": provinces})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	m, err := s.opts.Models.Model()
	if errors.Is(err, model.ErrModelUnavailable) {
		s.countPrediction("predict", outcomeUnavailable)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		s.opts.Metrics.ModelLoadFailures.Inc()
		s.countPrediction("predict", outcomeError)
		s.logger.Error("load model", "error", err)
		writeError(w, http.StatusInternalServerError, "falha ao carregar o modelo")
		return
	}

	x, err := decodeFeatures(http.MaxBytesReader(w, r.Body, maxBodyBytes), m)
	if err != nil {
		s.countPrediction("predict", outcomeInvalid)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := m.Predict(x)
	if err != nil {
		s.countPrediction("predict", outcomeInvalid)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.opts.Metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	s.countPrediction("predict", outcomeSuccess)
	sharedobs.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	var req forecast.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.countPrediction("forecast", outcomeInvalid)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}

	out, err := s.opts.Forecaster.Forecast(r.Context(), req)
	switch {
	case errors.Is(err, forecast.ErrMissingProvince):
		s.countPrediction("forecast", outcomeInvalid)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, forecast.ErrNoHistory):
		s.countPrediction("forecast", outcomeNotFound)
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		s.countPrediction("forecast", outcomeError)
		s.logger.Error("forecast", "province", req.Province, "year", req.Year, "error", err)
		writeError(w, http.StatusInternalServerError, "falha ao calcular a previsao")
		return
	}

	s.countPrediction("forecast", outcomeSuccess)
	sharedobs.WriteJSON(w, http.StatusOK, out)
}

// handleStatic serves one generated report file from the report directory.
func (s *Server) handleStatic(name string) http.HandlerFunc {
	path := filepath.Join(s.opts.ReportDir, name)
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, path)
	}
}

func (s *Server) countPrediction(endpoint, outcome string) {
	s.opts.Metrics.Predictions.WithLabelValues(endpoint, outcome).Inc()
}

// decodeFeatures reads a predict body: either a raw "features" vector in the
// model's column order, or named fields (province, registered_cases, and the
// vocabulary indicators). Named fields left out count as 0.
func decodeFeatures(body io.Reader, m *model.Model) ([]float64, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}

	if v, ok := raw["features"]; ok {
		var x []float64
		if err := json.Unmarshal(v, &x); err != nil {
			return nil, fmt.Errorf("features: %w", err)
		}
		return x, nil
	}

	f := model.Fields{Indicators: make(map[string]float64)}
	named := 0
	if v, ok := raw[domain.FieldProvince]; ok {
		if err := json.Unmarshal(v, &f.Province); err != nil {
			return nil, fmt.Errorf("%s: %w", domain.FieldProvince, err)
		}
		named++
	}
	if v, ok := raw[domain.FieldRegisteredCases]; ok {
		if err := json.Unmarshal(v, &f.RegisteredCases); err != nil {
			return nil, fmt.Errorf("%s: %w", domain.FieldRegisteredCases, err)
		}
		named++
	}
	for _, c := range m.Vocabulary() {
		v, ok := raw[c]
		if !ok {
			continue
		}
		var n float64
		if err := json.Unmarshal(v, &n); err != nil {
			return nil, fmt.Errorf("%s: %w", c, err)
		}
		f.Indicators[c] = n
		named++
	}
	if named == 0 {
		return nil, errors.New("expected \"features\" or named fields")
	}
	return m.Vector(f), nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
