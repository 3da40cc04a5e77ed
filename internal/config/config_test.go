package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/sivem-incident-service/internal/domain"
)

const testBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("data", "raw", "dados_de_incidentes_manifestacoes_mocambique_2024.xlsx"), cfg.InputPath)
	assert.Equal(t, filepath.Join("data", "processed"), cfg.ProcessedDir)
	assert.Equal(t, filepath.Join("model", "sivem_model.json"), cfg.ModelPath)
	assert.Equal(t, filepath.Join("data", "processed", "incidentes.db"), cfg.DBPath)
	assert.Empty(t, cfg.SchemaFile)
	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.ReportFigures)
	assert.Equal(t, 256, cfg.ForecastCacheSize)
	assert.Equal(t, time.Minute, cfg.ForecastCacheTTL)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, "sivem-incidents", cfg.KafkaTopic)
	assert.Equal(t, 100, cfg.ModelTrees)
	assert.Equal(t, 8, cfg.ModelMaxDepth)
	assert.Equal(t, uint64(42), cfg.ModelSeed)
	assert.Equal(t, domain.DefaultSchema(), cfg.Schema)
	assert.Equal(t, filepath.Join("data", "processed", "incidentes_clean_wide.csv"), cfg.WidePath())
	assert.Equal(t, filepath.Join("data", "processed", "incidentes_clean_long.csv"), cfg.LongPath())
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("INPUT_PATH", "/in/incidents.csv")
	t.Setenv("PROCESSED_DIR", "/out")
	t.Setenv("MODEL_PATH", "/models/m.json")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("CORS_ORIGINS", "http://localhost:5173, https://sivem.example.org")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("REPORT_FIGURES", "false")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "incidents")
	t.Setenv("MODEL_TREES", "25")
	t.Setenv("MODEL_MAX_DEPTH", "4")
	t.Setenv("MODEL_SEED", "7")
	t.Setenv("FORECAST_CACHE_SIZE", "0")
	t.Setenv("FORECAST_CACHE_TTL", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/in/incidents.csv", cfg.InputPath)
	assert.Equal(t, "/out", cfg.ProcessedDir)
	assert.Equal(t, filepath.Join("/out", "incidentes.db"), cfg.DBPath)
	assert.Equal(t, "/models/m.json", cfg.ModelPath)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, []string{"http://localhost:5173", "https://sivem.example.org"}, cfg.CORSOrigins)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.ReportFigures)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "incidents", cfg.KafkaTopic)
	assert.Equal(t, 25, cfg.ModelTrees)
	assert.Equal(t, 4, cfg.ModelMaxDepth)
	assert.Equal(t, uint64(7), cfg.ModelSeed)
	assert.Equal(t, 0, cfg.ForecastCacheSize)
	assert.Equal(t, 5*time.Minute, cfg.ForecastCacheTTL)
}

func TestLoad_SingleBroker(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", testBroker)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{testBroker}, cfg.KafkaBrokers)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidModelTrees(t *testing.T) {
	t.Setenv("MODEL_TREES", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MODEL_TREES")
}

func TestLoad_InvalidModelMaxDepth(t *testing.T) {
	t.Setenv("MODEL_MAX_DEPTH", "deep")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MODEL_MAX_DEPTH")
}

func TestLoad_InvalidModelSeed(t *testing.T) {
	t.Setenv("MODEL_SEED", "-1")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MODEL_SEED")
}

func TestLoad_InvalidReportFigures(t *testing.T) {
	t.Setenv("REPORT_FIGURES", "maybe")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REPORT_FIGURES")
}

func TestLoad_InvalidForecastCache(t *testing.T) {
	for key, value := range map[string]string{
		"FORECAST_CACHE_SIZE": "-1",
		"FORECAST_CACHE_TTL":  "0s",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_SchemaFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
columns:
  province: [distrito]
vocabulary: [Mortes, "Feridos "]
outputs:
  wide: wide.csv
`), 0o600))
	t.Setenv("SCHEMA_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"distrito"}, cfg.Schema.ProvinceColumns)
	assert.Equal(t, domain.DefaultSchema().PeriodColumns, cfg.Schema.PeriodColumns)
	assert.Equal(t, []string{"mortes", "feridos"}, cfg.Schema.Vocabulary)
	assert.Equal(t, "wide.csv", cfg.Schema.WideFile)
	assert.Equal(t, "incidentes_clean_long.csv", cfg.Schema.LongFile)
}

func TestLoad_SchemaFileMissing(t *testing.T) {
	t.Setenv("SCHEMA_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCHEMA_FILE")
}

func TestParseSchema_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"empty vocabulary", "vocabulary: []", ErrEmptyVocabulary},
		{"duplicate after normalization", "vocabulary: [Mortes, mortes]", ErrDuplicateCategory},
		{"reserved name", "vocabulary: [types]", ErrReservedCategory},
		{"province reserved", "vocabulary: [Province]", ErrReservedCategory},
		{"blank candidate", `columns: {province: [""]}`, ErrBlankCandidate},
		{"whitespace candidate", `columns: {period: [periodo, "   "]}`, ErrBlankCandidate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchema([]byte(tt.yaml))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseSchema_InvalidYAML(t *testing.T) {
	_, err := ParseSchema([]byte("vocabulary: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse schema file")
}

func TestValidateSchema_EmptyCandidates(t *testing.T) {
	s := domain.DefaultSchema()
	s.TypeColumns = nil
	require.ErrorIs(t, ValidateSchema(s), ErrEmptyCandidates)

	s = domain.DefaultSchema()
	s.ReportFile = ""
	require.ErrorIs(t, ValidateSchema(s), ErrMissingOutputName)
}
