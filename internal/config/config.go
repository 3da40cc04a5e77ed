package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/sivem-incident-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	InputPath    string
	ProcessedDir string
	ModelPath    string
	DBPath       string
	SchemaFile   string

	HTTPAddr        string
	CORSOrigins     []string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	ReportFigures bool

	// Kafka publishing is enabled when at least one broker is configured.
	KafkaBrokers []string
	KafkaTopic   string

	// Forecast cache; a zero size disables it.
	ForecastCacheSize int
	ForecastCacheTTL  time.Duration

	// Random forest training parameters.
	ModelTrees    int
	ModelMaxDepth int
	ModelSeed     uint64

	// Schema is the normalization schema: built-in, or read from SchemaFile.
	Schema domain.Schema
}

// KafkaEnabled reports whether canonical records are published to Kafka.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// WidePath returns the processed wide table path.
func (c *Config) WidePath() string { return filepath.Join(c.ProcessedDir, c.Schema.WideFile) }

// LongPath returns the processed long table path.
func (c *Config) LongPath() string { return filepath.Join(c.ProcessedDir, c.Schema.LongFile) }

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	trees, err := parsePositiveInt("MODEL_TREES", 100)
	if err != nil {
		return nil, err
	}
	maxDepth, err := parsePositiveInt("MODEL_MAX_DEPTH", 8)
	if err != nil {
		return nil, err
	}
	seed, err := strconv.ParseUint(sharedcfg.EnvOrDefault("MODEL_SEED", "42"), 10, 64)
	if err != nil {
		return nil, errors.New("invalid MODEL_SEED")
	}

	cacheSize, err := strconv.Atoi(sharedcfg.EnvOrDefault("FORECAST_CACHE_SIZE", "256"))
	if err != nil || cacheSize < 0 {
		return nil, errors.New("invalid FORECAST_CACHE_SIZE: must be a non-negative integer")
	}
	cacheTTL, err := time.ParseDuration(sharedcfg.EnvOrDefault("FORECAST_CACHE_TTL", "1m"))
	if err != nil || cacheTTL <= 0 {
		return nil, errors.New("invalid FORECAST_CACHE_TTL: must be a positive duration")
	}

	figures, err := strconv.ParseBool(sharedcfg.EnvOrDefault("REPORT_FIGURES", "true"))
	if err != nil {
		return nil, errors.New("invalid REPORT_FIGURES")
	}

	processedDir := sharedcfg.EnvOrDefault("PROCESSED_DIR", filepath.Join("data", "processed"))

	cfg := &Config{
		InputPath:         sharedcfg.EnvOrDefault("INPUT_PATH", filepath.Join("data", "raw", "dados_de_incidentes_manifestacoes_mocambique_2024.xlsx")),
		ProcessedDir:      processedDir,
		ModelPath:         sharedcfg.EnvOrDefault("MODEL_PATH", filepath.Join("model", "sivem_model.json")),
		DBPath:            sharedcfg.EnvOrDefault("DB_PATH", filepath.Join(processedDir, "incidentes.db")),
		SchemaFile:        os.Getenv("SCHEMA_FILE"),
		HTTPAddr:          sharedcfg.EnvOrDefault("HTTP_ADDR", ":8000"),
		CORSOrigins:       splitList(sharedcfg.EnvOrDefault("CORS_ORIGINS", "*")),
		LogLevel:          sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:   shutdownTimeout,
		ReportFigures:     figures,
		ForecastCacheSize: cacheSize,
		ForecastCacheTTL:  cacheTTL,
		KafkaTopic:        sharedcfg.EnvOrDefault("KAFKA_TOPIC", "sivem-incidents"),
		ModelTrees:        trees,
		ModelMaxDepth:     maxDepth,
		ModelSeed:         seed,
		Schema:            domain.DefaultSchema(),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}

	if cfg.SchemaFile != "" {
		s, err := LoadSchema(cfg.SchemaFile)
		if err != nil {
			return nil, fmt.Errorf("load SCHEMA_FILE: %w", err)
		}
		cfg.Schema = s
	}

	if cfg.InputPath == "" {
		return nil, errors.New("INPUT_PATH is required")
	}
	if cfg.ProcessedDir == "" {
		return nil, errors.New("PROCESSED_DIR is required")
	}
	if cfg.ModelPath == "" {
		return nil, errors.New("MODEL_PATH is required")
	}
	if cfg.KafkaEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
