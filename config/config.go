// Package config loads and validates driftwatch configuration from YAML
// files and DW_-prefixed environment variables, and builds the runtime
// objects (chunkers, threshold strategies, calculators) a configuration
// describes.
package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"driftwatch/chunk"
	"driftwatch/drift"
	dwerrors "driftwatch/errors"
	"driftwatch/table"
	"driftwatch/thresholds"
)

// Config is the complete monitoring configuration.
type Config struct {
	Chunking  ChunkingConfig  `yaml:"chunking" envconfig:"CHUNKING"`
	Features  []FeatureConfig `yaml:"features" validate:"min=1,dive"`
	Threshold thresholds.Spec `yaml:"threshold"`

	// MethodThresholds overrides the default threshold per method name.
	MethodThresholds map[string]thresholds.Spec `yaml:"method_thresholds"`

	Workers   int             `yaml:"workers" envconfig:"WORKERS" validate:"min=1"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ChunkingConfig selects and parameterizes the chunking strategy.
type ChunkingConfig struct {
	Strategy string `yaml:"strategy" envconfig:"STRATEGY" validate:"oneof=count size period"`

	// Count applies to the count strategy.
	Count int `yaml:"count" envconfig:"COUNT"`

	// Size and DropIncomplete apply to the size strategy.
	Size           int  `yaml:"size" envconfig:"SIZE"`
	DropIncomplete bool `yaml:"drop_incomplete" envconfig:"DROP_INCOMPLETE"`

	// Period applies to the period strategy: day, week, month, quarter, year.
	Period string `yaml:"period" envconfig:"PERIOD"`
}

// FeatureConfig declares one monitored feature column.
type FeatureConfig struct {
	Name    string   `yaml:"name" validate:"required"`
	Kind    string   `yaml:"kind" validate:"oneof=continuous categorical"`
	Methods []string `yaml:"methods" validate:"min=1"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
}

// TelemetryConfig toggles OpenTelemetry instrumentation.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" envconfig:"ENABLED"`
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME"`
}

// Load reads configuration from the optional YAML file at path, applies
// DW_-prefixed environment overrides on top, fills in defaults, and
// validates the result. An empty path skips the file entirely.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, dwerrors.NewConfiguration("config.load", "reading %s: %v", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, dwerrors.NewConfiguration("config.load", "parsing %s: %v", path, err)
		}
	}

	// environment wins over the file
	if err := envconfig.Process("DW", &cfg); err != nil {
		return nil, dwerrors.NewConfiguration("config.load", "environment processing failed: %v", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills the zero values a minimal configuration leaves unset.
func (c *Config) applyDefaults() {
	if c.Chunking.Strategy == "" {
		c.Chunking.Strategy = "count"
	}
	if c.Chunking.Strategy == "count" && c.Chunking.Count <= 0 {
		c.Chunking.Count = chunk.DefaultCount
	}
	if c.Workers <= 0 {
		c.Workers = drift.DefaultWorkers
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "driftwatch"
	}
}

// Validate checks structural constraints plus the cross-field rules the
// struct tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return dwerrors.NewConfiguration("config.validate", "%v", err)
	}
	switch c.Chunking.Strategy {
	case "size":
		if c.Chunking.Size <= 0 {
			return dwerrors.NewConfiguration("config.validate",
				"size chunking requires a positive size, got %d", c.Chunking.Size)
		}
	case "period":
		if !chunk.Period(c.Chunking.Period).Valid() {
			return dwerrors.NewConfiguration("config.validate",
				"unknown chunking period %q", c.Chunking.Period)
		}
	}
	return nil
}

// Chunker builds the configured chunking strategy.
func (c *Config) Chunker() (chunk.Chunker, error) {
	switch c.Chunking.Strategy {
	case "count", "":
		return chunk.NewCountChunker(c.Chunking.Count), nil
	case "size":
		sc := chunk.NewSizeChunker(c.Chunking.Size)
		sc.DropIncomplete = c.Chunking.DropIncomplete
		return sc, nil
	case "period":
		return chunk.NewPeriodChunker(chunk.Period(c.Chunking.Period)), nil
	default:
		return nil, dwerrors.NewConfiguration("config.chunker",
			"unknown chunking strategy %q", c.Chunking.Strategy)
	}
}

// Calculator builds an unfitted drift calculator from the configuration.
func (c *Config) Calculator(opts ...drift.Option) (*drift.Calculator, error) {
	chunker, err := c.Chunker()
	if err != nil {
		return nil, err
	}
	defaultThreshold, err := thresholds.New(c.Threshold)
	if err != nil {
		return nil, err
	}

	features := make([]drift.FeatureSpec, len(c.Features))
	for i, f := range c.Features {
		features[i] = drift.FeatureSpec{
			Name:    f.Name,
			Kind:    table.FeatureKind(f.Kind),
			Methods: f.Methods,
		}
	}

	built := []drift.Option{
		drift.WithChunker(chunker),
		drift.WithThreshold(defaultThreshold),
		drift.WithWorkers(c.Workers),
		drift.WithLogger(c.Logger()),
	}
	for method, spec := range c.MethodThresholds {
		strategy, err := thresholds.New(spec)
		if err != nil {
			return nil, err
		}
		built = append(built, drift.WithMethodThreshold(method, strategy))
	}
	built = append(built, opts...)
	return drift.NewCalculator(features, built...)
}

// Logger builds the configured slog logger writing to stderr.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Logging.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
