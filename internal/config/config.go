// Package config loads and validates the pipeline configuration: built-in
// defaults, an optional YAML file overlay, then environment variables
// (prefix CUSTODY) on top.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete configuration of the ingest and processor binaries.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Ingest   IngestConfig   `yaml:"ingest" envconfig:"INGEST"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
}

// LoggingConfig controls the slog setup.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig holds the data directories.
type PathsConfig struct {
	DataDir         string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	IntermediateDir string `yaml:"intermediate_dir" envconfig:"INTERMEDIATE_DIR" validate:"required"`
	ProcessedDir    string `yaml:"processed_dir" envconfig:"PROCESSED_DIR" validate:"required"`
	LogsDir         string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
}

// IngestConfig configures workbook download and parsing.
type IngestConfig struct {
	DetentionsURLFile string        `yaml:"detentions_url_file" envconfig:"DETENTIONS_URL_FILE"`
	FacilitiesURLFile string        `yaml:"facilities_url_file" envconfig:"FACILITIES_URL_FILE"`
	HTTPTimeout       time.Duration `yaml:"http_timeout" envconfig:"HTTP_TIMEOUT" validate:"min=1s"`
	HeaderRow         int           `yaml:"header_row" envconfig:"HEADER_ROW" validate:"min=0"`
}

// PipelineConfig configures pipeline execution.
type PipelineConfig struct {
	ExpandWorkers int    `yaml:"expand_workers" envconfig:"EXPAND_WORKERS" validate:"min=1,max=64"`
	MetricsFile   string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
	EnableTracing bool   `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	WriteCSV      bool   `yaml:"write_csv" envconfig:"WRITE_CSV"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "stdout",
			FilePath: "logs/custodyetl.log",
		},
		Paths: PathsConfig{
			DataDir:         "data",
			IntermediateDir: "intermediate",
			ProcessedDir:    "processed",
			LogsDir:         "logs",
		},
		Ingest: IngestConfig{
			DetentionsURLFile: "data_url.txt",
			FacilitiesURLFile: "facilities_url.txt",
			HTTPTimeout:       5 * time.Minute,
			HeaderRow:         6,
		},
		Pipeline: PipelineConfig{
			ExpandWorkers: 4,
			MetricsFile:   "custodyetl_metrics.prom",
		},
	}
}

// Load builds the configuration: defaults, YAML file overlay when present,
// environment variables on top, then validation.
func Load() (*Config, error) {
	cfg := Default()

	if path := configFilePath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process("CUSTODY", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration against the struct validation tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// configFilePath returns the YAML config location: CUSTODY_CONFIG_FILE when
// set, otherwise config.yaml in the working directory.
func configFilePath() string {
	if p := os.Getenv("CUSTODY_CONFIG_FILE"); p != "" {
		return p
	}
	return "config.yaml"
}
