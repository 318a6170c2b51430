// Package config provides configuration management for the healthdw CLI.
//
// Values come from defaults, healthdw.yaml, HEALTHDW_ environment variables
// and command-line flags, in increasing order of precedence.
package config

import (
	"time"

	"github.com/leapstack-labs/healthdw/pkg/core"
)

// TargetConfig is an alias for the shared warehouse target configuration.
type TargetConfig = core.TargetConfig

// ETLConfig holds pipeline settings.
type ETLConfig struct {
	Parallelism int      `koanf:"parallelism"`
	BatchSize   int      `koanf:"batch_size"`
	Retries     int      `koanf:"retries"`
	DateLayouts []string `koanf:"date_layouts"`
}

// ServeConfig holds configuration for the dashboard server.
type ServeConfig struct {
	Host          string        `koanf:"host"`
	Port          int           `koanf:"port"`
	MaxRows       int           `koanf:"max_rows"`
	QueryTimeout  time.Duration `koanf:"query_timeout"`
	TemplatesFile string        `koanf:"templates_file"`
}

// Config holds all CLI configuration options.
type Config struct {
	Source       string               `koanf:"source"`
	StatePath    string               `koanf:"state_path"`
	Environment  string               `koanf:"environment"`
	Verbose      bool                 `koanf:"verbose"`
	LogFormat    string               `koanf:"log_format"`
	Target       *TargetConfig        `koanf:"target"`
	ETL          ETLConfig            `koanf:"etl"`
	Serve        ServeConfig          `koanf:"serve"`
	Environments map[string]EnvConfig `koanf:"environments"`
}

// EnvConfig holds environment-specific overrides.
type EnvConfig struct {
	Source string        `koanf:"source"`
	Target *TargetConfig `koanf:"target"`
}

// Default configuration values.
const (
	DefaultSource       = "data/healthcare_dataset.csv"
	DefaultStateFile    = ".healthdw/state.db"
	DefaultEnv          = "dev"
	DefaultLogFormat    = "text"
	DefaultTargetType   = "postgres"
	DefaultTargetHost   = "localhost"
	DefaultDatabase     = "healthcare_dw"
	DefaultDuckDBFile   = "healthcare_dw.duckdb"
	DefaultUser         = "admin"
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 5000
	DefaultMaxRows      = 1000
	DefaultQueryTimeout = 30 * time.Second
	DefaultParallelism  = 6
	DefaultBatchSize    = 1000
)

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Source:      DefaultSource,
		StatePath:   DefaultStateFile,
		Environment: DefaultEnv,
		LogFormat:   DefaultLogFormat,
		Target:      &TargetConfig{Type: DefaultTargetType},
		ETL: ETLConfig{
			Parallelism: DefaultParallelism,
			BatchSize:   DefaultBatchSize,
		},
		Serve: ServeConfig{
			Host:         DefaultHost,
			Port:         DefaultPort,
			MaxRows:      DefaultMaxRows,
			QueryTimeout: DefaultQueryTimeout,
		},
	}
}
