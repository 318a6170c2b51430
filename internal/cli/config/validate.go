package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/healthdw/pkg/adapter"
)

// DefaultSchemaForType returns the default schema for a warehouse type.
func DefaultSchemaForType(dbType string) string {
	switch strings.ToLower(dbType) {
	case "postgres":
		return "public"
	default:
		return "main"
	}
}

// ApplyTargetDefaults fills in the connection defaults for the target type.
func ApplyTargetDefaults(t *TargetConfig) {
	if t == nil {
		return
	}
	t.Type = strings.ToLower(t.Type)

	if t.Schema == "" {
		t.Schema = DefaultSchemaForType(t.Type)
	}

	switch t.Type {
	case "postgres":
		if t.Host == "" {
			t.Host = DefaultTargetHost
		}
		if t.Port == 0 {
			t.Port = 5432
		}
		if t.Database == "" {
			t.Database = DefaultDatabase
		}
		if t.User == "" {
			t.User = DefaultUser
		}
	case "duckdb":
		if t.Database == "" {
			t.Database = DefaultDuckDBFile
		}
	}
}

// ValidateTarget checks the target against the adapter registry.
func ValidateTarget(t *TargetConfig) error {
	if t == nil || t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}

// Validate checks the pipeline and server settings.
func (c *Config) Validate() error {
	var errs []error

	if c.Source == "" {
		errs = append(errs, fmt.Errorf("source is required"))
	}
	if c.ETL.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("etl.parallelism must be at least 1, got %d", c.ETL.Parallelism))
	}
	if c.ETL.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("etl.batch_size must be at least 1, got %d", c.ETL.BatchSize))
	}
	if c.ETL.Retries < 0 {
		errs = append(errs, fmt.Errorf("etl.retries cannot be negative, got %d", c.ETL.Retries))
	}
	if c.Serve.Port < 1 || c.Serve.Port > 65535 {
		errs = append(errs, fmt.Errorf("serve.port must be between 1 and 65535, got %d", c.Serve.Port))
	}
	if c.Serve.MaxRows < 1 {
		errs = append(errs, fmt.Errorf("serve.max_rows must be at least 1, got %d", c.Serve.MaxRows))
	}
	if c.Serve.QueryTimeout <= 0 {
		errs = append(errs, fmt.Errorf("serve.query_timeout must be positive, got %s", c.Serve.QueryTimeout))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}
