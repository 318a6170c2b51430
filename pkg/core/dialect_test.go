package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDialectConfig_FormatPlaceholder(t *testing.T) {
	tests := []struct {
		name     string
		dialect  DialectConfig
		index    int
		expected string
	}{
		{"question first", DialectConfig{Placeholder: PlaceholderQuestion}, 1, "?"},
		{"question later", DialectConfig{Placeholder: PlaceholderQuestion}, 3, "?"},
		{"dollar first", DialectConfig{Placeholder: PlaceholderDollar}, 1, "$1"},
		{"dollar later", DialectConfig{Placeholder: PlaceholderDollar}, 12, "$12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.dialect.FormatPlaceholder(tt.index))
		})
	}
}

func TestTargetConfig_AdapterConfig(t *testing.T) {
	target := &TargetConfig{
		Type:     "postgres",
		Database: "healthcare_dw",
		Host:     "db.internal",
		Port:     5433,
		User:     "etl",
		Password: "secret",
		Schema:   "public",
		Options:  map[string]string{"sslmode": "require"},
	}

	cfg := target.AdapterConfig()
	assert.Equal(t, "postgres", cfg.Type)
	assert.Equal(t, "healthcare_dw", cfg.Database)
	assert.Equal(t, "healthcare_dw", cfg.Path)
	assert.Equal(t, "etl", cfg.Username)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, 5433, cfg.Port)
	assert.Equal(t, "require", cfg.Options["sslmode"])
}
