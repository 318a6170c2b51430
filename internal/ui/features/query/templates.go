package query

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

// Template is a canned analysis offered by the dashboard.
type Template struct {
	Key       string `yaml:"key" json:"key"`
	Name      string `yaml:"name" json:"name"`
	SQL       string `yaml:"sql" json:"sql"`
	ChartType string `yaml:"chart_type" json:"chart_type"`
}

// Library holds the current template set. It is safe for concurrent use.
type Library struct {
	mu        sync.RWMutex
	path      string
	templates []Template
}

// NewLibrary loads the built-in templates, replaced by the file at path when
// path is not empty.
func NewLibrary(path string) (*Library, error) {
	l := &Library{path: path}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// DefaultTemplatesYAML returns the built-in analyses in their YAML form.
func DefaultTemplatesYAML() []byte {
	return bytes.Clone(defaultTemplates)
}

// Path returns the override file, if any.
func (l *Library) Path() string { return l.path }

// Reload re-reads the template source. On error the previous set is kept.
func (l *Library) Reload() error {
	data := defaultTemplates
	if l.path != "" {
		b, err := os.ReadFile(l.path)
		if err != nil {
			return fmt.Errorf("failed to read templates file: %w", err)
		}
		data = b
	}

	templates, err := parseTemplates(data)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.templates = templates
	l.mu.Unlock()
	return nil
}

// All returns a copy of the templates in file order.
func (l *Library) All() []Template {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Template, len(l.templates))
	copy(out, l.templates)
	return out
}

// Get looks a template up by key.
func (l *Library) Get(key string) (Template, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, t := range l.templates {
		if t.Key == key {
			return t, true
		}
	}
	return Template{}, false
}

func parseTemplates(data []byte) ([]Template, error) {
	var templates []Template
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	seen := make(map[string]struct{}, len(templates))
	for i, t := range templates {
		if t.Key == "" || t.SQL == "" {
			return nil, fmt.Errorf("template %d: key and sql are required", i+1)
		}
		if _, dup := seen[t.Key]; dup {
			return nil, fmt.Errorf("duplicate template key %q", t.Key)
		}
		seen[t.Key] = struct{}{}

		if t.ChartType == "" {
			templates[i].ChartType = ChartAuto
		} else if !validChartType(t.ChartType) {
			return nil, fmt.Errorf("template %q: unknown chart type %q", t.Key, t.ChartType)
		}
	}
	return templates, nil
}
