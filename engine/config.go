package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/flow/history"
	"github.com/tailored-agentic-units/flow/orchestrate/config"
)

// Config holds initialization parameters for the engine and the workflows
// it builds. Each section delegates to its package's Default and Merge.
type Config struct {
	Workflow config.WorkflowConfig `json:"workflow" yaml:"workflow"`
	History  history.Config        `json:"history" yaml:"history"`

	// Definitions lists declarative workflow files loaded by New. Relative
	// paths resolve against the directory of the config file.
	Definitions []string `json:"definitions,omitempty" yaml:"definitions,omitempty"`
}

// DefaultConfig returns a Config with defaults for all sections.
func DefaultConfig() Config {
	return Config{
		Workflow: config.DefaultWorkflowConfig(),
		History:  history.DefaultConfig(),
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	c.Workflow.Merge(&source.Workflow)
	c.History.Merge(&source.History)

	if len(source.Definitions) > 0 {
		c.Definitions = source.Definitions
	}
}

// LoadConfig reads a JSON or YAML config file (chosen by extension), merges
// it with defaults, and returns the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := decode(filename, data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	dir := filepath.Dir(filename)
	for i, def := range loaded.Definitions {
		if !filepath.IsAbs(def) {
			loaded.Definitions[i] = filepath.Join(dir, def)
		}
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}

func decode(filename string, data []byte, v any) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, v)
	case ".json", "":
		return json.Unmarshal(data, v)
	}
	return fmt.Errorf("unsupported file extension %q", filepath.Ext(filename))
}
