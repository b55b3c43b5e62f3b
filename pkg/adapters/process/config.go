package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// PresenterConfig represents the configuration for one external presenter.
type PresenterConfig struct {
	TrialType   string   `yaml:"trial_type" json:"trial_type"`
	Command     string   `yaml:"command" json:"command"`
	Args        []string `yaml:"args" json:"args"`
	Description string   `yaml:"description" json:"description"`
}

// ConfigFile represents the structure of presenters.yaml
type ConfigFile struct {
	Presenters []PresenterConfig `yaml:"presenters" json:"presenters"`
}

// LoadPresenters reads a configuration file (YAML or JSON) and returns a map
// of trial types to presenter configs. A missing file is treated as "no
// external presenters configured".
func LoadPresenters(path string) (map[string]PresenterConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]PresenterConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read presenters config: %w", err)
	}

	var cfg ConfigFile
	ext := strings.ToLower(filepath.Ext(path))

	if ext == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse presenters.json: %w", err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse presenters.yaml: %w", err)
		}
	}

	presenters := make(map[string]PresenterConfig)
	for _, p := range cfg.Presenters {
		if p.TrialType == "" {
			continue
		}
		presenters[p.TrialType] = p
	}

	return presenters, nil
}
