package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults is an optional ambient tuning file: values it sets only take
// effect when a reasonable default exists to compare against (a zero
// value from the file is treated as "not set"), and the mandatory CLI
// flags from original_source/ArgParser.cpp always take precedence over
// anything here. Grounded on
// DanDo385-go-edu/minis/50-mini-service-all-features/internal/config/config.go's
// YAML-file-plus-struct-tags pattern.
type Defaults struct {
	FeeLambda      float64 `yaml:"fee_lambda"`
	JitterFraction float64 `yaml:"jitter_fraction"`
	MetricsAddr    string  `yaml:"metrics_addr"`
}

// LoadDefaults reads and parses a YAML defaults file.
func LoadDefaults(path string) (*Defaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading defaults file: %w", err)
	}
	var d Defaults
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing defaults file: %w", err)
	}
	return &d, nil
}
