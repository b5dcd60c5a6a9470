// Package config loads and validates the YAML configuration consumed by
// the CLI and other pipeline hosts.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds one run's configuration.
type Config struct {
	Detection DetectionConfig `yaml:"detection"`
	Policy    PolicyConfig    `yaml:"policy"`
	Tokenize  TokenizeConfig  `yaml:"tokenize"`
}

// DetectionConfig configures the detectors.
type DetectionConfig struct {
	NER NERConfig `yaml:"ner"`
}

// NERConfig configures the statistical detector. An empty bundle_dir
// disables NER; the pipeline then runs on pattern results alone.
type NERConfig struct {
	BundleDir string `yaml:"bundle_dir"`
	MaxTokens int    `yaml:"max_tokens"`
}

// PolicyConfig mirrors the policy engine's configuration as strings;
// Validate rejects unknown values before a pipeline is built.
type PolicyConfig struct {
	Mode          string `yaml:"mode"`           // SAFE_HARBOR | RISK_BASED
	Policy        string `yaml:"policy"`         // HIPAA | GENERIC_PII | CUSTOM
	DefaultAction string `yaml:"default_action"` // REDACT | MASK | HASH | TOKENIZE
	// RiskThreshold is a pointer so an explicit 0 survives defaulting.
	RiskThreshold     *float64          `yaml:"risk_threshold"`
	Overrides         map[string]string `yaml:"overrides"`
	CustomIdentifiers []string          `yaml:"custom_identifiers"`
}

// TokenizeConfig configures TOKENIZE behavior.
type TokenizeConfig struct {
	Consistent bool `yaml:"consistent"`
}

// Load reads configuration from a YAML file. If the file doesn't exist,
// it returns the default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Policy.Mode == "" {
		cfg.Policy.Mode = "SAFE_HARBOR"
	}
	if cfg.Policy.Policy == "" {
		cfg.Policy.Policy = "HIPAA"
	}
	if cfg.Policy.DefaultAction == "" {
		cfg.Policy.DefaultAction = "REDACT"
	}
	if cfg.Policy.RiskThreshold == nil {
		threshold := 0.8
		cfg.Policy.RiskThreshold = &threshold
	}
	if cfg.Detection.NER.MaxTokens == 0 {
		cfg.Detection.NER.MaxTokens = 256
	}
}
