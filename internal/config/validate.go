package config

import (
	"errors"
	"fmt"

	"github.com/cloak-ai/cloak/internal/entity"
	"github.com/cloak-ai/cloak/internal/pipeline"
	"github.com/cloak-ai/cloak/internal/policy"
)

// Validate checks the loaded config for unknown enum values and
// out-of-range thresholds. Rejecting bad values here keeps them from
// ever reaching the transformation stage.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	_, err := PipelineConfig(cfg)
	return err
}

// PipelineConfig converts the string-keyed file configuration into the
// typed pipeline configuration, rejecting unknown values.
func PipelineConfig(cfg *Config) (pipeline.Config, error) {
	var out pipeline.Config

	mode, err := policy.ParseMode(cfg.Policy.Mode)
	if err != nil {
		return out, fmt.Errorf("policy.mode: %w", err)
	}
	pol, err := policy.ParsePolicy(cfg.Policy.Policy)
	if err != nil {
		return out, fmt.Errorf("policy.policy: %w", err)
	}
	action, err := entity.ParseAction(cfg.Policy.DefaultAction)
	if err != nil {
		return out, fmt.Errorf("policy.default_action: %w", err)
	}
	riskThreshold := 0.8
	if cfg.Policy.RiskThreshold != nil {
		riskThreshold = *cfg.Policy.RiskThreshold
	}
	if riskThreshold < 0 || riskThreshold > 1 {
		return out, fmt.Errorf("policy.risk_threshold %v outside [0,1]", riskThreshold)
	}

	overrides := make(map[entity.Type]entity.Action, len(cfg.Policy.Overrides))
	for ts, as := range cfg.Policy.Overrides {
		t, err := entity.ParseType(ts)
		if err != nil {
			return out, fmt.Errorf("policy.overrides: %w", err)
		}
		a, err := entity.ParseAction(as)
		if err != nil {
			return out, fmt.Errorf("policy.overrides[%s]: %w", ts, err)
		}
		overrides[t] = a
	}

	var custom map[entity.Type]struct{}
	if len(cfg.Policy.CustomIdentifiers) > 0 {
		custom = make(map[entity.Type]struct{}, len(cfg.Policy.CustomIdentifiers))
		for _, ts := range cfg.Policy.CustomIdentifiers {
			t, err := entity.ParseType(ts)
			if err != nil {
				return out, fmt.Errorf("policy.custom_identifiers: %w", err)
			}
			custom[t] = struct{}{}
		}
	}

	out = pipeline.Config{
		Policy: policy.Config{
			Mode:              mode,
			Policy:            pol,
			DefaultAction:     action,
			Overrides:         overrides,
			RiskThreshold:     riskThreshold,
			CustomIdentifiers: custom,
		},
		ConsistentTokens: cfg.Tokenize.Consistent,
	}
	return out, nil
}
