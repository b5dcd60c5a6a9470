// Package policy resolves one transformation action per merged entity
// according to the configured mode, policy, and per-type overrides.
package policy

import (
	"fmt"
	"math"

	"github.com/cloak-ai/cloak/internal/entity"
)

// Mode selects how aggressively the pipeline transforms entities.
type Mode string

const (
	// ModeSafeHarbor guarantees removal of the active policy's required
	// identifier categories; they are forced to REDACT and cannot be
	// weakened per-entity.
	ModeSafeHarbor Mode = "SAFE_HARBOR"
	// ModeRiskBased varies behavior with detection confidence against a
	// configurable threshold.
	ModeRiskBased Mode = "RISK_BASED"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSafeHarbor, ModeRiskBased:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Policy names the required-identifier set active for a run.
type Policy string

const (
	PolicyHIPAA      Policy = "HIPAA"
	PolicyGenericPII Policy = "GENERIC_PII"
	PolicyCustom     Policy = "CUSTOM"
)

// ParsePolicy validates a policy string.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyHIPAA, PolicyGenericPII, PolicyCustom:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown policy %q", s)
}

// ConfigurationError marks a policy configuration the engine refuses to
// run with. It is always surfaced before any transformation is
// attempted; a silently-skipped identifier would be a safety defect.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "policy configuration error: " + e.Reason
}

// hipaaIdentifiers expresses the 18 HIPAA Safe Harbor identifier
// categories in this pipeline's entity types. Categories with no
// textual representation here (biometrics, full-face photos) have no
// entry; URLs and other web identifiers fold into USERNAME.
var hipaaIdentifiers = map[entity.Type]struct{}{
	entity.TypePerson:      {},
	entity.TypeDate:        {},
	entity.TypePhone:       {},
	entity.TypeEmail:       {},
	entity.TypeAddress:     {},
	entity.TypeLocation:    {},
	entity.TypeSSN:         {},
	entity.TypeMRN:         {},
	entity.TypeInsuranceID: {},
	entity.TypePassport:    {},
	entity.TypeCreditCard:  {},
	entity.TypeBankAccount: {},
	entity.TypeVehicleID:   {},
	entity.TypeDeviceID:    {},
	entity.TypeIPAddress:   {},
	entity.TypeUsername:    {},
}

// genericPIIIdentifiers is the smaller fixed set for GENERIC_PII.
var genericPIIIdentifiers = map[entity.Type]struct{}{
	entity.TypePerson:      {},
	entity.TypeEmail:       {},
	entity.TypePhone:       {},
	entity.TypeSSN:         {},
	entity.TypeCreditCard:  {},
	entity.TypeBankAccount: {},
	entity.TypePassport:    {},
	entity.TypeIPAddress:   {},
	entity.TypeAddress:     {},
	entity.TypeUsername:    {},
	entity.TypePassword:    {},
	entity.TypeAPIKey:      {},
}

// Config is the immutable policy configuration for one pipeline run.
type Config struct {
	Mode          Mode
	Policy        Policy
	DefaultAction entity.Action
	Overrides     map[entity.Type]entity.Action
	RiskThreshold float64

	// CustomIdentifiers is the caller-supplied required-identifier set;
	// consulted only when Policy is CUSTOM.
	CustomIdentifiers map[entity.Type]struct{}
}

// Engine applies one Config to merged entities. Construct with NewEngine
// so invalid configurations are rejected before any text is touched.
type Engine struct {
	cfg      Config
	required map[entity.Type]struct{}
}

// NewEngine validates the configuration and fixes the active
// required-identifier set.
func NewEngine(cfg Config) (*Engine, error) {
	if _, err := ParseMode(string(cfg.Mode)); err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}
	if _, err := ParsePolicy(string(cfg.Policy)); err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}
	if cfg.DefaultAction == "" {
		return nil, &ConfigurationError{Reason: "default_action is not set"}
	}
	if _, err := entity.ParseAction(string(cfg.DefaultAction)); err != nil {
		return nil, &ConfigurationError{Reason: "default_action: " + err.Error()}
	}
	for t, a := range cfg.Overrides {
		if _, err := entity.ParseType(string(t)); err != nil {
			return nil, &ConfigurationError{Reason: "override: " + err.Error()}
		}
		if _, err := entity.ParseAction(string(a)); err != nil {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("override for %s: %v", t, err)}
		}
	}
	if cfg.Mode == ModeRiskBased {
		if math.IsNaN(cfg.RiskThreshold) || cfg.RiskThreshold < 0 || cfg.RiskThreshold > 1 {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("risk_threshold %v outside [0,1]", cfg.RiskThreshold)}
		}
	}

	var required map[entity.Type]struct{}
	switch cfg.Policy {
	case PolicyHIPAA:
		required = hipaaIdentifiers
	case PolicyGenericPII:
		required = genericPIIIdentifiers
	case PolicyCustom:
		if len(cfg.CustomIdentifiers) == 0 {
			return nil, &ConfigurationError{Reason: "CUSTOM policy requires a non-empty identifier set"}
		}
		for t := range cfg.CustomIdentifiers {
			if _, err := entity.ParseType(string(t)); err != nil {
				return nil, &ConfigurationError{Reason: "custom identifier: " + err.Error()}
			}
		}
		required = cfg.CustomIdentifiers
	}

	return &Engine{cfg: cfg, required: required}, nil
}

// Required reports whether the type belongs to the active policy's
// required-identifier set.
func (e *Engine) Required(t entity.Type) bool {
	_, ok := e.required[t]
	return ok
}

// UsesAction reports whether the configuration can resolve to the given
// action for any entity type.
func (e *Engine) UsesAction(a entity.Action) bool {
	if e.cfg.DefaultAction == a {
		return true
	}
	for _, o := range e.cfg.Overrides {
		if o == a {
			return true
		}
	}
	return false
}

// Resolve sets ResolvedAction and ReviewFlag on every entity, in place.
// Resolution order:
//  1. SAFE_HARBOR forces REDACT for required identifier types.
//  2. RISK_BASED flags sub-threshold entities for review and applies the
//     default action to them; at or above threshold the per-type
//     override applies, else the default.
//  3. Per-type overrides beat the default everywhere rule 1 does not
//     force REDACT.
func (e *Engine) Resolve(entities []entity.Entity) error {
	for i := range entities {
		ent := &entities[i]

		if e.cfg.Mode == ModeSafeHarbor && e.Required(ent.Type) {
			ent.ResolvedAction = entity.ActionRedact
			continue
		}

		if e.cfg.Mode == ModeRiskBased && ent.Confidence < e.cfg.RiskThreshold {
			ent.ReviewFlag = true
			ent.ResolvedAction = e.cfg.DefaultAction
			continue
		}

		if a, ok := e.cfg.Overrides[ent.Type]; ok {
			ent.ResolvedAction = a
			continue
		}
		ent.ResolvedAction = e.cfg.DefaultAction
	}

	for i := range entities {
		if entities[i].ResolvedAction == "" {
			return &ConfigurationError{
				Reason: fmt.Sprintf("no action resolvable for entity type %s", entities[i].Type),
			}
		}
	}
	return nil
}
