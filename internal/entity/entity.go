// Package entity defines the core data model shared by the detectors,
// the merger, the policy engine, and the transformer: candidate Spans
// and merged Entities, plus the closed enumerations for entity types,
// transformation actions, sources, and severities.
package entity

import "fmt"

// Source identifies which detector produced a span.
type Source string

const (
	SourcePattern     Source = "pattern"
	SourceStatistical Source = "statistical"
)

// Type classifies a detected span of sensitive content.
type Type string

const (
	TypePerson      Type = "PERSON"
	TypeDate        Type = "DATE"
	TypePhone       Type = "PHONE"
	TypeEmail       Type = "EMAIL"
	TypeAddress     Type = "ADDRESS"
	TypeSSN         Type = "SSN"
	TypeMRN         Type = "MRN"
	TypePassport    Type = "PASSPORT"
	TypeCreditCard  Type = "CREDIT_CARD"
	TypeIPAddress   Type = "IP_ADDRESS"
	TypeLocation    Type = "LOCATION"
	TypeOrg         Type = "ORGANIZATION"
	TypeInsuranceID Type = "INSURANCE_ID"
	TypeVehicleID   Type = "VEHICLE_ID"
	TypeDeviceID    Type = "DEVICE_ID"
	TypeBankAccount Type = "BANK_ACCOUNT"
	TypeUsername    Type = "USERNAME"
	TypePassword    Type = "PASSWORD"
	TypeAPIKey      Type = "API_KEY"
)

// Types lists every supported entity type in a fixed order.
var Types = []Type{
	TypePerson, TypeDate, TypePhone, TypeEmail, TypeAddress,
	TypeSSN, TypeMRN, TypePassport, TypeCreditCard, TypeIPAddress,
	TypeLocation, TypeOrg, TypeInsuranceID, TypeVehicleID, TypeDeviceID,
	TypeBankAccount, TypeUsername, TypePassword, TypeAPIKey,
}

// ParseType validates an entity type string. Unknown values are rejected
// here, at configuration-construction time, not at transformation time.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

// Action is a transformation applied to a merged entity.
type Action string

const (
	ActionRedact   Action = "REDACT"
	ActionMask     Action = "MASK"
	ActionHash     Action = "HASH"
	ActionTokenize Action = "TOKENIZE"
)

// ParseAction validates an action string.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionRedact, ActionMask, ActionHash, ActionTokenize:
		return Action(s), nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Severity grades how damaging disclosure of an entity type would be.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

var severityByType = map[Type]Severity{
	TypePerson:      SeverityHigh,
	TypeDate:        SeverityLow,
	TypePhone:       SeverityMedium,
	TypeEmail:       SeverityMedium,
	TypeAddress:     SeverityMedium,
	TypeSSN:         SeverityHigh,
	TypeMRN:         SeverityHigh,
	TypePassport:    SeverityHigh,
	TypeCreditCard:  SeverityHigh,
	TypeIPAddress:   SeverityMedium,
	TypeLocation:    SeverityMedium,
	TypeOrg:         SeverityLow,
	TypeInsuranceID: SeverityHigh,
	TypeVehicleID:   SeverityMedium,
	TypeDeviceID:    SeverityMedium,
	TypeBankAccount: SeverityHigh,
	TypeUsername:    SeverityMedium,
	TypePassword:    SeverityHigh,
	TypeAPIKey:      SeverityHigh,
}

// SeverityOf returns the fixed severity grade for an entity type.
func SeverityOf(t Type) Severity {
	if s, ok := severityByType[t]; ok {
		return s
	}
	return SeverityMedium
}

// Span is a detected candidate region of text. Spans are immutable once
// produced by a detector; overlap resolution happens later in the merger.
type Span struct {
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Text       string  `json:"-"`
	Type       Type    `json:"entity_type"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
	Provenance string  `json:"provenance,omitempty"`
}

// Len returns the span length in bytes.
func (s Span) Len() int { return s.End - s.Start }

// Valid reports whether the span has sane bounds for a text of the given
// length. Zero-length and out-of-bounds spans are detector anomalies.
func (s Span) Valid(textLen int) bool {
	return s.Start >= 0 && s.Start < s.End && s.End <= textLen
}

// Overlaps reports whether two half-open ranges [Start,End) intersect.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && s.End > o.Start
}

// Entity is a Span that survived merge conflict resolution. The policy
// engine sets ResolvedAction and ReviewFlag exactly once; afterwards the
// entity is read-only for the transformer and the report builder.
type Entity struct {
	Span
	Severity       Severity `json:"severity"`
	ResolvedAction Action   `json:"action"`
	ReviewFlag     bool     `json:"review_flag"`
}
