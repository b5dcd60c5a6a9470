package transform

import (
	"fmt"

	"github.com/cloak-ai/cloak/internal/entity"
)

// ReportEntity is the caller-visible view of one transformed entity.
// It never carries the raw matched text.
type ReportEntity struct {
	ID         string          `json:"entity_id"`
	Type       entity.Type     `json:"entity_type"`
	Start      int             `json:"start"`
	End        int             `json:"end"`
	Confidence float64         `json:"confidence"`
	Severity   entity.Severity `json:"severity"`
	Source     entity.Source   `json:"source"`
	Provenance string          `json:"provenance,omitempty"`
	Action     entity.Action   `json:"action"`
	ReviewFlag bool            `json:"review_flag"`
}

// Report aggregates per-entity outcomes for one run. SessionID is
// filled in by the pipeline when the run used a session vault.
type Report struct {
	SessionID      string                 `json:"session_id,omitempty"`
	Entities       []ReportEntity         `json:"entities"`
	CountsByType   map[entity.Type]int    `json:"counts_by_type"`
	CountsByAction map[entity.Action]int  `json:"counts_by_action"`
	ReviewRequired bool                   `json:"review_required"`
	NERAvailable   bool                   `json:"ner_available"`
	OriginalLength int                    `json:"original_text_length"`
}

// BuildReport derives the report from the entity sequence. Pure
// function, no side effects. ReviewRequired is set when any entity is
// flagged for review, or when a HIGH-severity entity ends up with a
// weaker action than REDACT.
func BuildReport(entities []entity.Entity, textLen int, nerAvailable bool) *Report {
	r := &Report{
		Entities:       make([]ReportEntity, 0, len(entities)),
		CountsByType:   make(map[entity.Type]int),
		CountsByAction: make(map[entity.Action]int),
		NERAvailable:   nerAvailable,
		OriginalLength: textLen,
	}

	for i, ent := range entities {
		r.Entities = append(r.Entities, ReportEntity{
			ID:         fmt.Sprintf("E%d", i+1),
			Type:       ent.Type,
			Start:      ent.Start,
			End:        ent.End,
			Confidence: ent.Confidence,
			Severity:   ent.Severity,
			Source:     ent.Source,
			Provenance: ent.Provenance,
			Action:     ent.ResolvedAction,
			ReviewFlag: ent.ReviewFlag,
		})
		r.CountsByType[ent.Type]++
		r.CountsByAction[ent.ResolvedAction]++
		if ent.ReviewFlag {
			r.ReviewRequired = true
		}
		if ent.Severity == entity.SeverityHigh && ent.ResolvedAction != entity.ActionRedact {
			r.ReviewRequired = true
		}
	}
	return r
}
