// Package merge reconciles candidate spans from both detectors into a
// single ordered, non-overlapping entity set.
//
// Candidates are sorted by start offset ascending, then span length
// descending (longer spans are more specific), then source (statistical
// over pattern when equally specific), then confidence descending. A
// left-to-right greedy sweep accepts a span only when it does not
// overlap an already-accepted one. The sort is stable and detectors
// emit spans in a fixed registration order, so the result is
// deterministic for identical inputs.
package merge

import (
	"sort"

	"github.com/cloak-ai/cloak/internal/entity"
	"github.com/cloak-ai/cloak/internal/logsafe"
)

// Resolve converts the union of candidate spans into a maximal
// non-overlapping set of entities, ordered by start offset. Invalid
// spans (zero-length or out of bounds) are dropped with a logged
// anomaly and never propagated as a failure of the run.
func Resolve(candidates []entity.Span, textLen int) []entity.Entity {
	if len(candidates) == 0 {
		return nil
	}

	valid := make([]entity.Span, 0, len(candidates))
	for _, s := range candidates {
		if !s.Valid(textLen) {
			logsafe.Logf("merge: dropping invalid span type=%s source=%s start=%d end=%d text_len=%d",
				s.Type, s.Source, s.Start, s.End, textLen)
			continue
		}
		valid = append(valid, s)
	}
	if len(valid) == 0 {
		return nil
	}

	sort.SliceStable(valid, func(i, j int) bool {
		a, b := valid[i], valid[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Len() != b.Len() {
			return a.Len() > b.Len()
		}
		if a.Source != b.Source {
			return a.Source == entity.SourceStatistical
		}
		return a.Confidence > b.Confidence
	})

	accepted := make([]entity.Entity, 0, len(valid))
	maxEnd := 0
	for _, s := range valid {
		if s.Start < maxEnd {
			continue
		}
		accepted = append(accepted, entity.Entity{
			Span:     s,
			Severity: entity.SeverityOf(s.Type),
		})
		maxEnd = s.End
	}
	return accepted
}
