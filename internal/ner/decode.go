package ner

import (
	"math"
	"strings"

	"github.com/cloak-ai/cloak/internal/entity"
)

// labelTypes maps model label names (with any B-/I- prefix stripped) to
// pipeline entity types. Unmapped labels are ignored.
var labelTypes = map[string]entity.Type{
	"PER":          entity.TypePerson,
	"PERSON":       entity.TypePerson,
	"NAME":         entity.TypePerson,
	"LOC":          entity.TypeLocation,
	"GPE":          entity.TypeLocation,
	"LOCATION":     entity.TypeLocation,
	"CITY":         entity.TypeLocation,
	"ORG":          entity.TypeOrg,
	"ORGANIZATION": entity.TypeOrg,
	"COMPANY":      entity.TypeOrg,
	"DATE":         entity.TypeDate,
	"DATE_TIME":    entity.TypeDate,
	"EMAIL":        entity.TypeEmail,
	"PHONE":        entity.TypePhone,
	"PHONENUMBER":  entity.TypePhone,
	"ADDRESS":      entity.TypeAddress,
	"SSN":          entity.TypeSSN,
	"USERNAME":     entity.TypeUsername,
}

// tokenPredictions computes the argmax label and its softmax probability
// for each token position from the flat [seqLen x numLabels] logits.
func tokenPredictions(logits []float32, labelSet []string, tokenCount int) ([]string, []float64) {
	numLabels := len(labelSet)
	labels := make([]string, tokenCount)
	confidences := make([]float64, tokenCount)
	if numLabels == 0 {
		return labels, confidences
	}

	for i := 0; i < tokenCount; i++ {
		base := i * numLabels
		if base+numLabels > len(logits) {
			break
		}
		best := 0
		for j := 1; j < numLabels; j++ {
			if logits[base+j] > logits[base+best] {
				best = j
			}
		}
		labels[i] = labelSet[best]
		confidences[i] = softmaxProb(logits[base:base+numLabels], best)
	}
	return labels, confidences
}

func softmaxProb(logits []float32, idx int) float64 {
	maxVal := logits[0]
	for _, v := range logits[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	var sum float64
	for _, v := range logits {
		sum += math.Exp(float64(v - maxVal))
	}
	if sum == 0 {
		return 0
	}
	return math.Exp(float64(logits[idx]-maxVal)) / sum
}

// spansFromTokenLabels folds BIO-tagged tokens into entity spans. The
// span confidence is the mean of its tokens' probabilities; adjacent
// same-type spans that touch byte-wise are merged.
func spansFromTokenLabels(text string, labels []string, confidences []float64, offsets []tokenOffset) []entity.Span {
	var spans []entity.Span
	var cur *entity.Span
	var curSum float64
	var curTokens int

	flush := func() {
		if cur == nil {
			return
		}
		if curTokens > 0 {
			cur.Confidence = curSum / float64(curTokens)
		}
		cur.Text = text[cur.Start:cur.End]
		spans = append(spans, *cur)
		cur, curSum, curTokens = nil, 0, 0
	}

	for i, lbl := range labels {
		if i >= len(offsets) {
			break
		}
		offset := offsets[i]
		if offset.Start < 0 || offset.End <= offset.Start {
			continue
		}
		prefix, name := splitLabel(lbl)
		typ, mapped := labelTypes[strings.ToUpper(name)]
		if !mapped || strings.EqualFold(lbl, "O") {
			flush()
			continue
		}
		if prefix == "B" || cur == nil || cur.Type != typ {
			flush()
			cur = &entity.Span{
				Start:      offset.Start,
				End:        offset.End,
				Type:       typ,
				Source:     entity.SourceStatistical,
				Provenance: "ner",
			}
			curSum = confidences[i]
			curTokens = 1
			continue
		}
		if offset.End > cur.End {
			cur.End = offset.End
		}
		curSum += confidences[i]
		curTokens++
	}
	flush()

	return mergeAdjacent(text, spans)
}

func splitLabel(lbl string) (string, string) {
	lbl = strings.TrimSpace(lbl)
	if lbl == "" {
		return "", ""
	}
	parts := strings.SplitN(lbl, "-", 2)
	if len(parts) == 1 {
		return "", lbl
	}
	return parts[0], parts[1]
}

// mergeAdjacent joins same-type spans separated only by whitespace,
// which word-level tokenization tends to split.
func mergeAdjacent(text string, in []entity.Span) []entity.Span {
	if len(in) <= 1 {
		return in
	}
	out := make([]entity.Span, 0, len(in))
	cur := in[0]
	for _, s := range in[1:] {
		joinable := s.Type == cur.Type && s.Start <= cur.End
		if !joinable && s.Type == cur.Type && s.Start > cur.End && s.Start <= len(text) {
			joinable = strings.TrimSpace(text[cur.End:s.Start]) == ""
		}
		if joinable {
			if s.End > cur.End {
				cur.End = s.End
			}
			if s.Confidence < cur.Confidence {
				cur.Confidence = s.Confidence
			}
			cur.Text = text[cur.Start:cur.End]
			continue
		}
		out = append(out, cur)
		cur = s
	}
	out = append(out, cur)
	return out
}
