// Package patterns implements the structural (regex-based) detector.
// Every matcher is deterministic and pure: the same text always yields
// the same spans, all with fixed confidence 1.0. Overlap between
// matchers is expected and left to the merger.
package patterns

import (
	"regexp"
	"strings"

	"github.com/cloak-ai/cloak/internal/entity"
)

// patternConfidence is the fixed confidence for structural matches.
const patternConfidence = 1.0

type matcher struct {
	typ        entity.Type
	re         *regexp.Regexp
	group      bool // narrow the span to the last capture group
	validate   func(string) bool
	provenance string
}

// Detector holds the compiled pattern library. Safe for concurrent use.
type Detector struct {
	matchers []matcher
}

var (
	reSSN = regexp.MustCompile(`\b\d{3}[-\s]?\d{2}[-\s]?\d{4}\b`)

	rePhone = regexp.MustCompile(`\b(?:\+?1[-.\s]?)?(?:\(?\d{3}\)?[-.\s]?)?\d{3}[-.\s]?\d{4}\b`)

	reEmail = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	reIPAddress = regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}` +
		`(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`)

	reCreditCard = regexp.MustCompile(`\b(?:4[0-9]{12}(?:[0-9]{3})?|` +
		`5[1-5][0-9]{14}|` +
		`3[47][0-9]{13}|` +
		`6(?:011|5[0-9]{2})[0-9]{12}|` +
		`(?:2131|1800|35\d{3})\d{11})\b`)

	rePassport = regexp.MustCompile(`\b[0-9]{9}\b`)

	reDate = regexp.MustCompile(`\b(?:(?:0?[1-9]|1[0-2])[/-](?:0?[1-9]|[12][0-9]|3[01])[/-](?:19|20)?\d{2}|` +
		`(?:19|20)?\d{2}[/-](?:0?[1-9]|1[0-2])[/-](?:0?[1-9]|[12][0-9]|3[01]))\b`)

	reDateVerbal = regexp.MustCompile(`(?i)\b(?:January|February|March|April|May|June|July|August|September|October|` +
		`November|December)\s+\d{1,2},?\s+\d{4}\b`)

	reMRN = regexp.MustCompile(`(?i)\b(?:MRN|Medical\s*Record\s*[#]?\s*)[:#]?\s*([A-Z0-9-]{5,15})\b`)

	reInsuranceID = regexp.MustCompile(`(?i)\b(?:Policy|Policy\s*#|Member\s*ID|Insurance|Insurance\s*ID)[:#]?\s*` +
		`([A-Z0-9-]{6,12})\b`)

	reVIN = regexp.MustCompile(`\b[A-HJ-NPR-Z0-9]{17}\b`)

	reDeviceID = regexp.MustCompile(`(?i)\b(?:Device|Device\s*ID)[:#]?\s*([A-Fa-f0-9-]{8,36})\b`)

	reBankAccount = regexp.MustCompile(`(?i)\b(?:Account|Account\s*#|Account\s*Number|Bank|Bank\s*Account)[:#]?\s*` +
		`([0-9]{8,17})\b`)

	reAPIKey = regexp.MustCompile(`(?i)\b(?:api[_-]?key|apikey|token|auth[_-]?token|access[_-]?key)[=:]\s*` +
		`([A-Za-z0-9_-]{20,})\b`)

	rePassword = regexp.MustCompile(`(?i)\b(?:password|passwd|pwd)[=:]\s*([^\s]{4,})`)

	reAddress = regexp.MustCompile(`(?i)\b\d{1,5}\s+(?:[A-Za-z]+\s+){1,4}(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|` +
		`Blvd|Drive|Dr|Lane|Ln|Court|Ct|Way|Place|Pl)\.?\b`)

	rePersonTitle = regexp.MustCompile(`\b(?:Dr\.?|Mr\.?|Mrs\.?|Ms\.?|Doctor)\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+\b`)

	rePersonBasic = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+\b`)
)

// nameStopwords are capitalized words that commonly lead a two-word
// match without being part of a name. Leading stopwords are trimmed off
// person-name candidates before the span is emitted.
var nameStopwords = map[string]struct{}{
	"contact": {}, "dear": {}, "hello": {}, "hi": {}, "patient": {},
	"the": {}, "from": {}, "to": {}, "regards": {}, "sincerely": {},
	"thanks": {}, "best": {}, "attn": {}, "attention": {}, "name": {},
	"visited": {}, "called": {}, "per": {}, "see": {}, "meet": {},
}

// New compiles the pattern library.
func New() *Detector {
	return &Detector{
		matchers: []matcher{
			{typ: entity.TypeSSN, re: reSSN, validate: validSSN, provenance: "regex"},
			{typ: entity.TypePhone, re: rePhone, provenance: "regex"},
			{typ: entity.TypeEmail, re: reEmail, provenance: "regex"},
			{typ: entity.TypeIPAddress, re: reIPAddress, provenance: "regex"},
			{typ: entity.TypeCreditCard, re: reCreditCard, validate: validLuhn, provenance: "regex"},
			{typ: entity.TypePassport, re: rePassport, provenance: "regex"},
			{typ: entity.TypeDate, re: reDate, provenance: "regex"},
			{typ: entity.TypeDate, re: reDateVerbal, provenance: "regex"},
			{typ: entity.TypeMRN, re: reMRN, group: true, provenance: "regex"},
			{typ: entity.TypeInsuranceID, re: reInsuranceID, group: true, provenance: "regex"},
			{typ: entity.TypeVehicleID, re: reVIN, validate: mixedAlphanumeric, provenance: "regex"},
			{typ: entity.TypeDeviceID, re: reDeviceID, group: true, provenance: "regex"},
			{typ: entity.TypeBankAccount, re: reBankAccount, group: true, provenance: "regex"},
			{typ: entity.TypeAPIKey, re: reAPIKey, group: true, provenance: "regex"},
			{typ: entity.TypePassword, re: rePassword, group: true, provenance: "regex"},
			{typ: entity.TypeAddress, re: reAddress, provenance: "regex"},
		},
	}
}

// Detect returns all candidate spans for the text. Empty or malformed
// input yields an empty result, never an error.
func (d *Detector) Detect(text string) []entity.Span {
	if text == "" {
		return nil
	}

	spans := make([]entity.Span, 0, 16)
	for _, m := range d.matchers {
		spans = d.appendMatches(spans, m, text)
	}
	spans = appendPersonNames(spans, text)
	return spans
}

func (d *Detector) appendMatches(spans []entity.Span, m matcher, text string) []entity.Span {
	for _, sub := range m.re.FindAllStringSubmatchIndex(text, -1) {
		start, end := sub[0], sub[1]
		if m.group && len(sub) >= 4 && sub[3] > sub[2] {
			start, end = sub[2], sub[3]
		}
		raw := text[start:end]
		if m.validate != nil && !m.validate(raw) {
			continue
		}
		spans = append(spans, entity.Span{
			Start:      start,
			End:        end,
			Text:       raw,
			Type:       m.typ,
			Confidence: patternConfidence,
			Source:     entity.SourcePattern,
			Provenance: m.provenance,
		})
	}
	return spans
}

// appendPersonNames emits title-prefixed names, then falls back to
// capitalized word sequences with leading stopwords trimmed off.
func appendPersonNames(spans []entity.Span, text string) []entity.Span {
	for _, m := range rePersonTitle.FindAllStringIndex(text, -1) {
		spans = append(spans, entity.Span{
			Start:      m[0],
			End:        m[1],
			Text:       text[m[0]:m[1]],
			Type:       entity.TypePerson,
			Confidence: patternConfidence,
			Source:     entity.SourcePattern,
			Provenance: "regex_title",
		})
	}

	for _, m := range rePersonBasic.FindAllStringIndex(text, -1) {
		start, end := trimLeadingStopwords(text, m[0], m[1])
		if start < 0 {
			continue
		}
		spans = append(spans, entity.Span{
			Start:      start,
			End:        end,
			Text:       text[start:end],
			Type:       entity.TypePerson,
			Confidence: patternConfidence,
			Source:     entity.SourcePattern,
			Provenance: "regex_basic",
		})
	}
	return spans
}

// trimLeadingStopwords advances the start of a candidate name past any
// leading stopwords. Returns start = -1 when fewer than two words remain.
func trimLeadingStopwords(text string, start, end int) (int, int) {
	for {
		words := strings.Fields(text[start:end])
		if len(words) < 2 {
			return -1, end
		}
		if _, ok := nameStopwords[strings.ToLower(words[0])]; !ok {
			return start, end
		}
		// The candidate always begins at a word, so the first word
		// starts at offset zero; skip it and the whitespace after it.
		start += len(words[0])
		rest := strings.TrimLeft(text[start:end], " \t\r\n")
		start = end - len(rest)
	}
}

// validSSN rejects area 000, 666 and 9xx, group 00 and serial 0000.
// The upstream regex cannot express these exclusions in RE2.
func validSSN(raw string) bool {
	digits := make([]byte, 0, 9)
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			digits = append(digits, raw[i])
		}
	}
	if len(digits) != 9 {
		return false
	}
	area := string(digits[0:3])
	group := string(digits[3:5])
	serial := string(digits[5:9])
	if area == "000" || area == "666" || area[0] == '9' {
		return false
	}
	if group == "00" || serial == "0000" {
		return false
	}
	return true
}

// validLuhn runs the Luhn checksum over the digits of a card candidate.
func validLuhn(raw string) bool {
	var digits []int
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			digits = append(digits, int(raw[i]-'0'))
		}
	}
	if len(digits) < 13 {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// mixedAlphanumeric requires at least one letter and one digit; filters
// bare 17-char words out of the VIN matcher.
func mixedAlphanumeric(raw string) bool {
	var hasLetter, hasDigit bool
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c >= 'A' && c <= 'Z':
			hasLetter = true
		case c >= '0' && c <= '9':
			hasDigit = true
		}
		if hasLetter && hasDigit {
			return true
		}
	}
	return false
}
