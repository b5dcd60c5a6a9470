// Package logsafe provides logging helpers whose output never contains
// raw sensitive values. Every log line is scrubbed for the structured
// identifiers the pipeline itself detects before it is printed, so a
// diagnostic message can never leak what the pipeline is removing.
package logsafe

import (
	"fmt"
	"log"
	"regexp"
)

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	ssnRe   = regexp.MustCompile(`\b\d{3}[-\s]?\d{2}[-\s]?\d{4}\b`)
	cardRe  = regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`)
	phoneRe = regexp.MustCompile(`\b(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	ipRe    = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	keyRe   = regexp.MustCompile(`(?i)((?:api[_-]?key|token|password|passwd|pwd|secret)\s*[:=]\s*)(\S+)`)
)

// String scrubs known sensitive patterns from a free-form string.
func String(s string) string {
	if s == "" {
		return s
	}
	out := s
	out = keyRe.ReplaceAllString(out, "${1}[SCRUBBED]")
	out = emailRe.ReplaceAllString(out, "[SCRUBBED_EMAIL]")
	out = cardRe.ReplaceAllString(out, "[SCRUBBED_NUMBER]")
	out = ssnRe.ReplaceAllString(out, "[SCRUBBED_NUMBER]")
	out = phoneRe.ReplaceAllString(out, "[SCRUBBED_NUMBER]")
	out = ipRe.ReplaceAllString(out, "[SCRUBBED_IP]")
	return out
}

// Any formats the value with %+v and scrubs it.
func Any(v any) string {
	return String(fmt.Sprintf("%+v", v))
}

// Sprintf formats like fmt.Sprintf and scrubs the result.
func Sprintf(format string, args ...interface{}) string {
	return String(fmt.Sprintf(format, args...))
}

// Logf prints a scrubbed log line.
func Logf(format string, args ...interface{}) {
	log.Print(Sprintf(format, args...))
}

// Fatalf prints a scrubbed fatal log line.
func Fatalf(format string, args ...interface{}) {
	log.Fatal(Sprintf(format, args...))
}
