// Package pipeline wires the detectors, merger, policy engine, and
// transformer into the single processing entry point. Each run is
// synchronous and fully independent of any other concurrent run; the
// only shared state is the read-only statistical model and the caller's
// per-run token vault.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloak-ai/cloak/internal/entity"
	"github.com/cloak-ai/cloak/internal/logsafe"
	"github.com/cloak-ai/cloak/internal/merge"
	"github.com/cloak-ai/cloak/internal/ner"
	"github.com/cloak-ai/cloak/internal/patterns"
	"github.com/cloak-ai/cloak/internal/policy"
	"github.com/cloak-ai/cloak/internal/transform"
)

// Config is the immutable configuration for pipeline construction.
type Config struct {
	Policy policy.Config
	// ConsistentTokens makes identical raw values within one run map to
	// the same token.
	ConsistentTokens bool
}

// Result is the complete outcome of one run: the fully transformed text
// and the report. A partial result is never produced.
type Result struct {
	Text   string
	Report *transform.Report
}

// Pipeline executes the detection-merge-transform sequence.
type Pipeline struct {
	patterns    *patterns.Detector
	statistical ner.Detector
	engine      *policy.Engine
	consistent  bool
	needsVault  bool
}

// New validates the configuration and builds a pipeline. A nil
// statistical detector degrades to pattern-only operation.
func New(cfg Config, statistical ner.Detector) (*Pipeline, error) {
	engine, err := policy.NewEngine(cfg.Policy)
	if err != nil {
		return nil, err
	}
	if statistical == nil {
		statistical = ner.Unavailable{}
	}
	return &Pipeline{
		patterns:    patterns.New(),
		statistical: statistical,
		engine:      engine,
		consistent:  cfg.ConsistentTokens,
		needsVault:  engine.UsesAction(entity.ActionTokenize) || engine.UsesAction(entity.ActionHash),
	}, nil
}

// NERAvailable reports whether the statistical detector has a model.
func (p *Pipeline) NERAvailable() bool {
	return p.statistical.Available()
}

// Process de-identifies text under the pipeline's configuration. The
// vault is required when the configuration can resolve to TOKENIZE or
// HASH, since it carries the session salt; it is owned by the caller's
// session and never retained. The caller receives either a complete
// transformed text with a report, or an error. A partially redacted
// result is never returned.
func (p *Pipeline) Process(ctx context.Context, text string, vault *transform.Vault) (*Result, error) {
	if p.needsVault && vault == nil {
		return nil, &policy.ConfigurationError{Reason: "configuration resolves to TOKENIZE or HASH but no session vault was supplied"}
	}

	var (
		patternSpans []entity.Span
		nerSpans     []entity.Span
		nerErr       error
		wg           sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		patternSpans = p.patterns.Detect(text)
	}()
	go func() {
		defer wg.Done()
		nerSpans, nerErr = p.statistical.Detect(ctx, text)
	}()
	wg.Wait()

	if nerErr != nil {
		// Statistical failures degrade the run, they do not fail it.
		logsafe.Logf("pipeline: statistical detector error, continuing with pattern results: %v", nerErr)
		nerSpans = nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := make([]entity.Span, 0, len(patternSpans)+len(nerSpans))
	candidates = append(candidates, patternSpans...)
	candidates = append(candidates, nerSpans...)
	entities := merge.Resolve(candidates, len(text))

	if err := p.engine.Resolve(entities); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tr, err := transform.New(vault, p.consistent)
	if err != nil {
		return nil, fmt.Errorf("init transformer: %w", err)
	}
	out, err := tr.Apply(text, entities)
	if err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}

	report := transform.BuildReport(entities, len(text), p.statistical.Available())
	if vault != nil {
		report.SessionID = vault.SessionID()
	}
	return &Result{Text: out, Report: report}, nil
}
