// Package ner wraps a pretrained ONNX token-classification model as the
// statistical detector. The model is loaded once at process start and
// used read-only afterwards; when no model can be loaded the detector
// degrades to a no-op and the pipeline continues on pattern results
// alone.
package ner

import (
	"context"

	"github.com/cloak-ai/cloak/internal/entity"
)

// Detector is the statistical-detector contract. Implementations must
// be safe for concurrent use after construction.
type Detector interface {
	// Detect returns candidate spans for semantically typed entities.
	Detect(ctx context.Context, text string) ([]entity.Span, error)
	// Available reports whether a model is loaded.
	Available() bool
}

// Unavailable is the degraded-mode detector used when no model could be
// loaded. Detect always returns an empty result and no error.
type Unavailable struct{}

func (u Unavailable) Detect(context.Context, string) ([]entity.Span, error) { return nil, nil }

func (u Unavailable) Available() bool { return false }
