package workflow

import (
	"context"
	"errors"

	"github.com/raaihank/anonimizador/internal/export"
	"github.com/raaihank/anonimizador/internal/privacy"
)

// ErrExport wraps failures of the export capability
var ErrExport = errors.New("export failed")

// ErrInvalidText is returned for input that is not valid UTF-8
var ErrInvalidText = errors.New("text is not valid UTF-8")

// Kind classifies a status message
type Kind string

const (
	// KindPrompt asks the user for text after a blank submission
	KindPrompt Kind = "prompt"
	// KindDone confirms that the document was produced and handed over
	KindDone Kind = "done"
	// KindFailed reports that the document could not be handed over
	KindFailed Kind = "failed"
)

// Status is one message for the user-facing status surface
type Status struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Display is the status surface
type Display interface {
	Show(ctx context.Context, status Status) error
}

// Exporter hands an encoded document to the host environment
type Exporter interface {
	Export(ctx context.Context, artifact export.Artifact) (export.Receipt, error)
}

// Outcome describes what a single Process call did
type Outcome struct {
	Skipped  bool              `json:"skipped"`
	Status   Status            `json:"status"`
	Document export.Document   `json:"-"`
	Receipt  export.Receipt    `json:"receipt"`
	Matches  int               `json:"matches"`
	Findings []privacy.Finding `json:"findings,omitempty"`
}

// DisplayFunc adapts a function to Display
type DisplayFunc func(ctx context.Context, status Status) error

// Show calls f
func (f DisplayFunc) Show(ctx context.Context, status Status) error {
	return f(ctx, status)
}
