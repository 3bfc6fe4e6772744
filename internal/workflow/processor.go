package workflow

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/raaihank/anonimizador/internal/export"
	"github.com/raaihank/anonimizador/internal/logger"
	"github.com/raaihank/anonimizador/internal/metrics"
	"github.com/raaihank/anonimizador/internal/privacy"
)

// IsBlank reports whether text is empty or whitespace only
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// Processor runs one user action: guard, redact, encode, export, report
type Processor struct {
	redactor *privacy.Redactor
	display  Display
	exporter Exporter
	messages Messages
	filename string
	logger   *logger.Logger
}

// Option configures a Processor
type Option func(*Processor)

// WithMessages sets the status strings
func WithMessages(m Messages) Option {
	return func(p *Processor) { p.messages = m }
}

// WithRedactor replaces the default redactor
func WithRedactor(r *privacy.Redactor) Option {
	return func(p *Processor) { p.redactor = r }
}

// WithFilename sets the name the document is saved under
func WithFilename(name string) Option {
	return func(p *Processor) {
		if name != "" {
			p.filename = name
		}
	}
}

// NewProcessor creates a processor writing status to display and documents to exporter
func NewProcessor(display Display, exporter Exporter, log *logger.Logger, opts ...Option) *Processor {
	p := &Processor{
		redactor: privacy.NewRedactor(),
		display:  display,
		exporter: exporter,
		messages: catalog[LangES],
		filename: export.DefaultFilename,
		logger:   log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process handles one submission. Blank text is answered with the prompt and
// never reaches the redactor. An export failure is shown to the user and
// returned wrapped in ErrExport. Text that is not valid UTF-8 is rejected with
// ErrInvalidText before anything is shown or exported, since the document
// could not carry it unchanged.
func (p *Processor) Process(ctx context.Context, text string) (Outcome, error) {
	if !utf8.ValidString(text) {
		p.logger.Warn("Rejected input", zap.Int("length", len(text)), zap.Error(ErrInvalidText))
		return Outcome{}, ErrInvalidText
	}

	if IsBlank(text) {
		metrics.RecordBlankInput()
		status := p.status(KindPrompt)
		p.show(ctx, status)
		return Outcome{Skipped: true, Status: status}, nil
	}

	result := p.redactor.Redact(text)
	metrics.RecordRedaction(result)
	p.logger.LogRedaction(result)

	data, err := export.Encode(result)
	if err != nil {
		return p.fail(ctx, result, err)
	}

	artifact := export.NewArtifact(data)
	artifact.Filename = p.filename

	receipt, err := p.exporter.Export(ctx, artifact)
	metrics.RecordExport(sinkOf(p.exporter, receipt), err)
	if err != nil {
		return p.fail(ctx, result, err)
	}

	status := p.status(KindDone)
	p.show(ctx, status)

	p.logger.Info("Text processed",
		zap.Int("matches", result.TotalMatches()),
		zap.String("sink", receipt.Sink),
		zap.String("location", receipt.Location),
	)

	return Outcome{
		Status:   status,
		Document: export.NewDocument(result),
		Receipt:  receipt,
		Matches:  result.TotalMatches(),
		Findings: result.Findings,
	}, nil
}

func (p *Processor) fail(ctx context.Context, result privacy.Result, err error) (Outcome, error) {
	p.logger.Error("Export failed", zap.Error(err))

	status := p.status(KindFailed)
	p.show(ctx, status)

	return Outcome{
		Status:   status,
		Document: export.NewDocument(result),
		Matches:  result.TotalMatches(),
		Findings: result.Findings,
	}, fmt.Errorf("%w: %w", ErrExport, err)
}

func (p *Processor) status(kind Kind) Status {
	return Status{Kind: kind, Message: p.messages.For(kind)}
}

// show is best effort: a broken status surface does not undo an export
func (p *Processor) show(ctx context.Context, status Status) {
	if p.display == nil {
		return
	}
	if err := p.display.Show(ctx, status); err != nil {
		p.logger.Warn("Failed to show status",
			zap.String("kind", string(status.Kind)),
			zap.Error(err),
		)
	}
}

func sinkOf(e Exporter, receipt export.Receipt) string {
	if receipt.Sink != "" {
		return receipt.Sink
	}
	switch e.(type) {
	case *export.FileExporter:
		return export.SinkFile
	case *export.WriterExporter:
		return export.SinkWriter
	case *export.BlobExporter:
		return export.SinkBlob
	default:
		return "custom"
	}
}
