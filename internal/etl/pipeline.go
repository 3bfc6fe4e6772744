package etl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/anonimizador/internal/export"
	"github.com/raaihank/anonimizador/internal/metrics"
	"github.com/raaihank/anonimizador/internal/privacy"
	"github.com/raaihank/anonimizador/internal/workflow"
)

// Pipeline anonymizes every record of a dataset file
type Pipeline struct {
	redactor *privacy.Redactor
	config   *Config
	logger   *zap.Logger
	stats    *ProcessingStats
	mu       sync.RWMutex
}

// ProcessingStats tracks real-time processing statistics
type ProcessingStats struct {
	StartTime      time.Time `json:"start_time"`
	RecordsRead    int64     `json:"records_read"`
	RecordsWritten int64     `json:"records_written"`
	CurrentBatch   int64     `json:"current_batch"`
	ProcessingRate float64   `json:"processing_rate"` // records per second
}

// NewPipeline creates a new batch pipeline
func NewPipeline(redactor *privacy.Redactor, config *Config, logger *zap.Logger) *Pipeline {
	if redactor == nil {
		redactor = privacy.NewRedactor()
	}
	return &Pipeline{
		redactor: redactor,
		config:   config,
		logger:   logger,
		stats:    &ProcessingStats{StartTime: time.Now()},
	}
}

// ProcessFile reads inputPath, anonymizes each record and writes outputPath.
// Formats follow the file extensions; the configured output format is used
// when the output extension is not recognized.
func (p *Pipeline) ProcessFile(ctx context.Context, inputPath, outputPath string) (*ProcessingResult, error) {
	inFormat, err := DetectFileFormat(inputPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", inputPath, err)
	}

	outFormat, err := DetectFileFormat(outputPath)
	if err != nil || outFormat == FormatCSV {
		outFormat = p.config.OutputFormat
	}

	p.logger.Info("Starting batch anonymization",
		zap.String("input", inputPath),
		zap.String("input_format", string(inFormat)),
		zap.String("output", outputPath),
		zap.String("output_format", string(outFormat)),
		zap.Int("batch_size", p.config.BatchSize))

	reader, err := openReader(inputPath, inFormat)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	writer, err := openWriter(outputPath, outFormat)
	if err != nil {
		return nil, err
	}

	p.resetStats()
	start := time.Now()
	result := &ProcessingResult{Findings: make(map[string]int64)}

	runErr := p.processBatches(ctx, reader, writer, result)
	closeErr := writer.Close()
	result.Duration = time.Since(start)

	if runErr != nil {
		return result, runErr
	}
	if closeErr != nil {
		return result, fmt.Errorf("failed to finalize output: %w", closeErr)
	}

	p.logger.Info("Batch anonymization completed",
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("redacted", result.Redacted),
		zap.Int64("unchanged", result.Unchanged),
		zap.Int64("skipped", result.Skipped),
		zap.Int64("failed", result.Failed),
		zap.Duration("duration", result.Duration))

	return result, nil
}

func (p *Pipeline) processBatches(ctx context.Context, reader recordReader, writer recordWriter, result *ProcessingResult) error {
	batchSize := p.config.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, eof, readErr := p.readBatch(reader, batchSize, result)
		if len(batch) > 0 {
			if err := p.processBatch(batch, writer, result); err != nil {
				return err
			}
		}
		if readErr != nil {
			return fmt.Errorf("failed to read input: %w", readErr)
		}
		if eof {
			return nil
		}
	}
}

// readBatch reads up to size records. Malformed CSV rows are counted and
// skipped; any other read error ends the run.
func (p *Pipeline) readBatch(reader recordReader, size int, result *ProcessingResult) ([]InputRecord, bool, error) {
	batch := make([]InputRecord, 0, size)

	for len(batch) < size {
		record, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return batch, true, nil
		}
		if err != nil {
			result.Failed++
			if len(result.Errors) < 100 {
				result.Errors = append(result.Errors, err.Error())
			}
			if !recoverableReadError(err) {
				return batch, true, err
			}
			p.logger.Warn("Skipping unreadable record", zap.Error(err))
			continue
		}
		batch = append(batch, record)
	}

	return batch, false, nil
}

func (p *Pipeline) processBatch(batch []InputRecord, writer recordWriter, result *ProcessingResult) error {
	p.mu.Lock()
	p.stats.CurrentBatch++
	p.stats.RecordsRead += int64(len(batch))
	p.mu.Unlock()

	for _, record := range batch {
		result.TotalRecords++

		if workflow.IsBlank(record.Text) {
			result.Skipped++
			metrics.RecordBlankInput()
			continue
		}

		redaction := p.redactor.Redact(record.Text)
		metrics.RecordRedaction(redaction)

		if err := writer.Write(export.NewDocument(redaction)); err != nil {
			return fmt.Errorf("failed to write record %d: %w", result.TotalRecords, err)
		}

		if redaction.Changed() {
			result.Redacted++
		} else {
			result.Unchanged++
		}
		for _, f := range redaction.Findings {
			result.Findings[f.EntityType] += int64(f.Count)
		}

		p.mu.Lock()
		p.stats.RecordsWritten++
		p.mu.Unlock()

		if p.config.ProgressReport > 0 && result.TotalRecords%int64(p.config.ProgressReport) == 0 {
			p.reportProgress(result)
		}
	}

	return nil
}

func (p *Pipeline) reportProgress(result *ProcessingResult) {
	stats := p.GetStats()
	p.logger.Info("Batch progress",
		zap.Int64("records", result.TotalRecords),
		zap.Int64("redacted", result.Redacted),
		zap.Float64("records_per_second", stats.ProcessingRate))
}

// GetStats returns a snapshot of the processing statistics
func (p *Pipeline) GetStats() ProcessingStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := *p.stats
	if elapsed := time.Since(stats.StartTime).Seconds(); elapsed > 0 {
		stats.ProcessingRate = float64(stats.RecordsWritten) / elapsed
	}
	return stats
}

func (p *Pipeline) resetStats() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats = &ProcessingStats{StartTime: time.Now()}
}
