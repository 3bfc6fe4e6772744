package etl

import (
	"errors"
	"path/filepath"
	"strings"
	"time"
)

// ErrUnsupportedFormat is returned for file extensions the pipeline cannot handle
var ErrUnsupportedFormat = errors.New("unsupported file format")

// InputRecord is a single text to anonymize
type InputRecord struct {
	Text string `csv:"text" parquet:"text" json:"text"`
}

// ProcessingResult represents the result of processing a dataset
type ProcessingResult struct {
	TotalRecords int64            `json:"total_records"`
	Redacted     int64            `json:"redacted"`
	Unchanged    int64            `json:"unchanged"`
	Skipped      int64            `json:"skipped"`
	Failed       int64            `json:"failed"`
	Findings     map[string]int64 `json:"findings"`
	Duration     time.Duration    `json:"duration"`
	Errors       []string         `json:"errors,omitempty"`
}

// Config contains batch pipeline configuration
type Config struct {
	BatchSize      int        `yaml:"batch_size" mapstructure:"batch_size" validate:"gt=0"`                      // 1000
	ProgressReport int        `yaml:"progress_report" mapstructure:"progress_report" validate:"gte=0"`           // 10000
	OutputFormat   FileFormat `yaml:"output_format" mapstructure:"output_format" validate:"oneof=jsonl parquet"` // when the output extension says nothing
}

// FileFormat represents supported file formats
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSON    FileFormat = "json"
	FormatJSONL   FileFormat = "jsonl"
)

// DetectFileFormat detects file format from extension
func DetectFileFormat(filename string) (FileFormat, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".parquet":
		return FormatParquet, nil
	case ".json":
		return FormatJSON, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	default:
		return "", ErrUnsupportedFormat
	}
}
