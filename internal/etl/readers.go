package etl

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/segmentio/parquet-go"

	"github.com/raaihank/anonimizador/internal/export"
)

// errShortRecord marks a CSV row without the text column; the next row is still readable
var errShortRecord = errors.New("CSV record is missing the text column")

// recoverableReadError reports whether the reader can continue after err
func recoverableReadError(err error) bool {
	var parseErr *csv.ParseError
	return errors.Is(err, errShortRecord) || errors.As(err, &parseErr)
}

// recordReader yields input records until io.EOF
type recordReader interface {
	Next() (InputRecord, error)
	Close() error
}

// recordWriter receives anonymized documents
type recordWriter interface {
	Write(doc export.Document) error
	Close() error
}

func openReader(path string, format FileFormat) (recordReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	var r recordReader
	switch format {
	case FormatCSV:
		r, err = newCSVReader(file)
	case FormatParquet:
		r = &parquetReader{file: file, reader: parquet.NewReader(file)}
	case FormatJSON, FormatJSONL:
		r = &jsonReader{file: file, decoder: json.NewDecoder(file)}
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		file.Close()
		return nil, err
	}
	return r, nil
}

type csvReader struct {
	file   *os.File
	reader *csv.Reader
	column int
}

func newCSVReader(file *os.File) (*csvReader, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "text") {
			return &csvReader{file: file, reader: reader, column: i}, nil
		}
	}
	return nil, fmt.Errorf("CSV header has no text column: %v", header)
}

func (r *csvReader) Next() (InputRecord, error) {
	record, err := r.reader.Read()
	if err != nil {
		return InputRecord{}, err
	}
	if r.column >= len(record) {
		return InputRecord{}, fmt.Errorf("%w: %d fields, text is column %d", errShortRecord, len(record), r.column+1)
	}
	return InputRecord{Text: record[r.column]}, nil
}

func (r *csvReader) Close() error {
	return r.file.Close()
}

type parquetReader struct {
	file   *os.File
	reader *parquet.Reader
}

func (r *parquetReader) Next() (InputRecord, error) {
	var record InputRecord
	if err := r.reader.Read(&record); err != nil {
		return InputRecord{}, err
	}
	return record, nil
}

func (r *parquetReader) Close() error {
	r.reader.Close()
	return r.file.Close()
}

// jsonReader decodes a stream of JSON objects, one per line
type jsonReader struct {
	file    *os.File
	decoder *json.Decoder
}

func (r *jsonReader) Next() (InputRecord, error) {
	var record InputRecord
	if err := r.decoder.Decode(&record); err != nil {
		return InputRecord{}, err
	}
	return record, nil
}

func (r *jsonReader) Close() error {
	return r.file.Close()
}

func openWriter(path string, format FileFormat) (recordWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	switch format {
	case FormatJSONL, FormatJSON:
		return &jsonlWriter{file: file, buf: bufio.NewWriter(file)}, nil
	case FormatParquet:
		return &parquetWriter{
			file:   file,
			writer: parquet.NewWriter(file, parquet.SchemaOf(new(export.Document))),
		}, nil
	default:
		file.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

type jsonlWriter struct {
	file *os.File
	buf  *bufio.Writer
}

func (w *jsonlWriter) Write(doc export.Document) error {
	line, err := export.EncodeCompact(doc)
	if err != nil {
		return err
	}
	if _, err := w.buf.Write(line); err != nil {
		return err
	}
	return w.buf.WriteByte('\n')
}

func (w *jsonlWriter) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

type parquetWriter struct {
	file   *os.File
	writer *parquet.Writer
}

func (w *parquetWriter) Write(doc export.Document) error {
	return w.writer.Write(&doc)
}

func (w *parquetWriter) Close() error {
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
