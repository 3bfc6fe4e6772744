package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/raaihank/anonimizador/internal/privacy"
)

const (
	// DefaultFilename is the name offered for the downloaded document
	DefaultFilename = "datos.json"
	// ContentType of an encoded document
	ContentType = "application/json"
	// TimestampLayout renders UTC instants with millisecond precision and a Z suffix
	TimestampLayout = "2006-01-02T15:04:05.000Z"
)

// Document is the exported interchange record. Field order is the key order.
type Document struct {
	Original    string `json:"original" parquet:"original"`
	Anonimizado string `json:"anonimizado" parquet:"anonimizado"`
	Fecha       string `json:"fecha" parquet:"fecha"`
}

// NewDocument builds the interchange record for a redaction result
func NewDocument(result privacy.Result) Document {
	return Document{
		Original:    result.Original,
		Anonimizado: result.Redacted,
		Fecha:       FormatTimestamp(result.CapturedAt),
	}
}

// FormatTimestamp renders t in UTC using TimestampLayout
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a value produced by FormatTimestamp
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

// Encode renders the result as pretty-printed JSON with two-space indentation.
// HTML characters and the U+2028/U+2029 separators are kept verbatim and
// there is no trailing newline.
func Encode(result privacy.Result) ([]byte, error) {
	return encode(NewDocument(result), "  ")
}

// EncodeCompact renders a document on a single line, for JSON-lines output
func EncodeCompact(doc Document) ([]byte, error) {
	return encode(doc, "")
}

func encode(doc Document, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return rawLineSeparators(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// rawLineSeparators undoes the \u2028 and \u2029 escapes encoding/json always
// applies, so both separators are written as the characters themselves
func rawLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 == len(data) {
			out = append(out, data[i])
			continue
		}
		if data[i+1] == 'u' && i+5 < len(data) && string(data[i+2:i+5]) == "202" {
			switch data[i+5] {
			case '8':
				out = append(out, "\u2028"...)
				i += 5
				continue
			case '9':
				out = append(out, "\u2029"...)
				i += 5
				continue
			}
		}
		// Keep the escape pair together so an escaped backslash is never
		// read as the start of another escape
		out = append(out, data[i], data[i+1])
		i++
	}
	return out
}

// Decode parses an encoded document
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}
