package etl

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/raaihank/anonimizador/internal/export"
	"github.com/raaihank/anonimizador/internal/privacy"
)

var fixedAt = time.Date(2025, 5, 4, 3, 2, 1, 0, time.UTC)

func newTestPipeline(batchSize int) *Pipeline {
	redactor := privacy.NewRedactor(privacy.WithClock(func() time.Time { return fixedAt }))
	return NewPipeline(redactor, &Config{BatchSize: batchSize, OutputFormat: FormatJSONL}, zap.NewNop())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func readJSONL(t *testing.T, path string) []export.Document {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer file.Close()

	var docs []export.Document
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		doc, err := export.Decode(scanner.Bytes())
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		docs = append(docs, doc)
	}
	return docs
}

func TestDetectFileFormat(t *testing.T) {
	tests := map[string]FileFormat{
		"data.csv":       FormatCSV,
		"DATA.CSV":       FormatCSV,
		"x.parquet":      FormatParquet,
		"x.json":         FormatJSON,
		"x.jsonl":        FormatJSONL,
		"x.ndjson":       FormatJSONL,
		"dir.v2/x.jsonl": FormatJSONL,
	}
	for name, want := range tests {
		got, err := DetectFileFormat(name)
		if err != nil || got != want {
			t.Errorf("DetectFileFormat(%q) = %q, %v; want %q", name, got, err, want)
		}
	}

	if _, err := DetectFileFormat("notes.txt"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestProcessCSV(t *testing.T) {
	input := writeFile(t, "in.csv", "id,text\n"+
		"1,Mi DNI es 12345678Z y mi email es ana@example.com\n"+
		"2,Sin datos sensibles aquí\n"+
		"3,   \n"+
		"4,\"Llámame al 612345678, gracias\"\n")
	output := filepath.Join(t.TempDir(), "out.jsonl")

	result, err := newTestPipeline(2).ProcessFile(context.Background(), input, output)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	if result.TotalRecords != 4 || result.Redacted != 2 || result.Unchanged != 1 || result.Skipped != 1 {
		t.Errorf("Unexpected result: %+v", result)
	}
	if result.Findings[privacy.EntityDNI] != 1 || result.Findings[privacy.EntityEmail] != 1 || result.Findings[privacy.EntityTelefono] != 1 {
		t.Errorf("Unexpected findings: %v", result.Findings)
	}

	docs := readJSONL(t, output)
	if len(docs) != 3 {
		t.Fatalf("Expected 3 documents, got %d", len(docs))
	}
	if docs[0].Anonimizado != "Mi DNI es [DNI] y mi email es [EMAIL]" {
		t.Errorf("docs[0] = %+v", docs[0])
	}
	if docs[1].Anonimizado != docs[1].Original {
		t.Errorf("Clean text was modified: %+v", docs[1])
	}
	if docs[2].Anonimizado != "Llámame al [TELEFONO], gracias" {
		t.Errorf("docs[2] = %+v", docs[2])
	}
	if docs[0].Fecha != "2025-05-04T03:02:01.000Z" {
		t.Errorf("Fecha = %s", docs[0].Fecha)
	}
}

func TestProcessCSVWithoutTextColumn(t *testing.T) {
	input := writeFile(t, "in.csv", "id,body\n1,hola\n")
	output := filepath.Join(t.TempDir(), "out.jsonl")

	if _, err := newTestPipeline(10).ProcessFile(context.Background(), input, output); err == nil {
		t.Error("Expected error for missing text column")
	}
}

func TestProcessCSVShortRow(t *testing.T) {
	input := writeFile(t, "in.csv", "id,text\n1\n2,612345678\n")
	output := filepath.Join(t.TempDir(), "out.jsonl")

	result, err := newTestPipeline(10).ProcessFile(context.Background(), input, output)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if result.Failed != 1 || result.Redacted != 1 {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestProcessJSONLines(t *testing.T) {
	input := writeFile(t, "in.jsonl", `{"text":"12345678Z y 612345678 y 12345678Z"}
{"text":""}
{"text":"escribe a test.user@mail.org"}
`)
	output := filepath.Join(t.TempDir(), "out.jsonl")

	result, err := newTestPipeline(1).ProcessFile(context.Background(), input, output)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if result.TotalRecords != 3 || result.Skipped != 1 || result.Findings[privacy.EntityDNI] != 2 {
		t.Errorf("Unexpected result: %+v", result)
	}

	docs := readJSONL(t, output)
	if len(docs) != 2 || docs[0].Anonimizado != "[DNI] y [TELEFONO] y [DNI]" {
		t.Errorf("Unexpected documents: %+v", docs)
	}
}

func TestProcessBrokenJSON(t *testing.T) {
	input := writeFile(t, "in.json", `{"text":"612345678"}
{"text": oops}
`)
	output := filepath.Join(t.TempDir(), "out.jsonl")

	result, err := newTestPipeline(10).ProcessFile(context.Background(), input, output)
	if err == nil {
		t.Fatal("Expected error for broken JSON stream")
	}
	if result == nil || result.Redacted != 1 || result.Failed != 1 {
		t.Errorf("Records before the break should still be processed: %+v", result)
	}
}

func TestProcessParquetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.parquet")

	file, err := os.Create(input)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	w := parquet.NewWriter(file, parquet.SchemaOf(new(InputRecord)))
	for _, text := range []string{"Mi DNI es 12345678Z", "nada", "llama al 712345678"} {
		if err := w.Write(&InputRecord{Text: text}); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close writer failed: %v", err)
	}
	file.Close()

	output := filepath.Join(dir, "out.parquet")
	result, err := newTestPipeline(2).ProcessFile(context.Background(), input, output)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if result.TotalRecords != 3 || result.Redacted != 2 {
		t.Errorf("Unexpected result: %+v", result)
	}

	out, err := os.Open(output)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer out.Close()

	reader := parquet.NewReader(out)
	defer reader.Close()

	var docs []export.Document
	for {
		var doc export.Document
		if err := reader.Read(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			t.Fatalf("Read failed: %v", err)
		}
		docs = append(docs, doc)
	}

	if len(docs) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(docs))
	}
	if docs[0].Anonimizado != "Mi DNI es [DNI]" || docs[2].Anonimizado != "llama al [TELEFONO]" {
		t.Errorf("Unexpected rows: %+v", docs)
	}
}

func TestProcessFallbackOutputFormat(t *testing.T) {
	input := writeFile(t, "in.jsonl", `{"text":"ana@example.com"}`+"\n")
	output := filepath.Join(t.TempDir(), "out.txt")

	if _, err := newTestPipeline(10).ProcessFile(context.Background(), input, output); err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	docs := readJSONL(t, output)
	if len(docs) != 1 || docs[0].Anonimizado != "[EMAIL]" {
		t.Errorf("Unexpected documents: %+v", docs)
	}
}

func TestProcessCancelled(t *testing.T) {
	input := writeFile(t, "in.jsonl", strings.Repeat(`{"text":"612345678"}`+"\n", 10))
	output := filepath.Join(t.TempDir(), "out.jsonl")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestPipeline(2).ProcessFile(ctx, input, output); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestProcessUnsupportedInput(t *testing.T) {
	input := writeFile(t, "in.txt", "hola")
	if _, err := newTestPipeline(10).ProcessFile(context.Background(), input, "out.jsonl"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestGetStats(t *testing.T) {
	input := writeFile(t, "in.jsonl", strings.Repeat(`{"text":"hola"}`+"\n", 5))
	output := filepath.Join(t.TempDir(), "out.jsonl")

	p := newTestPipeline(2)
	if _, err := p.ProcessFile(context.Background(), input, output); err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	stats := p.GetStats()
	if stats.RecordsRead != 5 || stats.RecordsWritten != 5 || stats.CurrentBatch != 3 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}
