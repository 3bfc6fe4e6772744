package export

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/raaihank/anonimizador/internal/blob"
)

// Sink names, used as metric labels
const (
	SinkFile   = "file"
	SinkWriter = "writer"
	SinkBlob   = "blob"
)

// Artifact is an encoded document ready to be handed to the host environment
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NewArtifact wraps encoded document data under DefaultFilename
func NewArtifact(data []byte) Artifact {
	return Artifact{
		Filename:    DefaultFilename,
		ContentType: ContentType,
		Data:        data,
	}
}

// Receipt tells the caller where the artifact ended up
type Receipt struct {
	Sink     string `json:"sink"`
	Location string `json:"location"`
}

// FileExporter writes artifacts into a directory
type FileExporter struct {
	Dir string
}

// Export writes the artifact atomically: a temp file in Dir renamed into place
func (e *FileExporter) Export(ctx context.Context, a Artifact) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	dir := e.Dir
	if dir == "" {
		dir = "."
	}

	name := filepath.Base(a.Filename)
	if name == "." || name == string(filepath.Separator) {
		name = DefaultFilename
	}
	target := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to create file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(a.Data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return Receipt{}, fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return Receipt{}, fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return Receipt{}, fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return Receipt{}, fmt.Errorf("failed to move file into place: %w", err)
	}

	return Receipt{Sink: SinkFile, Location: target}, nil
}

// WriterExporter writes the artifact followed by a newline to W
type WriterExporter struct {
	W io.Writer
}

// Export writes the artifact
func (e *WriterExporter) Export(ctx context.Context, a Artifact) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	if _, err := e.W.Write(a.Data); err != nil {
		return Receipt{}, fmt.Errorf("failed to write document: %w", err)
	}
	if _, err := io.WriteString(e.W, "\n"); err != nil {
		return Receipt{}, fmt.Errorf("failed to write document: %w", err)
	}
	return Receipt{Sink: SinkWriter, Location: "-"}, nil
}

// BlobExporter parks the artifact in a blob store and returns a one-shot
// download URL for it
type BlobExporter struct {
	Store blob.Store
	TTL   time.Duration
	// BaseURL is the download route prefix, e.g. "/api/download/"
	BaseURL string
}

// Export stores the artifact
func (e *BlobExporter) Export(ctx context.Context, a Artifact) (Receipt, error) {
	token, err := e.Store.Put(ctx, blob.Blob{
		Filename:    a.Filename,
		ContentType: a.ContentType,
		Data:        a.Data,
	}, e.TTL)
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to park document: %w", err)
	}

	base := e.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return Receipt{Sink: SinkBlob, Location: base + url.PathEscape(token)}, nil
}
