package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"pdf-qa-service/internal/logger"

	"github.com/google/uuid"
)

// Document is one unit of ingested text. A PDF yields a single document;
// tabular sources (CSV, XLSX) yield one document per row, mirroring how
// each row is an independently retrievable fact.
type Document struct {
	ID       string
	Source   string // originating file name
	Text     string
	Row      int    // 1-based row number for tabular sources, 0 otherwise
	Pages    int    // page count for paginated sources, 0 otherwise
	FileHash string // hex SHA-256 of the originating file, "" if unknown
}

// Extractor turns raw file bytes into documents for one format family.
type Extractor interface {
	Extensions() []string
	Extract(ctx context.Context, data []byte, source string) ([]Document, error)
}

// Failure records a document that could not be ingested. Batch ingestion
// skips failed files and reports them instead of aborting the batch.
type Failure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// File is an uploaded file pending extraction. Hash is the hex SHA-256 of
// Data when the caller computed one.
type File struct {
	Name string
	Data []byte
	Hash string
}

// Registry dispatches extraction by file extension.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry returns a registry with all built-in extractors installed.
// A non-empty allowed list restricts the registry to those extensions,
// letting deployments disable formats without rebuilding.
func NewRegistry(allowed ...string) *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	r.Register(NewPDFExtractor())
	r.Register(NewCSVExtractor())
	r.Register(NewXLSXExtractor())
	r.Register(NewHTMLExtractor())
	r.Register(NewTextExtractor())
	if len(allowed) > 0 {
		keep := make(map[string]bool, len(allowed))
		for _, ext := range allowed {
			keep[strings.ToLower(strings.TrimSpace(ext))] = true
		}
		for ext := range r.byExt {
			if !keep[ext] {
				delete(r.byExt, ext)
			}
		}
	}
	return r
}

func (r *Registry) Register(e Extractor) {
	for _, ext := range e.Extensions() {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// Supported reports whether the registry can handle the given file name.
func (r *Registry) Supported(name string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Extract ingests a single file.
func (r *Registry) Extract(ctx context.Context, data []byte, name string) ([]Document, error) {
	ext := strings.ToLower(filepath.Ext(name))
	e, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %q", ext)
	}
	docs, err := e.Extract(ctx, data, name)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no text extracted from %s", name)
	}
	return docs, nil
}

// ExtractBatch ingests a set of files, skipping and reporting any that
// fail rather than aborting the whole batch.
func (r *Registry) ExtractBatch(ctx context.Context, files []File) ([]Document, []Failure) {
	var docs []Document
	var failures []Failure
	for _, f := range files {
		extracted, err := r.Extract(ctx, f.Data, f.Name)
		if err != nil {
			logger.Warn("document ingestion failed, skipping", "source", f.Name, "error", err)
			failures = append(failures, Failure{Source: f.Name, Error: err.Error()})
			continue
		}
		for i := range extracted {
			extracted[i].FileHash = f.Hash
		}
		docs = append(docs, extracted...)
	}
	return docs, failures
}

func newDocID() string {
	return uuid.NewString()
}

// SourceType derives a short type tag ("pdf", "csv", ...) from a document
// source name. Sheet suffixes like "report.xlsx#Sheet1" are ignored.
func SourceType(source string) string {
	if i := strings.IndexByte(source, '#'); i >= 0 {
		source = source[:i]
	}
	ext := strings.ToLower(filepath.Ext(source))
	if ext == "" {
		return "txt"
	}
	return strings.TrimPrefix(ext, ".")
}
