// Package extract provides per-format text access for corpus documents:
// first-page plain text for classification and whole-document markdown for
// dataset construction. Extractors are registered per format; the markdown
// path runs cover/TOC/preamble removal before returning.
package extract

import (
	"context"
	"fmt"
	"sync"

	"github.com/Lllllllleong/docpairflow/internal/models"
	"github.com/Lllllllleong/docpairflow/internal/office"
)

// Extractor reads one document format.
type Extractor interface {
	// Format returns the format this extractor handles.
	Format() models.Format
	// FirstPageText returns plain text up to the first page boundary.
	FirstPageText(ctx context.Context, path string) (string, error)
	// Markdown returns the whole document as raw markdown, before cleanup.
	Markdown(ctx context.Context, path string) (string, error)
}

// Registry dispatches extraction by document format.
type Registry struct {
	mu         sync.RWMutex
	extractors map[models.Format]Extractor
}

// NewRegistry creates a registry with the built-in extractors. The office
// converter may be nil; doc extraction then fails per document instead of
// at construction.
func NewRegistry(conv *office.Converter) *Registry {
	r := &Registry{extractors: make(map[models.Format]Extractor)}
	r.Register(&docxExtractor{})
	r.Register(&pdfExtractor{})
	r.Register(newDocExtractor(conv))
	return r
}

// Register adds or replaces the extractor for a format.
func (r *Registry) Register(e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[e.Format()] = e
}

// Get returns the extractor for a format, or nil when none is registered.
func (r *Registry) Get(format models.Format) Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.extractors[format]
}

// ForPath returns the extractor for a file's format, or nil for
// unsupported extensions.
func (r *Registry) ForPath(path string) Extractor {
	format, ok := models.FormatFromPath(path)
	if !ok {
		return nil
	}
	return r.Get(format)
}

// FirstPageText extracts first-page plain text for the file at path.
func (r *Registry) FirstPageText(ctx context.Context, path string) (string, error) {
	e := r.ForPath(path)
	if e == nil {
		return "", fmt.Errorf("no extractor for file type: %s", path)
	}
	return e.FirstPageText(ctx, path)
}

// Markdown extracts the whole document as markdown with cover, table of
// contents, and preamble sections removed.
func (r *Registry) Markdown(ctx context.Context, path string) (string, error) {
	e := r.ForPath(path)
	if e == nil {
		return "", fmt.Errorf("no extractor for file type: %s", path)
	}
	raw, err := e.Markdown(ctx, path)
	if err != nil {
		return "", err
	}
	return Cleanup(raw), nil
}
