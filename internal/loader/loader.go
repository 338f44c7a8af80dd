// Package loader parses uploaded files into ordered text segments with
// positional metadata. One segment per PDF page; plain-text formats
// yield a single segment without a page number.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/querydocs/querydocs/internal/domain"
)

// Loader turns a source file into RawSegments, dispatching on extension.
type Loader struct{}

// New creates a Loader.
func New() *Loader {
	return &Loader{}
}

// SupportedExt reports whether the loader can handle a file extension.
func SupportedExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".pdf", ".txt", ".md":
		return true
	}
	return false
}

// Load parses the file at path. Unreadable or unparsable input yields
// ErrLoadFailed; a readable file with no text yields zero segments.
func (l *Loader) Load(path string) ([]domain.RawSegment, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return l.loadPDF(path)
	case ".txt", ".md":
		return l.loadText(path)
	default:
		return nil, fmt.Errorf("unsupported file type %q: %w", filepath.Ext(path), domain.ErrLoadFailed)
	}
}

func (l *Loader) loadPDF(path string) ([]domain.RawSegment, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w: %w", filepath.Base(path), err, domain.ErrLoadFailed)
	}
	defer f.Close()

	var segments []domain.RawSegment
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d of %s: %w: %w",
				i, filepath.Base(path), err, domain.ErrLoadFailed)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		segments = append(segments, domain.RawSegment{Text: text, Page: i})
	}
	return segments, nil
}

func (l *Loader) loadText(path string) ([]domain.RawSegment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", filepath.Base(path), err, domain.ErrLoadFailed)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	return []domain.RawSegment{{Text: string(data)}}, nil
}
