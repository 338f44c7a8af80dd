package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/querydocs/querydocs/internal/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestSupportedExt(t *testing.T) {
	for _, ext := range []string{".pdf", ".txt", ".md", ".PDF", ".Txt"} {
		if !SupportedExt(ext) {
			t.Errorf("expected %q to be supported", ext)
		}
	}
	for _, ext := range []string{".png", ".docx", "", ".pdf.exe"} {
		if SupportedExt(ext) {
			t.Errorf("expected %q to be rejected", ext)
		}
	}
}

func TestLoad_Text(t *testing.T) {
	path := writeFile(t, "notes.txt", "line one\nline two")

	segments, err := New().Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0].Text != "line one\nline two" {
		t.Errorf("unexpected text: %q", segments[0].Text)
	}
	if segments[0].Page != 0 {
		t.Errorf("plain text has no page notion, got %d", segments[0].Page)
	}
}

func TestLoad_Markdown(t *testing.T) {
	path := writeFile(t, "readme.md", "# Title\n\nBody.")

	segments, err := New().Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
}

func TestLoad_WhitespaceOnlyYieldsNoSegments(t *testing.T) {
	path := writeFile(t, "blank.txt", "  \n\t\n ")

	segments, err := New().Load(path)
	if err != nil {
		t.Fatalf("whitespace-only file is not a load failure: %v", err)
	}
	if len(segments) != 0 {
		t.Errorf("expected no segments, got %d", len(segments))
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, "image.png", "not really an image")

	_, err := New().Load(path)
	if !errors.Is(err, domain.ErrLoadFailed) {
		t.Fatalf("expected ErrLoadFailed, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := New().Load(filepath.Join(t.TempDir(), "missing.txt"))
	if !errors.Is(err, domain.ErrLoadFailed) {
		t.Fatalf("expected ErrLoadFailed, got %v", err)
	}
}

func TestLoad_CorruptPDF(t *testing.T) {
	path := writeFile(t, "broken.pdf", "this is not a pdf")

	_, err := New().Load(path)
	if !errors.Is(err, domain.ErrLoadFailed) {
		t.Fatalf("expected ErrLoadFailed, got %v", err)
	}
}
