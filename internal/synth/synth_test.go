package synth

import (
	"strings"
	"testing"

	"github.com/querydocs/querydocs/internal/domain"
)

func TestBuildContext_LabelsAndOrder(t *testing.T) {
	chunks := []domain.ScoredChunk{
		{Chunk: domain.Chunk{Text: "first chunk", SourceFile: "a.pdf", Page: 2}, Score: 0.9},
		{Chunk: domain.Chunk{Text: "second chunk", SourceFile: "b.txt"}, Score: 0.7},
	}

	got := BuildContext(chunks)

	if !strings.Contains(got, "Document 1 (a.pdf, page 2):\nfirst chunk") {
		t.Errorf("missing labeled first document:\n%s", got)
	}
	if !strings.Contains(got, "Document 2 (b.txt):\nsecond chunk") {
		t.Errorf("missing labeled second document (no page for plain text):\n%s", got)
	}
	if strings.Index(got, "Document 1") > strings.Index(got, "Document 2") {
		t.Error("documents must keep retrieval order")
	}

	parts := strings.Split(got, "\n\n")
	if len(parts) != 2 {
		t.Errorf("expected documents separated by a blank line, got %d parts", len(parts))
	}
}

func TestBuildContext_Empty(t *testing.T) {
	if got := BuildContext(nil); got != "" {
		t.Errorf("expected empty context, got %q", got)
	}
}
