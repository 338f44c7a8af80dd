package chunker

import (
	"strings"
	"testing"

	"github.com/querydocs/querydocs/internal/domain"
)

func segs(texts ...string) []domain.RawSegment {
	out := make([]domain.RawSegment, len(texts))
	for i, t := range texts {
		out[i] = domain.RawSegment{Text: t, Page: i + 1}
	}
	return out
}

func TestSplit_WindowStepping(t *testing.T) {
	text := strings.Repeat("a", 2500)
	chunks, err := Split(segs(text), "doc.pdf", 1000, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	wantLens := []int{1000, 1000, 900}
	for i, c := range chunks {
		if got := len([]rune(c.Text)); got != wantLens[i] {
			t.Errorf("chunk %d: expected len %d, got %d", i, wantLens[i], got)
		}
		if c.SequenceIndex != i {
			t.Errorf("chunk %d: expected sequence %d, got %d", i, i, c.SequenceIndex)
		}
	}
}

func TestSplit_OverlapInvariant(t *testing.T) {
	text := strings.Repeat("abcdefghij", 300) // 3000 runes
	chunks, err := Split(segs(text), "doc.txt", 500, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Text)
		cur := []rune(chunks[i].Text)
		tail := string(prev[len(prev)-100:])
		head := string(cur[:100])
		if tail != head {
			t.Fatalf("chunk %d does not overlap its predecessor by 100 runes", i)
		}
	}
}

func TestSplit_CoversAllText(t *testing.T) {
	text := strings.Repeat("x", 1234)
	chunks, err := Split(segs(text), "doc.txt", 400, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	last := chunks[len(chunks)-1]
	total := 0
	for i, c := range chunks {
		n := len([]rune(c.Text))
		if i < len(chunks)-1 && n != 400 {
			t.Errorf("chunk %d: expected full window of 400, got %d", i, n)
		}
		total += n
	}
	// Sum of lengths = text length + overlap contributed by each boundary.
	want := 1234 + 50*(len(chunks)-1)
	if total != want {
		t.Errorf("expected total rune count %d, got %d", want, total)
	}
	if !strings.HasSuffix(text, last.Text) {
		t.Error("final chunk must end at the end of the text")
	}
}

func TestSplit_Deterministic(t *testing.T) {
	input := segs("first page text here", "second page follows")

	a, err := Split(input, "doc.pdf", 10, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Split(input, "doc.pdf", 10, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(a) != len(b) {
		t.Fatalf("expected identical chunk counts, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestSplit_PageFromFirstRune(t *testing.T) {
	// Page 1 has 6 runes, page 2 has 6 runes. Window 4, overlap 1.
	chunks, err := Split(segs("aaaaaa", "bbbbbb"), "doc.pdf", 4, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, c := range chunks {
		first := []rune(c.Text)[0]
		wantPage := 1
		if first == 'b' {
			wantPage = 2
		}
		if c.Page != wantPage {
			t.Errorf("chunk %d starting with %q: expected page %d, got %d",
				c.SequenceIndex, string(first), wantPage, c.Page)
		}
	}
}

func TestSplit_MultiByteRunes(t *testing.T) {
	text := strings.Repeat("日本語テキスト", 100) // 600 runes
	chunks, err := Split(segs(text), "doc.txt", 250, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, c := range chunks {
		if !strings.Contains(text, c.Text) {
			t.Errorf("chunk %d is not a substring of the input, rune boundary broken", i)
		}
	}
}

func TestSplit_ShortInput(t *testing.T) {
	chunks, err := Split(segs("tiny"), "doc.txt", 1000, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "tiny" {
		t.Errorf("expected chunk text %q, got %q", "tiny", chunks[0].Text)
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	chunks, err := Split(nil, "doc.txt", 1000, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestSplit_InvalidParams(t *testing.T) {
	if _, err := Split(segs("text"), "doc.txt", 0, 0); err == nil {
		t.Error("expected error for zero chunk size")
	}
	if _, err := Split(segs("text"), "doc.txt", 100, 100); err == nil {
		t.Error("expected error for overlap == chunkSize")
	}
	if _, err := Split(segs("text"), "doc.txt", 100, -1); err == nil {
		t.Error("expected error for negative overlap")
	}
}
