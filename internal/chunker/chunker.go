// Package chunker splits loader output into fixed-size overlapping
// windows suitable for embedding. Split is a pure function: identical
// input always yields an identical chunk sequence.
package chunker

import (
	"fmt"

	"github.com/querydocs/querydocs/internal/domain"
)

// Split concatenates the segment texts and slides a window of
// chunkSize runes advancing by chunkSize-overlap per step. Every
// window emits one Chunk; the window that reaches the end of the text
// is the final (possibly short) chunk. A chunk's page is taken from
// the segment that contributed its first rune.
//
// Sizes are measured in runes so a window never splits a UTF-8
// sequence. Requires chunkSize > overlap >= 0.
func Split(segments []domain.RawSegment, sourceFile string, chunkSize, overlap int) ([]domain.Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must satisfy 0 <= overlap < chunkSize, got %d", overlap)
	}

	text, starts, pages := concat(segments)
	if len(text) == 0 {
		return nil, nil
	}

	step := chunkSize - overlap
	chunks := make([]domain.Chunk, 0, len(text)/step+1)

	for start := 0; start < len(text); start += step {
		end := start + chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, domain.Chunk{
			Text:          string(text[start:end]),
			SourceFile:    sourceFile,
			Page:          pageAt(starts, pages, start),
			SequenceIndex: len(chunks),
		})
		if end == len(text) {
			break
		}
	}
	return chunks, nil
}

// concat joins segment texts as runes, recording each non-empty
// segment's start offset and page.
func concat(segments []domain.RawSegment) (text []rune, starts []int, pages []int) {
	for _, seg := range segments {
		if seg.Text == "" {
			continue
		}
		starts = append(starts, len(text))
		pages = append(pages, seg.Page)
		text = append(text, []rune(seg.Text)...)
	}
	return text, starts, pages
}

// pageAt returns the page of the segment containing the given offset:
// the last segment whose start is <= offset. Segment starts are
// strictly increasing, so a boundary offset resolves to the segment
// that actually contributed that rune.
func pageAt(starts, pages []int, offset int) int {
	page := 0
	for i, s := range starts {
		if s > offset {
			break
		}
		page = pages[i]
	}
	return page
}
