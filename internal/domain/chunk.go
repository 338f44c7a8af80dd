package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// RawSegment is one logical unit of loader output (e.g. a PDF page).
// Page is 1-based; 0 means the source format has no page notion.
type RawSegment struct {
	Text string
	Page int
}

// Chunk is the unit of embedding and retrieval.
type Chunk struct {
	Text          string `json:"text"`
	SourceFile    string `json:"source_file"`
	Page          int    `json:"page,omitempty"`
	SequenceIndex int    `json:"sequence_index"`
}

// IndexedRecord is a chunk with its embedding, as persisted in the
// vector collection. JobID tags the ingestion run that wrote it.
type IndexedRecord struct {
	ID     string
	Vector []float32
	Chunk  Chunk
	JobID  string
}

// ScoredChunk pairs a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Answer is a synthesized response plus the chunks that grounded it.
type Answer struct {
	Text    string        `json:"answer"`
	Sources []ScoredChunk `json:"documents"`
}

// RecordID derives a stable record id from the chunk identity.
// Re-processing the same file upserts over the same ids, which is what
// makes at-least-once delivery safe on the index side.
func RecordID(c Chunk) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s\x00%d\x00%s", c.SourceFile, c.SequenceIndex, c.Text))
	return hex.EncodeToString(h[:])
}
