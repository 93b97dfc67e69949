// Package chunk splits normalized text into overlapping word windows.
package chunk

import "strings"

// Metadata keys attached to every piece.
const (
	MetaChunkIndex = "chunk_index"
	MetaStartWord  = "start_word"
	MetaEndWord    = "end_word"
)

// Piece is one window of text with its positional metadata merged into any
// source metadata supplied by the caller.
type Piece struct {
	Text     string
	Metadata map[string]interface{}
}

// Chunker splits text into overlapping word-based windows. It is stateless:
// identical input always produces identical pieces.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with the given window size and overlap (in
// words). Overlap is clamped so that the stride is at least one word.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split tokenizes text by whitespace and emits one window per start position
// 0, stride, 2*stride, ... below the word count, where stride is size-overlap.
// Trailing windows may be shorter than size; a window that ends exactly at the
// last word can still be followed by a short overlap-only tail. meta is copied
// into every piece before the positional keys are added.
func (c *Chunker) Split(text string, meta map[string]interface{}) []Piece {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	step := c.size - c.overlap
	if step <= 0 {
		step = 1
	}
	pieces := make([]Piece, 0, len(words)/step+1)
	for i := 0; i < len(words); i += step {
		end := i + c.size
		if end > len(words) {
			end = len(words)
		}
		m := make(map[string]interface{}, len(meta)+3)
		for k, v := range meta {
			m[k] = v
		}
		m[MetaChunkIndex] = len(pieces)
		m[MetaStartWord] = i
		m[MetaEndWord] = end
		pieces = append(pieces, Piece{
			Text:     strings.Join(words[i:end], " "),
			Metadata: m,
		})
	}
	return pieces
}

// Size returns the configured window size in words.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap in words.
func (c *Chunker) Overlap() int { return c.overlap }
