// Package embedding provides text embedding clients.
package embedding

import "context"

// Embedder produces fixed-dimension vector embeddings for text.
// Implementations must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch embeds texts one at a time; the i-th vector always
	// corresponds to the i-th text.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
