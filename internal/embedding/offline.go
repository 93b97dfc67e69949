package embedding

import (
	"context"
	"crypto/sha256"

	"github.com/hyperjump/kotae/pkg/utils"
)

// OfflineEmbedder derives embeddings from a SHA-256 hash of the input text.
// It is a pure function: the same text always yields a bit-identical vector,
// so retrieval ranking can be tested without network access. Vectors are
// unit-normalized for cosine similarity.
type OfflineEmbedder struct {
	dimensions int
}

// NewOfflineEmbedder returns an offline embedder with the given dimensions.
func NewOfflineEmbedder(dimensions int) *OfflineEmbedder {
	if dimensions <= 0 {
		dimensions = 1024
	}
	return &OfflineEmbedder{dimensions: dimensions}
}

// Embed expands the text's hash bytes into the target dimension. Each
// component is seeded from one hash byte; re-hashing extends the stream when
// the dimension exceeds the digest length.
func (e *OfflineEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	emb := make([]float32, e.dimensions)
	digest := sha256.Sum256([]byte(text))
	stream := digest[:]
	for i := 0; i < e.dimensions; i++ {
		if i > 0 && i%len(digest) == 0 {
			next := sha256.Sum256(stream)
			stream = next[:]
		}
		// Map the byte to [-0.5, 0.5].
		emb[i] = float32(stream[i%len(digest)])/255.0 - 0.5
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text in order.
func (e *OfflineEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *OfflineEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for OfflineEmbedder.
func (e *OfflineEmbedder) Close() error {
	return nil
}
