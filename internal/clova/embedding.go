package clova

import (
	"context"
	"fmt"
)

// EmbeddingClient calls the CLOVA Studio embedding endpoint. It implements
// embedding.Embedder.
type EmbeddingClient struct {
	client     *Client
	url        string
	dimensions int
}

// NewEmbeddingClient creates an embedding client for the given endpoint URL.
func NewEmbeddingClient(url, apiKey string, dimensions int, opts ...Option) *EmbeddingClient {
	if dimensions <= 0 {
		dimensions = 1024
	}
	return &EmbeddingClient{
		client:     NewClient(apiKey, opts...),
		url:        url,
		dimensions: dimensions,
	}
}

type embeddingRequest struct {
	Text string `json:"text"`
}

type embeddingResponse struct {
	Result struct {
		Embedding []float32 `json:"embedding"`
	} `json:"result"`
}

// Embed returns the embedding vector for text.
func (e *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embeddingResponse
	if err := e.client.postJSON(ctx, e.url, embeddingRequest{Text: text}, &resp); err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	if len(resp.Result.Embedding) == 0 {
		return nil, fmt.Errorf("embed text: empty embedding in response")
	}
	return resp.Result.Embedding, nil
}

// EmbedBatch embeds each text with a separate call, in input order.
func (e *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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

// Dimensions returns the configured embedding dimension.
func (e *EmbeddingClient) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for EmbeddingClient.
func (e *EmbeddingClient) Close() error {
	return nil
}
