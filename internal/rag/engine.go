// Package rag orchestrates retrieval and generation for grounded question
// answering over ingested documents.
package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/generation"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

const (
	// DefaultTopK is how many chunks a query retrieves when unspecified.
	DefaultTopK = 5

	answerTemperature = 0.5
	answerMaxTokens   = 1024

	// noContextMarker replaces the context block when retrieval finds
	// nothing, so the model is told outright there is nothing to ground on.
	noContextMarker = "[No information available in the document]"
)

// Engine answers questions by retrieving the most similar chunks for the
// query and composing them into the generation prompt.
type Engine struct {
	embedder  embedding.Embedder
	store     vector.Store
	generator generation.Generator
	logger    *zap.Logger
	topK      int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTopK sets how many chunks Answer retrieves per question. Values <= 0
// keep DefaultTopK.
func WithTopK(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// NewEngine wires an engine from its three collaborators.
func NewEngine(embedder embedding.Embedder, store vector.Store, generator generation.Generator, opts ...Option) *Engine {
	e := &Engine{
		embedder:  embedder,
		store:     store,
		generator: generator,
		logger:    zap.NewNop(),
		topK:      DefaultTopK,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RetrieveContext embeds the query and returns the top-k most similar chunks,
// optionally restricted to one document. k <= 0 uses the engine's configured
// top-k.
func (e *Engine) RetrieveContext(ctx context.Context, query, documentID string, k int) ([]models.RetrievalResult, error) {
	if k <= 0 {
		k = e.topK
	}
	queryVector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := e.store.Query(ctx, queryVector, documentID, k)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	e.logger.Debug("retrieved context",
		zap.String("document_id", documentID),
		zap.Int("requested", k),
		zap.Int("returned", len(results)))
	return results, nil
}

// Answer retrieves context for the question and asks the generator for a
// grounded reply. Retrieved chunk texts enter the prompt in retrieval-rank
// order, highest similarity first. history, if any, sits between the system
// message and the new question. Returns the answer and the chunks it was
// grounded on.
func (e *Engine) Answer(ctx context.Context, question, documentID string, history []models.Message) (string, []models.RetrievalResult, error) {
	retrieved, err := e.RetrieveContext(ctx, question, documentID, e.topK)
	if err != nil {
		return "", nil, err
	}

	messages := make([]models.Message, 0, len(history)+2)
	messages = append(messages, models.Message{
		Role:    models.RoleSystem,
		Content: buildSystemPrompt(retrieved),
	})
	messages = append(messages, history...)
	messages = append(messages, models.Message{Role: models.RoleUser, Content: question})

	answer, err := e.generator.Complete(ctx, messages, answerTemperature, answerMaxTokens)
	if err != nil {
		return "", nil, fmt.Errorf("generate answer: %w", err)
	}
	return answer, retrieved, nil
}

// buildSystemPrompt concatenates the retrieved chunk texts into a context
// block. With nothing retrieved the block becomes an explicit no-information
// marker and the model is instructed to say it cannot find the answer, so an
// empty or mismatched index never produces an ungrounded reply.
func buildSystemPrompt(retrieved []models.RetrievalResult) string {
	if len(retrieved) == 0 {
		return fmt.Sprintf(`Based on the following information from the document:

%s

The document contains no information relevant to the question. State that you cannot find the answer in the document.`, noContextMarker)
	}

	texts := make([]string, 0, len(retrieved))
	for _, r := range retrieved {
		texts = append(texts, r.Text)
	}
	return fmt.Sprintf(`Based on the following information from the document:

%s

Answer the user's question accurately and in detail.
If the information is not found in the document, say "I cannot find this information in the document".`, strings.Join(texts, "\n\n"))
}
