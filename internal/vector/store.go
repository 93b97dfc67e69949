// Package vector provides vector persistence and filtered similarity search.
package vector

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// defaultQueryLimit is the top-k used when a caller passes limit <= 0; every
// Store implementation applies the same fallback.
const defaultQueryLimit = 5

// Store persists embedding vectors with their chunk payloads and supports
// document-filtered top-k similarity search. Implementations must be safe for
// concurrent use.
type Store interface {
	// EnsureCollection creates the backing collection if it does not exist.
	// Creation is idempotent; an "already exists" condition is not an error.
	EnsureCollection(ctx context.Context) error
	// Upsert stores one entry per vector and returns the assigned ids,
	// positionally aligned with the inputs.
	Upsert(ctx context.Context, vectors [][]float32, texts []string, documentID string, metadata []map[string]interface{}) ([]string, error)
	// Query returns up to limit entries ordered by descending similarity;
	// limit <= 0 falls back to defaultQueryLimit. When documentID is
	// non-empty, only entries with an exactly matching payload document id
	// are eligible.
	Query(ctx context.Context, queryVector []float32, documentID string, limit int) ([]models.RetrievalResult, error)
	// DeleteByDocument removes every entry belonging to documentID.
	DeleteByDocument(ctx context.Context, documentID string) error
	Close() error
}
