package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/hyperjump/kotae/internal/models"
)

type memoryEntry struct {
	id         string
	vector     []float32
	text       string
	documentID string
	metadata   map[string]interface{}
}

// MemoryStore is an in-memory Store using brute-force cosine search. Used in
// tests and in offline mode when no vector database is configured.
type MemoryStore struct {
	dimensions int
	entries    []memoryEntry
	mu         sync.RWMutex
}

// NewMemoryStore creates an in-memory store for vectors of the given dimension.
func NewMemoryStore(dimensions int) (*MemoryStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryStore{dimensions: dimensions}, nil
}

// EnsureCollection is a no-op; the in-memory collection always exists.
func (m *MemoryStore) EnsureCollection(ctx context.Context) error {
	return nil
}

// Upsert stores entries with freshly assigned ids, aligned with the inputs.
func (m *MemoryStore) Upsert(ctx context.Context, vectors [][]float32, texts []string, documentID string, metadata []map[string]interface{}) ([]string, error) {
	if len(vectors) != len(texts) || len(vectors) != len(metadata) {
		return nil, fmt.Errorf("vectors, texts, and metadata length mismatch")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(vectors))
	for i, v := range vectors {
		if len(v) != m.dimensions {
			return nil, fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(v), m.dimensions)
		}
		vec := make([]float32, m.dimensions)
		copy(vec, v)
		ids[i] = uuid.New().String()
		m.entries = append(m.entries, memoryEntry{
			id:         ids[i],
			vector:     vec,
			text:       texts[i],
			documentID: documentID,
			metadata:   metadata[i],
		})
	}
	return ids, nil
}

// Query returns the top entries by cosine similarity, optionally restricted
// to a single document. limit <= 0 falls back to defaultQueryLimit, matching
// QdrantStore.
func (m *MemoryStore) Query(ctx context.Context, queryVector []float32, documentID string, limit int) ([]models.RetrievalResult, error) {
	if len(queryVector) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(queryVector), m.dimensions)
	}
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]models.RetrievalResult, 0, limit)
	for _, e := range m.entries {
		if documentID != "" && e.documentID != documentID {
			continue
		}
		results = append(results, models.RetrievalResult{
			ID:         e.id,
			Score:      CosineSimilarity(queryVector, e.vector),
			Text:       e.text,
			DocumentID: e.documentID,
			Metadata:   e.metadata,
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

// DeleteByDocument removes every entry for documentID.
func (m *MemoryStore) DeleteByDocument(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.documentID != documentID {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	return nil
}

// Size returns the number of stored entries.
func (m *MemoryStore) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}
