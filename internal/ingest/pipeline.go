// Package ingest runs the document ingestion pipeline: extract, chunk, embed,
// and persist chunks and vectors, driving the document status machine.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

// Pipeline turns a source into a COMPLETED or FAILED document. Independent
// documents may be ingested concurrently; ingestions of the same content are
// serialized with a per-content mutex so a re-upload racing an in-flight
// ingestion cannot interleave chunk ordinals or duplicate vector entries.
type Pipeline struct {
	storage   storage.Storage
	extractor *extract.Extractor
	embedder  embedding.Embedder
	store     vector.Store
	logger    *zap.Logger

	mu    sync.Mutex
	locks map[string]*docLock
}

// docLock is a refcounted mutex; the last holder to release removes its map
// entry so the lock table stays bounded by in-flight ingestions.
type docLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline wires a pipeline from its collaborators.
func NewPipeline(store storage.Storage, extractor *extract.Extractor, embedder embedding.Embedder, vectors vector.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		storage:   store,
		extractor: extractor,
		embedder:  embedder,
		store:     vectors,
		logger:    zap.NewNop(),
		locks:     make(map[string]*docLock),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ContentHash fingerprints raw source bytes.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Begin creates the document record in PROCESSING status. The record exists
// before extraction starts so the document always reaches a terminal status
// that callers can observe.
func (p *Pipeline) Begin(ctx context.Context, src extract.Source) (*models.Document, error) {
	doc := &models.Document{
		ID:         uuid.New().String(),
		SourceType: src.Kind,
		SourceURL:  src.URL,
		Status:     models.StatusProcessing,
	}
	if len(src.Data) > 0 {
		doc.ContentHash = ContentHash(src.Data)
	}
	if err := p.storage.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

// Process runs extract → chunk → embed → upsert for a document created by
// Begin and flips its status to COMPLETED, or to FAILED when embedding or
// either store rejects the batch. Embedding is sequential per chunk so the
// returned vector ids pair positionally with the chunk texts.
func (p *Pipeline) Process(ctx context.Context, doc *models.Document, src extract.Source) error {
	unlock := p.lock(lockKey(doc))
	defer unlock()

	start := time.Now()
	result := p.extractor.Extract(ctx, src)
	if len(result.Chunks) == 0 {
		// Extraction degrades to placeholders rather than erroring, so an
		// empty chunk list means there was literally no text to index.
		return p.fail(ctx, doc, 0, fmt.Errorf("extraction produced no chunks"))
	}

	texts := make([]string, len(result.Chunks))
	metadata := make([]map[string]interface{}, len(result.Chunks))
	for i, piece := range result.Chunks {
		texts[i] = piece.Text
		metadata[i] = piece.Metadata
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return p.fail(ctx, doc, 0, fmt.Errorf("embed chunks: %w", err))
	}

	vectorIDs, err := p.store.Upsert(ctx, vectors, texts, doc.ID, metadata)
	if err != nil {
		return p.fail(ctx, doc, 0, fmt.Errorf("upsert vectors: %w", err))
	}

	chunks := make([]*models.DocumentChunk, len(result.Chunks))
	for i, piece := range result.Chunks {
		chunks[i] = &models.DocumentChunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Content:    piece.Text,
			ChunkIndex: i,
			VectorID:   vectorIDs[i],
			Metadata:   piece.Metadata,
		}
	}
	if err := p.storage.BatchCreateChunks(ctx, chunks); err != nil {
		return p.fail(ctx, doc, len(vectorIDs), fmt.Errorf("persist chunks: %w", err))
	}

	if err := p.storage.UpdateDocumentStatus(ctx, doc.ID, models.StatusCompleted); err != nil {
		return p.fail(ctx, doc, len(vectorIDs), fmt.Errorf("mark completed: %w", err))
	}
	doc.Status = models.StatusCompleted
	p.logger.Info("document ingested",
		zap.String("document_id", doc.ID),
		zap.String("source_type", string(doc.SourceType)),
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Ingest is Begin followed by Process.
func (p *Pipeline) Ingest(ctx context.Context, src extract.Source) (*models.Document, error) {
	doc, err := p.Begin(ctx, src)
	if err != nil {
		return nil, err
	}
	return doc, p.Process(ctx, doc, src)
}

// Delete removes a document's vectors, then its record; chunk rows cascade
// with the document.
func (p *Pipeline) Delete(ctx context.Context, documentID string) error {
	if err := p.store.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	if err := p.storage.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// fail moves the document to FAILED. Vectors already upserted for this
// attempt stay behind; the count is logged so operators can reconcile.
func (p *Pipeline) fail(ctx context.Context, doc *models.Document, orphanedVectors int, cause error) error {
	if err := p.storage.UpdateDocumentStatus(ctx, doc.ID, models.StatusFailed); err != nil {
		p.logger.Error("failed to mark document failed",
			zap.String("document_id", doc.ID), zap.Error(err))
	}
	doc.Status = models.StatusFailed
	p.logger.Warn("document ingestion failed",
		zap.String("document_id", doc.ID),
		zap.Int("orphaned_vectors", orphanedVectors),
		zap.Error(cause))
	return cause
}

// lockKey picks the serialization key for a document. Each Begin mints a
// fresh id, so re-uploads of the same bytes are only recognizable by content
// hash; URL sources fall back to the URL, and anything else to the id.
func lockKey(doc *models.Document) string {
	if doc.ContentHash != "" {
		return doc.ContentHash
	}
	if doc.SourceURL != "" {
		return doc.SourceURL
	}
	return doc.ID
}

func (p *Pipeline) lock(key string) func() {
	p.mu.Lock()
	l, ok := p.locks[key]
	if !ok {
		l = &docLock{}
		p.locks[key] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, key)
		}
		p.mu.Unlock()
	}
}
