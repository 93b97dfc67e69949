// Package models defines core data structures for documents, chunks, and retrieval results.
package models

import "time"

// SourceType identifies the kind of source material a document was built from.
type SourceType string

const (
	SourcePDF     SourceType = "pdf"
	SourceWord    SourceType = "word"
	SourceImage   SourceType = "image"
	SourceVideo   SourceType = "video"
	SourceWeb     SourceType = "web"
	SourceYouTube SourceType = "youtube"
)

// DocumentStatus tracks ingestion progress. PROCESSING transitions to exactly
// one of COMPLETED or FAILED; both are terminal.
type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// Document represents an ingested source unit with processing metadata.
type Document struct {
	ID          string         `json:"id" db:"id"`
	SourceType  SourceType     `json:"source_type" db:"source_type"`
	SourceURL   string         `json:"source_url,omitempty" db:"source_url"`
	ContentHash string         `json:"content_hash,omitempty" db:"content_hash"`
	Status      DocumentStatus `json:"status" db:"status"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// DocumentChunk is a bounded slice of a document's text, the unit of embedding
// and retrieval. VectorID is empty until the chunk's vector has been stored.
type DocumentChunk struct {
	ID         string                 `json:"id" db:"id"`
	DocumentID string                 `json:"document_id" db:"document_id"`
	Content    string                 `json:"content" db:"content"`
	ChunkIndex int                    `json:"chunk_index" db:"chunk_index"`
	VectorID   string                 `json:"vector_id,omitempty" db:"vector_id"`
	Metadata   map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt  time.Time              `json:"created_at" db:"created_at"`
}
