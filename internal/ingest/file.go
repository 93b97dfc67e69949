package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
)

// fileKinds maps file extensions to source kinds for drop-directory ingestion.
var fileKinds = map[string]models.SourceType{
	".pdf":  models.SourcePDF,
	".docx": models.SourceWord,
	".png":  models.SourceImage,
	".jpg":  models.SourceImage,
	".jpeg": models.SourceImage,
	".mp4":  models.SourceVideo,
	".m4a":  models.SourceVideo,
	".mp3":  models.SourceVideo,
}

// KindForPath returns the source kind for a file path, or false when the
// extension is not ingestible.
func KindForPath(path string) (models.SourceType, bool) {
	kind, ok := fileKinds[strings.ToLower(filepath.Ext(path))]
	return kind, ok
}

// IngestFile reads a file and runs it through the pipeline. A file whose
// content hash matches an existing document is skipped and the existing
// record returned, so watcher re-delivery of the same file is idempotent.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*models.Document, error) {
	kind, ok := KindForPath(path)
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	hash := ContentHash(data)
	existing, err := p.storage.GetDocumentByContentHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("content hash lookup: %w", err)
	}
	if existing != nil {
		p.logger.Debug("skipping already ingested file",
			zap.String("path", path),
			zap.String("document_id", existing.ID))
		return existing, nil
	}

	return p.Ingest(ctx, extract.Source{Kind: kind, Data: data, URL: path})
}
