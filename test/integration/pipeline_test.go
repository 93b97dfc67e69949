// Package integration exercises the full ingest-to-answer path with the
// offline clients (no network required).
package integration

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/chunk"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/generation"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/rag"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

func docxWith(t *testing.T, text string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	fmt.Fprintf(f, `<w:document><w:body><w:p><w:r><w:t>%s</w:t></w:r></w:p></w:body></w:document>`, text)
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestIntegration_IngestThenAnswer(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	embedder := embedding.NewOfflineEmbedder(32)
	vectors, err := vector.NewMemoryStore(32)
	if err != nil {
		t.Fatal(err)
	}
	defer vectors.Close()

	extractor := extract.NewExtractor(chunk.NewChunker(6, 1))
	pipeline := ingest.NewPipeline(store, extractor, embedder, vectors)
	engine := rag.NewEngine(embedder, vectors, generation.NewOfflineGenerator())
	ctx := context.Background()

	doc, err := pipeline.Ingest(ctx, extract.Source{
		Kind: models.SourceWord,
		Data: docxWith(t, "the mitochondria is the powerhouse of the cell and ribosomes synthesize proteins"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if doc.Status != models.StatusCompleted {
		t.Fatalf("status = %s", doc.Status)
	}

	chunks, err := store.GetChunksByDocumentID(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	answer, sources, err := engine.Answer(ctx, "what does the mitochondria do?", doc.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if answer == "" {
		t.Error("empty answer")
	}
	if len(sources) == 0 {
		t.Error("no sources retrieved")
	}
	for _, s := range sources {
		if s.DocumentID != doc.ID {
			t.Errorf("source from wrong document: %+v", s)
		}
	}

	// The question references nothing in a second, unrelated document: the
	// filter keeps the first document's chunks out of its retrieval.
	other, err := pipeline.Ingest(ctx, extract.Source{
		Kind: models.SourceWord,
		Data: docxWith(t, "completely different topic about maritime navigation and sailing routes"),
	})
	if err != nil {
		t.Fatal(err)
	}
	_, sources, err = engine.Answer(ctx, "what does the mitochondria do?", other.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range sources {
		if s.DocumentID != other.ID {
			t.Errorf("document filter leaked: %+v", s)
		}
	}
}

func TestIntegration_DeleteRemovesRetrievability(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	embedder := embedding.NewOfflineEmbedder(32)
	vectors, err := vector.NewMemoryStore(32)
	if err != nil {
		t.Fatal(err)
	}
	defer vectors.Close()

	extractor := extract.NewExtractor(chunk.NewChunker(10, 0))
	pipeline := ingest.NewPipeline(store, extractor, embedder, vectors)
	engine := rag.NewEngine(embedder, vectors, generation.NewOfflineGenerator())
	ctx := context.Background()

	doc, err := pipeline.Ingest(ctx, extract.Source{
		Kind: models.SourceWord,
		Data: docxWith(t, "ephemeral content scheduled for deletion"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := pipeline.Delete(ctx, doc.ID); err != nil {
		t.Fatal(err)
	}

	answer, sources, err := engine.Answer(ctx, "ephemeral content?", doc.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 0 {
		t.Errorf("retrieved from deleted document: %+v", sources)
	}
	if !strings.Contains(answer, "offline response") {
		// The offline generator's templated shape; the point is it is
		// non-empty even with nothing retrieved.
		if answer == "" {
			t.Error("empty answer after delete")
		}
	}
}
