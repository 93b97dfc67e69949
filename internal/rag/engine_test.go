package rag

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

// stubStore returns preloaded results and records the query it received.
type stubStore struct {
	results   []models.RetrievalResult
	err       error
	lastDocID string
	lastLimit int
}

func (s *stubStore) EnsureCollection(ctx context.Context) error { return nil }
func (s *stubStore) Upsert(ctx context.Context, vectors [][]float32, texts []string, documentID string, metadata []map[string]interface{}) ([]string, error) {
	return nil, nil
}
func (s *stubStore) Query(ctx context.Context, queryVector []float32, documentID string, limit int) ([]models.RetrievalResult, error) {
	s.lastDocID = documentID
	s.lastLimit = limit
	return s.results, s.err
}
func (s *stubStore) DeleteByDocument(ctx context.Context, documentID string) error { return nil }
func (s *stubStore) Close() error                                                  { return nil }

// recordingGenerator captures the prompt it was asked to complete.
type recordingGenerator struct {
	messages    []models.Message
	temperature float64
	reply       string
	err         error
}

func (g *recordingGenerator) Complete(ctx context.Context, messages []models.Message, temperature float64, maxTokens int) (string, error) {
	g.messages = messages
	g.temperature = temperature
	return g.reply, g.err
}

func TestEngine_RetrieveContext(t *testing.T) {
	store := &stubStore{results: []models.RetrievalResult{{ID: "a", Score: 0.9, Text: "hit"}}}
	e := NewEngine(embedding.NewOfflineEmbedder(64), store, &recordingGenerator{})

	got, err := e.RetrieveContext(context.Background(), "what is chunking?", "doc-1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Text != "hit" {
		t.Errorf("got %+v", got)
	}
	if store.lastDocID != "doc-1" {
		t.Errorf("document filter not forwarded: %q", store.lastDocID)
	}
	if store.lastLimit != DefaultTopK {
		t.Errorf("k<=0 should default to %d, got %d", DefaultTopK, store.lastLimit)
	}
}

func TestEngine_ConfiguredTopK(t *testing.T) {
	store := &stubStore{}
	gen := &recordingGenerator{reply: "ok"}
	e := NewEngine(embedding.NewOfflineEmbedder(64), store, gen, WithTopK(3))

	// Answer uses the configured value, not the package default.
	if _, _, err := e.Answer(context.Background(), "q", "doc-1", nil); err != nil {
		t.Fatal(err)
	}
	if store.lastLimit != 3 {
		t.Errorf("Answer queried with limit %d, want 3", store.lastLimit)
	}

	// RetrieveContext with k<=0 falls back to the same configured value.
	if _, err := e.RetrieveContext(context.Background(), "q", "", 0); err != nil {
		t.Fatal(err)
	}
	if store.lastLimit != 3 {
		t.Errorf("RetrieveContext defaulted to limit %d, want 3", store.lastLimit)
	}

	// An explicit k still wins over the configured value.
	if _, err := e.RetrieveContext(context.Background(), "q", "", 7); err != nil {
		t.Fatal(err)
	}
	if store.lastLimit != 7 {
		t.Errorf("explicit k ignored: limit %d, want 7", store.lastLimit)
	}

	// Non-positive option values keep the default.
	d := NewEngine(embedding.NewOfflineEmbedder(64), store, gen, WithTopK(0))
	if _, err := d.RetrieveContext(context.Background(), "q", "", 0); err != nil {
		t.Fatal(err)
	}
	if store.lastLimit != DefaultTopK {
		t.Errorf("WithTopK(0) changed the default: limit %d, want %d", store.lastLimit, DefaultTopK)
	}
}

func TestEngine_AnswerContextRankOrder(t *testing.T) {
	// Results arrive ranked by similarity; the prompt must keep that order,
	// not reorder by document position.
	store := &stubStore{results: []models.RetrievalResult{
		{ID: "c3", Score: 0.95, Text: "third chunk of the document"},
		{ID: "c1", Score: 0.80, Text: "first chunk of the document"},
		{ID: "c2", Score: 0.60, Text: "second chunk of the document"},
	}}
	gen := &recordingGenerator{reply: "answer"}
	e := NewEngine(embedding.NewOfflineEmbedder(64), store, gen)

	answer, retrieved, err := e.Answer(context.Background(), "question?", "doc-1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if answer != "answer" {
		t.Errorf("answer = %q", answer)
	}
	if len(retrieved) != 3 {
		t.Fatalf("retrieved = %d", len(retrieved))
	}

	system := gen.messages[0]
	if system.Role != models.RoleSystem {
		t.Fatalf("first message role = %s", system.Role)
	}
	third := strings.Index(system.Content, "third chunk")
	first := strings.Index(system.Content, "first chunk")
	second := strings.Index(system.Content, "second chunk")
	if third < 0 || first < 0 || second < 0 {
		t.Fatalf("chunks missing from prompt: %q", system.Content)
	}
	if !(third < first && first < second) {
		t.Errorf("chunks not in rank order: positions %d %d %d", third, first, second)
	}

	last := gen.messages[len(gen.messages)-1]
	if last.Role != models.RoleUser || last.Content != "question?" {
		t.Errorf("last message = %+v", last)
	}
}

func TestEngine_AnswerWithHistory(t *testing.T) {
	store := &stubStore{results: []models.RetrievalResult{{ID: "a", Score: 0.9, Text: "ctx"}}}
	gen := &recordingGenerator{reply: "ok"}
	e := NewEngine(embedding.NewOfflineEmbedder(64), store, gen)

	history := []models.Message{
		{Role: models.RoleUser, Content: "earlier question"},
		{Role: models.RoleAssistant, Content: "earlier answer"},
	}
	if _, _, err := e.Answer(context.Background(), "follow-up?", "doc-1", history); err != nil {
		t.Fatal(err)
	}

	if len(gen.messages) != 4 {
		t.Fatalf("expected system + 2 history + question, got %d messages", len(gen.messages))
	}
	if gen.messages[1].Content != "earlier question" || gen.messages[2].Content != "earlier answer" {
		t.Errorf("history not between system and question: %+v", gen.messages)
	}
}

func TestEngine_AnswerNoContext(t *testing.T) {
	store := &stubStore{results: nil}
	gen := &recordingGenerator{reply: "I cannot find this information in the document"}
	e := NewEngine(embedding.NewOfflineEmbedder(64), store, gen)

	answer, retrieved, err := e.Answer(context.Background(), "anything here?", "doc-1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if answer == "" {
		t.Error("expected a non-empty answer even with empty index")
	}
	if len(retrieved) != 0 {
		t.Errorf("retrieved = %+v", retrieved)
	}
	system := gen.messages[0].Content
	if !strings.Contains(system, noContextMarker) {
		t.Errorf("system prompt missing no-information marker: %q", system)
	}
	if !strings.Contains(system, "cannot find") {
		t.Errorf("system prompt missing cannot-find instruction: %q", system)
	}
}

func TestEngine_AnswerGeneratorError(t *testing.T) {
	store := &stubStore{results: []models.RetrievalResult{{ID: "a", Score: 0.9, Text: "ctx"}}}
	gen := &recordingGenerator{err: fmt.Errorf("upstream down")}
	e := NewEngine(embedding.NewOfflineEmbedder(64), store, gen)

	if _, _, err := e.Answer(context.Background(), "q", "doc-1", nil); err == nil {
		t.Error("expected error from generator to propagate")
	}
}

func TestEngine_WithMemoryStore(t *testing.T) {
	// End-to-end over the in-memory store: the chunk sharing words with the
	// question must rank first in the prompt.
	embedder := embedding.NewOfflineEmbedder(64)
	store, err := vector.NewMemoryStore(64)
	if err != nil {
		t.Fatal(err)
	}
	gen := &recordingGenerator{reply: "grounded answer"}
	e := NewEngine(embedder, store, gen)
	ctx := context.Background()

	texts := []string{"alpha beta gamma", "totally unrelated content"}
	vectors := make([][]float32, len(texts))
	for i, txt := range texts {
		v, err := embedder.Embed(ctx, txt)
		if err != nil {
			t.Fatal(err)
		}
		vectors[i] = v
	}
	if _, err := store.Upsert(ctx, vectors, texts, "doc-1", make([]map[string]interface{}, len(texts))); err != nil {
		t.Fatal(err)
	}

	// Query with the exact text of the first chunk: cosine 1.0 beats any
	// other entry regardless of hash noise.
	_, retrieved, err := e.Answer(ctx, "alpha beta gamma", "doc-1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(retrieved) != 2 {
		t.Fatalf("retrieved = %d", len(retrieved))
	}
	if retrieved[0].Text != "alpha beta gamma" {
		t.Errorf("top result = %q", retrieved[0].Text)
	}
}
