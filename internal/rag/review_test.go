package rag

import (
	"context"
	"testing"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
)

func TestEngine_ReviewNoteParsesJSON(t *testing.T) {
	gen := &recordingGenerator{reply: `{"correctness_score": 8, "misunderstandings": ["mixed up A and B"], "missing_points": [], "constructive_feedback": "solid overall"}`}
	e := NewEngine(embedding.NewOfflineEmbedder(64), &stubStore{}, gen)

	review, err := e.ReviewNote(context.Background(), "my note", []string{"source chunk"})
	if err != nil {
		t.Fatal(err)
	}
	if review.CorrectnessScore != 8 {
		t.Errorf("score = %d", review.CorrectnessScore)
	}
	if len(review.Misunderstandings) != 1 || review.Misunderstandings[0] != "mixed up A and B" {
		t.Errorf("misunderstandings = %v", review.Misunderstandings)
	}
	if gen.temperature != reviewTemperature {
		t.Errorf("temperature = %v", gen.temperature)
	}
}

func TestEngine_ReviewNoteFencedJSON(t *testing.T) {
	gen := &recordingGenerator{reply: "```json\n{\"correctness_score\": 3, \"misunderstandings\": [], \"missing_points\": [\"chapter 2\"], \"constructive_feedback\": \"reread it\"}\n```"}
	e := NewEngine(embedding.NewOfflineEmbedder(64), &stubStore{}, gen)

	review, err := e.ReviewNote(context.Background(), "note", []string{"chunk"})
	if err != nil {
		t.Fatal(err)
	}
	if review.CorrectnessScore != 3 || len(review.MissingPoints) != 1 {
		t.Errorf("review = %+v", review)
	}
}

func TestEngine_ReviewNoteNonJSONFallback(t *testing.T) {
	gen := &recordingGenerator{reply: "The note looks mostly fine to me."}
	e := NewEngine(embedding.NewOfflineEmbedder(64), &stubStore{}, gen)

	review, err := e.ReviewNote(context.Background(), "note", []string{"chunk"})
	if err != nil {
		t.Fatal(err)
	}
	if review.CorrectnessScore != 5 {
		t.Errorf("fallback score = %d", review.CorrectnessScore)
	}
	if review.ConstructiveFeedback != "The note looks mostly fine to me." {
		t.Errorf("raw reply not preserved: %q", review.ConstructiveFeedback)
	}
}

func TestEngine_RecommendSamplesChunks(t *testing.T) {
	gen := &recordingGenerator{reply: `{"missing_sections": ["s1"], "suggested_topics": [], "coverage_percentage": 70, "recommendations": "keep going"}`}
	e := NewEngine(embedding.NewOfflineEmbedder(64), &stubStore{}, gen)

	chunks := make([]string, 25)
	for i := range chunks {
		chunks[i] = "chunk"
	}
	rec, err := e.Recommend(context.Background(), []string{"note one"}, chunks)
	if err != nil {
		t.Fatal(err)
	}
	if rec.CoveragePercentage != 70 {
		t.Errorf("coverage = %d", rec.CoveragePercentage)
	}

	var userMsg string
	for _, m := range gen.messages {
		if m.Role == models.RoleUser {
			userMsg = m.Content
		}
	}
	// 10-chunk sample, newline-joined: 9 separators inside the block.
	if count := countLines(userMsg, "chunk"); count != recommendSampleChunks {
		t.Errorf("expected %d sampled chunks in prompt, got %d", recommendSampleChunks, count)
	}
}

func countLines(s, exact string) int {
	n := 0
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '\n' {
			if s[start:i] == exact {
				n++
			}
			start = i + 1
		}
	}
	return n
}

func TestEngine_RecommendNonJSONFallback(t *testing.T) {
	gen := &recordingGenerator{reply: "Just study more."}
	e := NewEngine(embedding.NewOfflineEmbedder(64), &stubStore{}, gen)

	rec, err := e.Recommend(context.Background(), []string{"n"}, []string{"c"})
	if err != nil {
		t.Fatal(err)
	}
	if rec.CoveragePercentage != 50 || rec.Recommendations != "Just study more." {
		t.Errorf("fallback = %+v", rec)
	}
}
