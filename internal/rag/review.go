package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

const (
	reviewTemperature    = 0.3
	recommendTemperature = 0.5
	structuredMaxTokens  = 1024

	// recommendSampleChunks bounds how much of the document goes into the
	// recommendation prompt.
	recommendSampleChunks = 10
)

// NoteReview is a structured critique of a user's note against the source
// material it was taken from.
type NoteReview struct {
	CorrectnessScore     int      `json:"correctness_score"`
	Misunderstandings    []string `json:"misunderstandings"`
	MissingPoints        []string `json:"missing_points"`
	ConstructiveFeedback string   `json:"constructive_feedback"`
}

// StudyRecommendation suggests what to study next given the user's notes and
// the document content.
type StudyRecommendation struct {
	MissingSections    []string `json:"missing_sections"`
	SuggestedTopics    []string `json:"suggested_topics"`
	CoveragePercentage int      `json:"coverage_percentage"`
	Recommendations    string   `json:"recommendations"`
}

// ReviewNote asks the generator to critique note against the chunks retrieved
// for it. The model is asked for strict JSON; when it answers with anything
// else the raw text is preserved as the feedback field rather than dropped.
func (e *Engine) ReviewNote(ctx context.Context, note string, sourceChunks []string) (*NoteReview, error) {
	messages := []models.Message{
		{Role: models.RoleSystem, Content: "You are a rigorous teaching assistant reviewing student notes."},
		{Role: models.RoleUser, Content: fmt.Sprintf(`[Source Material]:
%s

[Student Note]:
%s

[Task]:
Compare the student's note against the source material. Point out mistakes, misunderstandings, and important points that are missing.

Return the result as valid JSON in this format:
{
  "correctness_score": <number 0-10>,
  "misunderstandings": ["list of misunderstandings"],
  "missing_points": ["list of important missing points"],
  "constructive_feedback": "constructive comments"
}

Return ONLY the JSON, no other text.`, strings.Join(sourceChunks, "\n\n"), note)},
	}

	response, err := e.generator.Complete(ctx, messages, reviewTemperature, structuredMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("review note: %w", err)
	}

	var review NoteReview
	if err := json.Unmarshal([]byte(extractJSON(response)), &review); err != nil {
		return &NoteReview{
			CorrectnessScore:     5,
			Misunderstandings:    []string{},
			MissingPoints:        []string{},
			ConstructiveFeedback: response,
		}, nil
	}
	return &review, nil
}

// Recommend analyzes what the user has already noted against the document and
// suggests what to study next. JSON-fallback behavior matches ReviewNote.
func (e *Engine) Recommend(ctx context.Context, notes, documentChunks []string) (*StudyRecommendation, error) {
	sample := documentChunks
	if len(sample) > recommendSampleChunks {
		sample = sample[:recommendSampleChunks]
	}

	messages := []models.Message{
		{Role: models.RoleSystem, Content: "You are a study planning assistant."},
		{Role: models.RoleUser, Content: fmt.Sprintf(`[Document Content]:
%s

[Student's Current Notes]:
%s

[Task]:
Analyze what the student has covered and recommend what to study next.

Return valid JSON in this format:
{
  "missing_sections": ["important sections not yet covered"],
  "suggested_topics": ["topics worth exploring further"],
  "coverage_percentage": <number 0-100>,
  "recommendations": "detailed advice"
}

Return ONLY the JSON, no other text.`, strings.Join(sample, "\n"), strings.Join(notes, "\n"))},
	}

	response, err := e.generator.Complete(ctx, messages, recommendTemperature, structuredMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("generate recommendations: %w", err)
	}

	var rec StudyRecommendation
	if err := json.Unmarshal([]byte(extractJSON(response)), &rec); err != nil {
		return &StudyRecommendation{
			MissingSections:    []string{},
			SuggestedTopics:    []string{},
			CoveragePercentage: 50,
			Recommendations:    response,
		}, nil
	}
	return &rec, nil
}

// extractJSON trims everything outside the outermost braces. Models often
// wrap JSON in prose or code fences despite instructions.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}
