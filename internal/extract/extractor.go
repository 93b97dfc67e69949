// Package extract converts source material of various kinds into plain text
// and pre-chunked pieces with provenance metadata.
package extract

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hyperjump/kotae/internal/chunk"
	"github.com/hyperjump/kotae/internal/models"
	"go.uber.org/zap"
)

// Metadata keys set by extraction strategies.
const (
	MetaType    = "type"
	MetaError   = "error"
	MetaPageNum = "page_num"
	MetaURL     = "url"
	MetaVideoID = "video_id"
	MetaSource  = "source"
)

// Source is one unit of material to extract: raw bytes for uploads, a URL for
// web pages and hosted videos.
type Source struct {
	Kind models.SourceType
	Data []byte
	URL  string
}

// Result is the extraction output: the full normalized text and the chunked
// pieces ready for embedding.
type Result struct {
	Text   string
	Chunks []chunk.Piece
}

// Transcriber converts audio bytes to text. Satisfied by clova.SpeechClient.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, language string) (string, error)
}

// Extractor maps a Source to its text and chunks. Extraction never returns an
// error: any failure becomes a short bracketed placeholder plus an error key
// in the chunk metadata, so a document always reaches a terminal status.
type Extractor struct {
	chunker     *chunk.Chunker
	httpClient  *http.Client
	transcriber Transcriber
	transcripts *TranscriptClient
	logger      *zap.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithTranscriber sets the speech-to-text client used for video sources.
func WithTranscriber(t Transcriber) ExtractorOption {
	return func(e *Extractor) { e.transcriber = t }
}

// WithTranscriptClient sets the hosted-video transcript client.
func WithTranscriptClient(c *TranscriptClient) ExtractorOption {
	return func(e *Extractor) { e.transcripts = c }
}

// WithLogger sets a logger for extraction debug output.
func WithLogger(l *zap.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates an extractor that chunks with the given chunker.
func NewExtractor(chunker *chunk.Chunker, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		chunker:    chunker,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.transcripts == nil {
		e.transcripts = NewTranscriptClient()
	}
	return e
}

// Extract dispatches on the source kind. The set of kinds is closed; an
// unknown kind yields a placeholder like any other extraction failure.
func (e *Extractor) Extract(ctx context.Context, src Source) Result {
	switch src.Kind {
	case models.SourcePDF:
		return e.extractPDF(src.Data)
	case models.SourceWord:
		return e.extractWord(src.Data)
	case models.SourceImage:
		return e.extractImage()
	case models.SourceVideo:
		return e.extractVideo(ctx, src.Data)
	case models.SourceWeb:
		return e.extractWeb(ctx, src.URL)
	case models.SourceYouTube:
		return e.extractYouTube(ctx, src.URL)
	default:
		return e.placeholder(fmt.Sprintf("[Unsupported source type: %s]", src.Kind),
			map[string]interface{}{MetaType: string(src.Kind), MetaError: "unsupported_type"})
	}
}

// placeholder chunks a bracketed reason string so that failed extractions
// still produce a terminal, inspectable document.
func (e *Extractor) placeholder(text string, meta map[string]interface{}) Result {
	if e.logger != nil {
		e.logger.Warn("extraction degraded to placeholder", zap.String("text", text))
	}
	return Result{Text: text, Chunks: e.chunker.Split(text, meta)}
}
