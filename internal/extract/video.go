package extract

import (
	"context"
	"fmt"
	"strings"
)

const videoLanguage = "ko-KR"

// extractVideo forwards the media bytes to the speech-to-text service. Audio
// is not demuxed locally; the service accepts container formats directly.
func (e *Extractor) extractVideo(ctx context.Context, content []byte) Result {
	failMeta := func(reason string) map[string]interface{} {
		return map[string]interface{}{MetaType: "video", MetaError: reason}
	}

	if e.transcriber == nil {
		return e.placeholder("[Video transcription not configured]", failMeta("no_transcriber"))
	}
	transcript, err := e.transcriber.Transcribe(ctx, content, videoLanguage)
	if err != nil {
		return e.placeholder(fmt.Sprintf("[Video transcription error: %v]", err), failMeta("transcription_error"))
	}
	if strings.TrimSpace(transcript) == "" {
		return e.placeholder("[Video transcription failed]", failMeta("transcription_failed"))
	}
	return Result{
		Text:   transcript,
		Chunks: e.chunker.Split(transcript, map[string]interface{}{MetaType: "video", MetaSource: "clova_speech"}),
	}
}
