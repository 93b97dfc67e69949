package extract

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// transcriptLanguages is the priority order for transcript lookup.
var transcriptLanguages = []string{"vi", "en", "ko"}

const defaultTimedTextURL = "https://video.google.com/timedtext"

// TranscriptClient fetches caption tracks for hosted videos via the timedtext
// endpoint.
type TranscriptClient struct {
	baseURL    string
	httpClient *http.Client
}

// TranscriptClientOption configures a TranscriptClient.
type TranscriptClientOption func(*TranscriptClient)

// WithTimedTextURL overrides the transcript endpoint. Tests point this at a
// local server.
func WithTimedTextURL(u string) TranscriptClientOption {
	return func(c *TranscriptClient) { c.baseURL = u }
}

// NewTranscriptClient creates a transcript client.
func NewTranscriptClient(opts ...TranscriptClientOption) *TranscriptClient {
	c := &TranscriptClient{
		baseURL:    defaultTimedTextURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type timedText struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Body  string `xml:",chardata"`
	} `xml:"text"`
}

// Fetch returns the transcript for videoID in the first language from langs
// that has a caption track, concatenating segments into one blob.
func (c *TranscriptClient) Fetch(ctx context.Context, videoID string, langs []string) (string, string, error) {
	var lastErr error
	for _, lang := range langs {
		text, err := c.fetchLang(ctx, videoID, lang)
		if err != nil {
			lastErr = err
			continue
		}
		if text != "" {
			return text, lang, nil
		}
	}
	if lastErr != nil {
		return "", "", lastErr
	}
	return "", "", fmt.Errorf("no transcript available for video %s", videoID)
}

func (c *TranscriptClient) fetchLang(ctx context.Context, videoID, lang string) (string, error) {
	u := fmt.Sprintf("%s?lang=%s&v=%s", c.baseURL, url.QueryEscape(lang), url.QueryEscape(videoID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("timedtext: HTTP %d", resp.StatusCode)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var tt timedText
	if err := xml.Unmarshal(payload, &tt); err != nil {
		return "", fmt.Errorf("timedtext: %w", err)
	}
	segments := make([]string, 0, len(tt.Texts))
	for _, t := range tt.Texts {
		s := strings.TrimSpace(t.Body)
		if s != "" {
			segments = append(segments, s)
		}
	}
	return strings.Join(segments, " "), nil
}

// extractYouTube resolves the video id from the URL and fetches a transcript
// in the prioritized language list.
func (e *Extractor) extractYouTube(ctx context.Context, videoURL string) Result {
	failMeta := func(reason string) map[string]interface{} {
		return map[string]interface{}{MetaType: "youtube", MetaError: reason}
	}

	videoID := extractVideoID(videoURL)
	if videoID == "" {
		return e.placeholder("[Invalid video URL]", failMeta("invalid_url"))
	}

	text, lang, err := e.transcripts.Fetch(ctx, videoID, transcriptLanguages)
	if err != nil {
		return e.placeholder("[Transcript not available for this video]",
			map[string]interface{}{MetaType: "youtube", MetaVideoID: videoID, MetaError: "no_transcript"})
	}
	if strings.TrimSpace(text) == "" {
		return e.placeholder("[Transcript is empty]",
			map[string]interface{}{MetaType: "youtube", MetaVideoID: videoID, MetaError: "empty_transcript"})
	}
	return Result{
		Text: text,
		Chunks: e.chunker.Split(text, map[string]interface{}{
			MetaType:    "youtube",
			MetaVideoID: videoID,
			MetaSource:  "timedtext",
			"language":  lang,
		}),
	}
}

// extractVideoID pulls the canonical video id out of the common URL shapes:
// youtu.be short links, /watch?v=, /embed/, and /v/ paths.
func extractVideoID(videoURL string) string {
	if i := strings.Index(videoURL, "youtu.be/"); i >= 0 {
		id := videoURL[i+len("youtu.be/"):]
		if q := strings.IndexByte(id, '?'); q >= 0 {
			id = id[:q]
		}
		return id
	}
	parsed, err := url.Parse(videoURL)
	if err != nil {
		return ""
	}
	host := parsed.Hostname()
	if host != "www.youtube.com" && host != "youtube.com" && host != "m.youtube.com" {
		return ""
	}
	switch {
	case parsed.Path == "/watch":
		return parsed.Query().Get("v")
	case strings.HasPrefix(parsed.Path, "/embed/"):
		return strings.TrimPrefix(parsed.Path, "/embed/")
	case strings.HasPrefix(parsed.Path, "/v/"):
		return strings.TrimPrefix(parsed.Path, "/v/")
	}
	return ""
}
