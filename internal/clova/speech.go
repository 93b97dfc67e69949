package clova

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// SpeechClient calls the Clova Speech recognition endpoint. It posts raw
// audio bytes and returns the transcript. Transcription of long media is
// slow, so the timeout is generous.
type SpeechClient struct {
	url        string
	apiKeyID   string
	apiKey     string
	httpClient *http.Client
}

// NewSpeechClient creates a speech-to-text client.
func NewSpeechClient(endpoint, apiKeyID, apiKey string) *SpeechClient {
	return &SpeechClient{
		url:        endpoint,
		apiKeyID:   apiKeyID,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

type speechResponse struct {
	Text string `json:"text"`
}

// Transcribe sends audio to the recognition endpoint and returns the text.
// language is a BCP-47 style code such as "ko-KR" or "en-US".
func (s *SpeechClient) Transcribe(ctx context.Context, audio []byte, language string) (string, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return "", fmt.Errorf("speech endpoint: %w", err)
	}
	q := u.Query()
	q.Set("lang", language)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-NCP-APIGW-API-KEY-ID", s.apiKeyID)
	req.Header.Set("X-NCP-APIGW-API-KEY", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: truncate(string(payload), 200)}
	}
	var out speechResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Text, nil
}
