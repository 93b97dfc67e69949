package clova

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/models"
)

// ChatClient calls the CLOVA Studio chat-completion endpoint. It implements
// generation.Generator.
type ChatClient struct {
	client *Client
	url    string
}

// NewChatClient creates a chat-completion client for the given endpoint URL.
func NewChatClient(url, apiKey string, opts ...Option) *ChatClient {
	return &ChatClient{
		client: NewClient(apiKey, opts...),
		url:    url,
	}
}

type chatRequest struct {
	Messages         []models.Message `json:"messages"`
	TopP             float64          `json:"topP"`
	TopK             int              `json:"topK"`
	MaxTokens        int              `json:"maxTokens"`
	Temperature      float64          `json:"temperature"`
	RepeatPenalty    float64          `json:"repeatPenalty"`
	StopBefore       []string         `json:"stopBefore"`
	IncludeAIFilters bool             `json:"includeAiFilters"`
}

type chatResponse struct {
	Result struct {
		Message models.Message `json:"message"`
	} `json:"result"`
}

// Complete generates a chat completion for the given messages.
func (g *ChatClient) Complete(ctx context.Context, messages []models.Message, temperature float64, maxTokens int) (string, error) {
	req := chatRequest{
		Messages:         messages,
		TopP:             0.8,
		TopK:             0,
		MaxTokens:        maxTokens,
		Temperature:      temperature,
		RepeatPenalty:    5.0,
		StopBefore:       []string{},
		IncludeAIFilters: true,
	}
	var resp chatResponse
	if err := g.client.postJSON(ctx, g.url, req, &resp); err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return resp.Result.Message.Content, nil
}
