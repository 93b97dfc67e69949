// Package generation provides chat-completion clients.
package generation

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// Generator produces a completion for a chat transcript. Implementations must
// be safe for concurrent use.
type Generator interface {
	Complete(ctx context.Context, messages []models.Message, temperature float64, maxTokens int) (string, error)
}
