package generation

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// OfflineGenerator returns a deterministic templated reply derived from the
// last message, for integration tests without network access.
type OfflineGenerator struct{}

// NewOfflineGenerator returns an offline generator.
func NewOfflineGenerator() *OfflineGenerator {
	return &OfflineGenerator{}
}

// Complete echoes a canned response referencing the last message.
func (g *OfflineGenerator) Complete(ctx context.Context, messages []models.Message, temperature float64, maxTokens int) (string, error) {
	last := "no message"
	if len(messages) > 0 {
		last = utils.Truncate(messages[len(messages)-1].Content, 100)
	}
	return fmt.Sprintf("This is an offline response to: %q. Based on the provided context, I can help you understand the key concepts covered in the document.", last), nil
}
