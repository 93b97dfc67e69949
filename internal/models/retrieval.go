package models

// RetrievalResult is a single similarity hit from the vector store. It is a
// transient value produced at query time and never persisted.
type RetrievalResult struct {
	ID         string                 `json:"id"`
	Score      float64                `json:"score"`
	Text       string                 `json:"text"`
	DocumentID string                 `json:"document_id"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Message is a single chat turn sent to or received from the generation model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
