package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/kotae/internal/models"
	"go.uber.org/zap"
)

const (
	payloadText       = "text"
	payloadDocumentID = "document_id"
	payloadMetadata   = "metadata"
)

// QdrantStore is a REST client for a Qdrant collection with cosine distance.
type QdrantStore struct {
	baseURL    string
	apiKey     string
	collection string
	dimensions int
	httpClient *http.Client
	logger     *zap.Logger
}

// QdrantConfig configures a QdrantStore.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Dimensions int
	Timeout    time.Duration
}

// NewQdrantStore creates a Qdrant-backed Store.
func NewQdrantStore(cfg QdrantConfig, logger *zap.Logger) *QdrantStore {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = 1024
	}
	return &QdrantStore{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimensions: dims,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// EnsureCollection creates the collection and the document_id payload index.
// Both calls are idempotent: a conflict from a concurrent creator is swallowed.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     s.dimensions,
			"distance": "Cosine",
		},
	}
	err := s.do(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", s.baseURL, s.collection), body, nil)
	if err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("create collection: %w", err)
	}

	// Payload index on document_id is required for exact-match filtering on
	// managed deployments.
	idx := map[string]interface{}{
		"field_name":   payloadDocumentID,
		"field_schema": "keyword",
	}
	err = s.do(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s/index", s.baseURL, s.collection), idx, nil)
	if err != nil && !isAlreadyExists(err) {
		if s.logger != nil {
			s.logger.Warn("qdrant payload index creation failed", zap.Error(err))
		}
	}
	return nil
}

// Upsert writes one point per vector and returns the generated point ids in
// input order.
func (s *QdrantStore) Upsert(ctx context.Context, vectors [][]float32, texts []string, documentID string, metadata []map[string]interface{}) ([]string, error) {
	if len(vectors) != len(texts) || len(vectors) != len(metadata) {
		return nil, fmt.Errorf("vectors, texts, and metadata length mismatch")
	}
	ids := make([]string, len(vectors))
	points := make([]map[string]interface{}, len(vectors))
	for i, v := range vectors {
		ids[i] = uuid.New().String()
		points[i] = map[string]interface{}{
			"id":     ids[i],
			"vector": v,
			"payload": map[string]interface{}{
				payloadText:       texts[i],
				payloadDocumentID: documentID,
				payloadMetadata:   metadata[i],
			},
		}
	}
	body := map[string]interface{}{"points": points}
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", s.baseURL, s.collection)
	if err := s.do(ctx, http.MethodPut, url, body, nil); err != nil {
		return nil, fmt.Errorf("upsert points: %w", err)
	}
	return ids, nil
}

type qdrantSearchResponse struct {
	Result []struct {
		ID      string                 `json:"id"`
		Score   float64                `json:"score"`
		Payload map[string]interface{} `json:"payload"`
	} `json:"result"`
}

// Query runs a similarity search, filtered to documentID when non-empty.
func (s *QdrantStore) Query(ctx context.Context, queryVector []float32, documentID string, limit int) ([]models.RetrievalResult, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	body := map[string]interface{}{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}
	if documentID != "" {
		body["filter"] = documentFilter(documentID)
	}
	var resp qdrantSearchResponse
	url := fmt.Sprintf("%s/collections/%s/points/search", s.baseURL, s.collection)
	if err := s.do(ctx, http.MethodPost, url, body, &resp); err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}

	results := make([]models.RetrievalResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		res := models.RetrievalResult{ID: r.ID, Score: r.Score}
		if v, ok := r.Payload[payloadText].(string); ok {
			res.Text = v
		}
		if v, ok := r.Payload[payloadDocumentID].(string); ok {
			res.DocumentID = v
		}
		if v, ok := r.Payload[payloadMetadata].(map[string]interface{}); ok {
			res.Metadata = v
		}
		results = append(results, res)
	}
	return results, nil
}

// DeleteByDocument removes every point whose payload document id matches.
func (s *QdrantStore) DeleteByDocument(ctx context.Context, documentID string) error {
	body := map[string]interface{}{"filter": documentFilter(documentID)}
	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", s.baseURL, s.collection)
	if err := s.do(ctx, http.MethodPost, url, body, nil); err != nil {
		return fmt.Errorf("delete points: %w", err)
	}
	return nil
}

// Close is a no-op; the underlying http.Client needs no teardown.
func (s *QdrantStore) Close() error {
	return nil
}

func documentFilter(documentID string) map[string]interface{} {
	return map[string]interface{}{
		"must": []map[string]interface{}{
			{
				"key":   payloadDocumentID,
				"match": map[string]interface{}{"value": documentID},
			},
		},
	}
}

type qdrantError struct {
	status int
	body   string
}

func (e *qdrantError) Error() string {
	return fmt.Sprintf("qdrant: status %d: %s", e.status, e.body)
}

func isAlreadyExists(err error) bool {
	qe, ok := err.(*qdrantError)
	if !ok {
		return false
	}
	return qe.status == http.StatusConflict || strings.Contains(strings.ToLower(qe.body), "already exists")
}

func (s *QdrantStore) do(ctx context.Context, method, url string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return &qdrantError{status: resp.StatusCode, body: string(payload)}
	}
	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
