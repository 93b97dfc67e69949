package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kotae/data/documents.db"
	}
	if cfg.Clova.EmbeddingURL == "" {
		cfg.Clova.EmbeddingURL = "https://clovastudio.stream.ntruss.com/testapp/v1/api-tools/embedding/clir-emb-dolphin"
	}
	if cfg.Clova.ChatURL == "" {
		cfg.Clova.ChatURL = "https://clovastudio.stream.ntruss.com/testapp/v1/chat-completions/HCX-003"
	}
	if cfg.Clova.Dimensions == 0 {
		cfg.Clova.Dimensions = 1024
	}
	// Without credentials the live clients can only fail; run offline.
	if cfg.Clova.APIKey == "" {
		cfg.Clova.MockMode = true
	}
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = "chunks"
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 500
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 50
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".pdf", ".docx", ".png", ".jpg", ".jpeg", ".mp4", ".m4a", ".mp3"}
	}
}
