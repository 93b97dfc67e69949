// Package config provides configuration loading and structs for the Kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Clova     ClovaConfig     `yaml:"clova"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the document database path.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ClovaConfig holds CLOVA Studio endpoints and credentials. MockMode selects
// the deterministic offline embedder and generator; it is also forced on when
// no API key is configured.
type ClovaConfig struct {
	APIKey       string `yaml:"api_key"`
	EmbeddingURL string `yaml:"embedding_url"`
	ChatURL      string `yaml:"chat_url"`
	Dimensions   int    `yaml:"dimensions"`
	MockMode     bool   `yaml:"mock_mode"`

	Speech SpeechConfig `yaml:"speech"`
}

// SpeechConfig holds the speech-to-text endpoint and its API gateway keys.
type SpeechConfig struct {
	Endpoint string `yaml:"endpoint"`
	KeyID    string `yaml:"key_id"`
	Key      string `yaml:"key"`
}

// QdrantConfig holds vector database settings. An empty URL selects the
// in-memory store.
type QdrantConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection"`
}

// ChunkingConfig holds word-window chunker parameters.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// RetrievalConfig holds query-time settings.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// WatchConfig holds drop-directory ingestion settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
}

// Load reads and parses the config file at path, resolves ${ENV} references,
// expands paths, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	resolveSecrets(&cfg)
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// resolveSecrets replaces ${VAR} values with the environment, and fills
// credentials from their conventional variables when left empty. Secrets stay
// out of the checked-in config file either way.
func resolveSecrets(cfg *Config) {
	cfg.Clova.APIKey = envValue(cfg.Clova.APIKey, "CLOVA_API_KEY")
	cfg.Clova.Speech.KeyID = envValue(cfg.Clova.Speech.KeyID, "NCP_API_KEY_ID")
	cfg.Clova.Speech.Key = envValue(cfg.Clova.Speech.Key, "NCP_API_KEY")
	cfg.Qdrant.APIKey = envValue(cfg.Qdrant.APIKey, "QDRANT_API_KEY")
}

func envValue(value, fallbackVar string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		return os.Getenv(strings.TrimSuffix(strings.TrimPrefix(value, "${"), "}"))
	}
	if value == "" {
		return os.Getenv(fallbackVar)
	}
	return value
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
