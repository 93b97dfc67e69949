package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "./test.db"
clova:
  api_key: "sk-test"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if !filepath.IsAbs(cfg.Storage.DatabasePath) {
		t.Errorf("database_path should be expanded: %s", cfg.Storage.DatabasePath)
	}
	if cfg.Clova.MockMode {
		t.Error("mock mode should stay off when an api key is configured")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `{}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port default = %d", cfg.Server.Port)
	}
	if cfg.Clova.Dimensions != 1024 {
		t.Errorf("dimensions default = %d", cfg.Clova.Dimensions)
	}
	if cfg.Chunking.Size != 500 || cfg.Chunking.Overlap != 50 {
		t.Errorf("chunking defaults = %+v", cfg.Chunking)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("top_k default = %d", cfg.Retrieval.TopK)
	}
	if cfg.Qdrant.Collection != "chunks" {
		t.Errorf("collection default = %q", cfg.Qdrant.Collection)
	}
	if len(cfg.Watch.Extensions) == 0 {
		t.Error("watch extensions default missing")
	}
}

func TestLoad_MockModeForcedWithoutKey(t *testing.T) {
	t.Setenv("CLOVA_API_KEY", "")
	path := writeConfig(t, `
clova:
  mock_mode: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Clova.MockMode {
		t.Error("mock mode must be forced on without credentials")
	}
}

func TestLoad_EnvReferences(t *testing.T) {
	t.Setenv("MY_CLOVA_KEY", "from-env")
	t.Setenv("QDRANT_API_KEY", "qdrant-env")
	path := writeConfig(t, `
clova:
  api_key: "${MY_CLOVA_KEY}"
qdrant:
  url: "http://localhost:6333"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Clova.APIKey != "from-env" {
		t.Errorf("api_key = %q", cfg.Clova.APIKey)
	}
	// Empty credential fields fall back to their conventional variables.
	if cfg.Qdrant.APIKey != "qdrant-env" {
		t.Errorf("qdrant api_key = %q", cfg.Qdrant.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
