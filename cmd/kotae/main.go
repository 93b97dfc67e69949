// Package main is the Kotae server entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/chunk"
	"github.com/hyperjump/kotae/internal/clova"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/generation"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/rag"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	fs := flag.NewFlagSet("kotae", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	showVersion := fs.Bool("version", false, "print version and exit")
	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("kotae version %s\n", version)
		return
	}

	// Secrets come from the environment; a .env file is a convenience for
	// development and absent in production.
	_ = godotenv.Load()

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.Bool("mock_mode", cfg.Clova.MockMode),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("kotae failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	embedder, generator := buildClients(cfg, logger)
	defer embedder.Close()

	vectors, err := buildVectorStore(cfg, embedder.Dimensions(), logger)
	if err != nil {
		return fmt.Errorf("open vector store: %w", err)
	}
	defer vectors.Close()

	ctx := context.Background()
	if err := vectors.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	extractorOpts := []extract.ExtractorOption{extract.WithLogger(logger)}
	if cfg.Clova.Speech.Endpoint != "" && !cfg.Clova.MockMode {
		extractorOpts = append(extractorOpts, extract.WithTranscriber(
			clova.NewSpeechClient(cfg.Clova.Speech.Endpoint, cfg.Clova.Speech.KeyID, cfg.Clova.Speech.Key)))
	}
	extractor := extract.NewExtractor(
		chunk.NewChunker(cfg.Chunking.Size, cfg.Chunking.Overlap), extractorOpts...)

	pipeline := ingest.NewPipeline(store, extractor, embedder, vectors,
		ingest.WithLogger(logger))
	engine := rag.NewEngine(embedder, vectors, generator,
		rag.WithLogger(logger), rag.WithTopK(cfg.Retrieval.TopK))

	watchCtx, watchCancel := context.WithCancel(ctx)
	defer watchCancel()
	if len(cfg.Watch.Directories) > 0 {
		w := watcher.NewWatcher(cfg.Watch.Directories, cfg.Watch.Extensions,
			func(path string) {
				if _, err := pipeline.IngestFile(context.Background(), path); err != nil {
					logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
				}
			},
			watcher.WithLogger(logger))
		if err := w.Start(watchCtx); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer w.Stop()
	}

	srv := server.NewServer(pipeline, engine, store, &cfg.Server, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

// buildClients selects the live CLOVA clients or the deterministic offline
// implementations, per configuration.
func buildClients(cfg *config.Config, logger *zap.Logger) (embedding.Embedder, generation.Generator) {
	if cfg.Clova.MockMode {
		return embedding.NewCachedEmbedder(embedding.NewOfflineEmbedder(cfg.Clova.Dimensions), 0),
			generation.NewOfflineGenerator()
	}
	embedder := clova.NewEmbeddingClient(
		cfg.Clova.EmbeddingURL, cfg.Clova.APIKey, cfg.Clova.Dimensions,
		clova.WithLogger(logger))
	chat := clova.NewChatClient(cfg.Clova.ChatURL, cfg.Clova.APIKey,
		clova.WithLogger(logger))
	return embedding.NewCachedEmbedder(embedder, 0), chat
}

func buildVectorStore(cfg *config.Config, dimensions int, logger *zap.Logger) (vector.Store, error) {
	if cfg.Qdrant.URL == "" {
		return vector.NewMemoryStore(dimensions)
	}
	return vector.NewQdrantStore(vector.QdrantConfig{
		URL:        cfg.Qdrant.URL,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
		Dimensions: dimensions,
	}, logger), nil
}
