package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/generation"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/prompt"
	"github.com/hyperjump/kotae/internal/session"
)

// Components holds the shared clients behind every session. A missing API key is not
// checked here; it surfaces as an embedding or generation failure on first use.
type Components struct {
	Embedder  embedding.Embedder
	Generator *generation.OpenAIGenerator
	Sessions  *session.Manager
}

// Close ends all sessions and releases the embedder.
func (c *Components) Close() {
	if c.Sessions != nil {
		_ = c.Sessions.CloseAll()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	embedder, err := embedding.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	logger.Info("embedder initialized",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", embedder.Dimensions()))

	prompts, err := prompt.NewBuilder(cfg.Prompt.Language)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to initialize prompt: %w", err)
	}

	generator := generation.NewOpenAIGenerator(generation.OpenAIConfig{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.Generation.Model,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
		Logger:      logger,
	})

	idx := indexer.NewIndexer(
		extract.NewLoader(),
		indexer.NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.MaxTokenLength),
		indexer.WithLogger(logger),
		indexer.WithMaxBytes(cfg.Ingest.MaxUploadBytes()),
	)

	// Each session caches its own texts so nothing outlives it.
	sessions := session.NewManager(session.Options{
		Embedder:           embedder,
		Generator:          generator,
		Indexer:            idx,
		Prompts:            prompts,
		TopK:               cfg.Retrieval.TopK,
		MaxTopK:            cfg.Retrieval.MaxTopK,
		EmbeddingCacheSize: cfg.Embedding.CacheSize,
		Logger:             logger,
	})

	return &Components{Embedder: embedder, Generator: generator, Sessions: sessions}, nil
}
