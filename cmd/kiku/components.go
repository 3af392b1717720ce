package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kiku/internal/config"
	"github.com/hyperjump/kiku/internal/embedding"
	"github.com/hyperjump/kiku/internal/generation"
	"github.com/hyperjump/kiku/internal/indexer"
	"github.com/hyperjump/kiku/internal/metrics"
	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/internal/rag"
	"github.com/hyperjump/kiku/internal/vector"
)

// Components holds the query-time dependencies built from config.
type Components struct {
	Embedder embedding.Embedder
	Index    *vector.Index
	Pipeline *rag.Pipeline
}

// Close releases the embedder.
func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func newEmbedder(cfg *config.Config, logger *zap.Logger) (embedding.Embedder, error) {
	return embedding.New(embedding.Options{
		Provider:   cfg.Embedding.Provider,
		Dimensions: cfg.Embedding.Dimensions,
		CacheSize:  cfg.Embedding.CacheSize,
		ModelPath:  cfg.Embedding.ModelPath,
		MaxTokens:  cfg.Embedding.MaxTokens,
		Model:      cfg.Embedding.Model,
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.Embedding.APIKey,
		Logger:     logger,
	})
}

func newBuilder(cfg *config.Config, embedder embedding.Embedder, logger *zap.Logger) (*indexer.Builder, error) {
	chunker, err := indexer.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap())
	if err != nil {
		return nil, err
	}
	metric, err := vector.ParseMetric(cfg.Index.Metric)
	if err != nil {
		return nil, err
	}
	return indexer.NewBuilder(chunker, embedder, indexer.WithMetric(metric), indexer.WithLogger(logger)), nil
}

func newGenerator(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*generation.Generator, error) {
	g := cfg.Generation
	backend, err := generation.NewBackend(ctx, generation.BackendOptions{
		Provider: g.Provider,
		Model:    g.Model,
		BaseURL:  g.BaseURL,
		APIKey:   g.APIKey,
	})
	if err != nil {
		return nil, err
	}
	return generation.NewGenerator(backend,
		generation.WithInstruction(generation.BuildInstruction(g.SystemPrompt, g.FallbackPhrase)),
		generation.WithParams(generation.Params{
			Temperature: float32(g.Temperature),
			MaxTokens:   g.MaxTokens,
			TopP:        float32(g.TopP),
		}),
		generation.WithProvider(g.Provider),
		generation.WithLogger(logger),
	), nil
}

// initializeComponents loads the persisted index and wires the pipeline. When allowMissingIndex
// is set, an index that cannot be read leaves the pipeline not ready instead of failing; a
// dimension mismatch always fails.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, allowMissingIndex bool) (*Components, error) {
	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	c := &Components{Embedder: embedder}

	idx, err := vector.Load(ctx, cfg.Index.Path, embedder.Dimensions())
	switch {
	case err == nil:
		metrics.IndexRecords.Set(float64(idx.Size()))
		logger.Info("index loaded",
			zap.String("path", cfg.Index.Path),
			zap.Int("records", idx.Size()),
			zap.String("build_id", idx.BuildID()))
	case allowMissingIndex && errors.Is(err, models.ErrIndexIO):
		logger.Warn("index not loaded; run 'kiku build' and restart", zap.String("path", cfg.Index.Path), zap.Error(err))
		idx = nil
	default:
		c.Close()
		return nil, fmt.Errorf("load index: %w", err)
	}
	c.Index = idx

	generator, err := newGenerator(ctx, cfg, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("generator: %w", err)
	}
	c.Pipeline = rag.New(embedder, idx, generator,
		rag.WithTopK(cfg.Index.TopK),
		rag.WithMaxContextChars(cfg.Generation.MaxContextChars),
		rag.WithLogger(logger))
	return c, nil
}
