// Package embedding turns text into fixed-length vectors.
package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kiku/internal/models"
)

// Embedder produces vector embeddings for text. The same Embedder must be used to build an
// index and to embed the queries searched against it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Close() error
}

// Provider names accepted by New.
const (
	ProviderONNX   = "onnx"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// Options selects and configures an embedding provider.
type Options struct {
	Provider   string
	Dimensions int
	CacheSize  int

	// onnx
	ModelPath string
	MaxTokens int

	// openai
	Model   string
	BaseURL string
	APIKey  string

	Logger *zap.Logger
}

// New creates the embedder named by opts.Provider. Remote embedders are wrapped in an LRU cache
// when CacheSize > 0; the ONNX embedder carries its own.
func New(opts Options) (Embedder, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	switch opts.Provider {
	case ProviderONNX, "":
		e, err := NewONNXEmbedder(opts.ModelPath, opts.Dimensions, opts.MaxTokens, opts.CacheSize)
		if err != nil {
			return nil, err
		}
		logger.Info("onnx embedder ready", zap.String("model", opts.ModelPath), zap.Int("dimensions", opts.Dimensions))
		return e, nil
	case ProviderOpenAI:
		var e Embedder = NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     opts.APIKey,
			BaseURL:    opts.BaseURL,
			Model:      opts.Model,
			Dimensions: opts.Dimensions,
			Logger:     logger,
		})
		if opts.CacheSize > 0 {
			e = NewCachedEmbedder(e, opts.CacheSize)
		}
		logger.Info("openai embedder ready", zap.String("model", opts.Model), zap.Int("dimensions", opts.Dimensions))
		return e, nil
	case ProviderMock:
		return NewMockEmbedder(opts.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q: %w", opts.Provider, models.ErrConfiguration)
	}
}
