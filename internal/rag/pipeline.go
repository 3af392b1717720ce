// Package rag wires retrieval and generation into the question answering pipeline.
package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kiku/internal/embedding"
	"github.com/hyperjump/kiku/internal/generation"
	"github.com/hyperjump/kiku/internal/metrics"
	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/internal/prompt"
	"github.com/hyperjump/kiku/internal/vector"
)

// DefaultTopK is the number of chunks retrieved per query when none is configured.
const DefaultTopK = 5

// Pipeline answers queries: embed, search, assemble, generate. It holds no per-query state and is
// safe for concurrent use.
type Pipeline struct {
	embedder  embedding.Embedder
	index     *vector.Index
	generator *generation.Generator
	assembler prompt.Assembler
	topK      int
	logger    *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTopK sets how many chunks Answer retrieves.
func WithTopK(k int) Option {
	return func(p *Pipeline) { p.topK = k }
}

// WithMaxContextChars sets the rune budget of the assembled context. Zero disables it.
func WithMaxContextChars(n int) Option {
	return func(p *Pipeline) { p.assembler = prompt.Assembler{MaxChars: n} }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New returns a pipeline over a loaded index. index may be nil, in which case queries fail with
// models.ErrIndexNotReady.
func New(embedder embedding.Embedder, index *vector.Index, generator *generation.Generator, opts ...Option) *Pipeline {
	p := &Pipeline{
		embedder:  embedder,
		index:     index,
		generator: generator,
		assembler: prompt.Assembler{MaxChars: prompt.DefaultMaxChars},
		topK:      DefaultTopK,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Index returns the index the pipeline searches.
func (p *Pipeline) Index() *vector.Index { return p.index }

// TopK returns the default number of retrieved chunks.
func (p *Pipeline) TopK() int { return p.topK }

// Answer retrieves the top chunks for query and generates a grounded answer from them.
// A blank query fails with models.ErrEmptyQuery before anything is embedded. The returned
// Retrieved lists only the chunks that fit in the context the backend saw.
func (p *Pipeline) Answer(ctx context.Context, query string) (*models.Answer, error) {
	log := p.logger.With(zap.String("request_id", uuid.NewString()))
	start := time.Now()

	retrieved, err := p.retrieve(ctx, log, query, p.topK)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("answer", "error").Inc()
		return nil, err
	}

	grounding, used := p.assembler.AssembleCount(retrieved.Documents())
	metrics.ContextChars.Observe(float64(len([]rune(grounding))))
	if used < len(retrieved) {
		log.Debug("context budget reached",
			zap.Int("retrieved", len(retrieved)),
			zap.Int("used", used),
			zap.Int("max_chars", p.assembler.MaxChars))
		retrieved = retrieved[:used]
	}

	generated, err := p.generator.Generate(ctx, grounding, query)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("answer", "error").Inc()
		log.Warn("answer failed", zap.Error(err))
		return nil, err
	}

	metrics.QueriesTotal.WithLabelValues("answer", "success").Inc()
	log.Info("answer complete",
		zap.Int("retrieved", len(retrieved)),
		zap.Int("answer_len", len(generated.Text)),
		zap.Duration("elapsed", time.Since(start)))
	return &models.Answer{Retrieved: retrieved, Answer: generated.Text}, nil
}

// Retrieve returns the k chunks closest to query without generating. k == 0 uses the
// configured top k; k < 0 yields an empty result.
func (p *Pipeline) Retrieve(ctx context.Context, query string, k int) (models.RetrievalResult, error) {
	if k == 0 {
		k = p.topK
	}
	log := p.logger.With(zap.String("request_id", uuid.NewString()))
	result, err := p.retrieve(ctx, log, query, k)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("retrieve", "error").Inc()
		return nil, err
	}
	metrics.QueriesTotal.WithLabelValues("retrieve", "success").Inc()
	return result, nil
}

func (p *Pipeline) retrieve(ctx context.Context, log *zap.Logger, query string, k int) (models.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.ErrEmptyQuery
	}
	if p.index == nil {
		return nil, models.ErrIndexNotReady
	}
	vec, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	result, err := p.index.Search(vec, k)
	if err != nil {
		return nil, err
	}
	metrics.RetrievedChunks.Observe(float64(len(result)))
	log.Debug("retrieved", zap.Int("k", k), zap.Int("hits", len(result)))
	return result, nil
}
