// Package vector provides the immutable vector index: build, exact top-k search, persist and load.
package vector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kiku/internal/embedding"
	"github.com/hyperjump/kiku/internal/models"
)

// Index is an ordered, immutable set of vector records. It is safe for concurrent searches
// because nothing mutates it after Build or Load returns.
type Index struct {
	dimensions int
	metric     Metric
	records    []models.VectorRecord
	buildID    string
	createdAt  time.Time
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

type buildOptions struct {
	logger   *zap.Logger
	progress func(done, total int)
}

// WithLogger sets the logger used while building.
func WithLogger(l *zap.Logger) BuildOption {
	return func(o *buildOptions) { o.logger = l }
}

// WithProgress registers a callback invoked after each document is embedded.
func WithProgress(fn func(done, total int)) BuildOption {
	return func(o *buildOptions) { o.progress = fn }
}

// Build embeds each document exactly once, in order, and returns the index. Record ids are the
// document positions. Every vector must have embedder.Dimensions() entries.
func Build(ctx context.Context, docs []models.Document, embedder embedding.Embedder, metric Metric, opts ...BuildOption) (*Index, error) {
	o := buildOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if _, err := ParseMetric(string(metric)); err != nil {
		return nil, err
	}
	if metric == "" {
		metric = MetricCosine
	}
	dims := embedder.Dimensions()
	if dims <= 0 {
		return nil, fmt.Errorf("embedder reports %d dimensions: %w", dims, models.ErrConfiguration)
	}

	records := make([]models.VectorRecord, 0, len(docs))
	for i, doc := range docs {
		if !doc.Kind.Valid() {
			return nil, fmt.Errorf("document %d: unknown kind %q: %w", i, doc.Kind, models.ErrConfiguration)
		}
		vec, err := embedder.Embed(ctx, doc.Content)
		if err != nil {
			return nil, fmt.Errorf("embed document %d: %w", i, err)
		}
		if len(vec) != dims {
			return nil, fmt.Errorf("document %d embedded to %d dimensions, expected %d: %w",
				i, len(vec), dims, models.ErrDimensionMismatch)
		}
		records = append(records, models.VectorRecord{
			ID:       i,
			Vector:   append([]float32(nil), vec...),
			Document: doc,
		})
		if o.progress != nil {
			o.progress(i+1, len(docs))
		}
	}

	idx := &Index{
		dimensions: dims,
		metric:     metric,
		records:    records,
		buildID:    uuid.NewString(),
		createdAt:  time.Now().UTC(),
	}
	o.logger.Info("vector index built",
		zap.String("build_id", idx.buildID),
		zap.Int("records", len(records)),
		zap.Int("dimensions", dims),
		zap.String("metric", string(metric)))
	return idx, nil
}

// Search returns the k records closest to query, by non-increasing score with ties broken by
// ascending id. k <= 0 returns an empty result. A nil index returns models.ErrIndexNotReady.
func (idx *Index) Search(query []float32, k int) (models.RetrievalResult, error) {
	if idx == nil {
		return nil, models.ErrIndexNotReady
	}
	if len(query) != idx.dimensions {
		return nil, fmt.Errorf("query has %d dimensions, index has %d: %w",
			len(query), idx.dimensions, models.ErrDimensionMismatch)
	}
	if k <= 0 || len(idx.records) == 0 {
		return models.RetrievalResult{}, nil
	}

	type hit struct {
		id    int
		score float64
	}
	hits := make([]hit, len(idx.records))
	for i, rec := range idx.records {
		hits[i] = hit{id: rec.ID, score: idx.metric.Score(query, rec.Vector)}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].id < hits[j].id
	})
	if k > len(hits) {
		k = len(hits)
	}
	result := make(models.RetrievalResult, k)
	for i := 0; i < k; i++ {
		result[i] = models.ScoredDocument{Document: idx.records[hits[i].id].Document, Score: hits[i].score}
	}
	return result, nil
}

// Size returns the number of records.
func (idx *Index) Size() int {
	if idx == nil {
		return 0
	}
	return len(idx.records)
}

// Dimensions returns the embedding dimensionality the index was built with.
func (idx *Index) Dimensions() int {
	if idx == nil {
		return 0
	}
	return idx.dimensions
}

// Metric returns the similarity metric fixed at build time.
func (idx *Index) Metric() Metric {
	if idx == nil {
		return ""
	}
	return idx.metric
}

// BuildID identifies the build that produced the index; it survives Persist and Load.
func (idx *Index) BuildID() string {
	if idx == nil {
		return ""
	}
	return idx.buildID
}

// CreatedAt returns the build time.
func (idx *Index) CreatedAt() time.Time {
	if idx == nil {
		return time.Time{}
	}
	return idx.createdAt
}
