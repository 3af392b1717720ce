package embedding

import (
	"context"
	"math"
)

// MockEmbedder is a deterministic embedder for tests and offline runs. The vector is derived from
// the text hash, so the same text always gets the same unit-length embedding.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic embedding based on the text hash.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h := HashString(text)
	emb := make([]float32, e.dimensions)
	for i := range emb {
		emb[i] = float32(math.Sin(float64(h%100003)*float64(i+1))*0.1 + 0.01)
	}
	NormalizeL2Slice(emb)
	return emb, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int { return e.dimensions }

// Close is a no-op.
func (e *MockEmbedder) Close() error { return nil }

// AxisEmbedder maps each known text to the unit vector along its own axis. Unknown text maps to
// the zero vector.
type AxisEmbedder struct {
	axes map[string]int
}

// NewAxisEmbedder returns an embedder whose dimensions equal len(texts); texts[i] embeds to e_i.
func NewAxisEmbedder(texts ...string) *AxisEmbedder {
	axes := make(map[string]int, len(texts))
	for i, t := range texts {
		axes[t] = i
	}
	return &AxisEmbedder{axes: axes}
}

// Embed returns the axis vector for text.
func (e *AxisEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v := make([]float32, len(e.axes))
	if i, ok := e.axes[text]; ok {
		v[i] = 1
	}
	return v, nil
}

// Dimensions returns the number of axes.
func (e *AxisEmbedder) Dimensions() int { return len(e.axes) }

// Close is a no-op.
func (e *AxisEmbedder) Close() error { return nil }

// NormalizeL2Slice normalizes the slice in place to unit L2 norm. A zero vector is left unchanged.
func NormalizeL2Slice(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(sum))
	for i := range x {
		x[i] *= norm
	}
}
