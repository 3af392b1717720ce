//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/kiku/internal/metrics"
)

// ONNX graph names of the all-MiniLM-L6-v2 export.
var (
	onnxInputNames  = []string{"input_ids", "attention_mask", "token_type_ids"}
	onnxOutputNames = []string{"last_hidden_state"}
)

// ONNXEmbedder runs a sentence-transformer model (all-MiniLM-L6-v2 by default) through ONNX Runtime
// and mean-pools the token states under the attention mask into one sentence vector.
// It requires CGO and the onnxruntime shared library. Embed is serialized because the session
// is bound to a single set of tensors.
type ONNXEmbedder struct {
	mu         sync.Mutex
	session    *ort.AdvancedSession
	tensors    onnxTensors
	tokenizer  Tokenizer
	cache      *EmbeddingCache
	dimensions int
	maxTokens  int
}

type onnxTensors struct {
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	hidden        *ort.Tensor[float32]
}

func (t *onnxTensors) destroy() {
	if t.inputIDs != nil {
		_ = t.inputIDs.Destroy()
	}
	if t.attentionMask != nil {
		_ = t.attentionMask.Destroy()
	}
	if t.tokenTypeIDs != nil {
		_ = t.tokenTypeIDs.Destroy()
	}
	if t.hidden != nil {
		_ = t.hidden.Destroy()
	}
	*t = onnxTensors{}
}

func newONNXTensors(maxTokens, dimensions int) (onnxTensors, error) {
	var (
		t   onnxTensors
		err error
	)
	seq := ort.NewShape(1, int64(maxTokens))
	if t.inputIDs, err = ort.NewEmptyTensor[int64](seq); err != nil {
		return t, fmt.Errorf("create input_ids tensor: %w", err)
	}
	if t.attentionMask, err = ort.NewEmptyTensor[int64](seq); err != nil {
		t.destroy()
		return t, fmt.Errorf("create attention_mask tensor: %w", err)
	}
	if t.tokenTypeIDs, err = ort.NewEmptyTensor[int64](seq); err != nil {
		t.destroy()
		return t, fmt.Errorf("create token_type_ids tensor: %w", err)
	}
	if t.hidden, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(maxTokens), int64(dimensions))); err != nil {
		t.destroy()
		return t, fmt.Errorf("create last_hidden_state tensor: %w", err)
	}
	return t, nil
}

// NewONNXEmbedder loads the model at modelPath and allocates its tensors.
func NewONNXEmbedder(modelPath string, dimensions, maxTokens, cacheSize int) (*ONNXEmbedder, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("onnx embedder: model path is required")
	}
	if dimensions <= 0 {
		dimensions = 384
	}
	if maxTokens <= 0 {
		maxTokens = 256
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize ONNX runtime: %w", err)
		}
	}

	tensors, err := newONNXTensors(maxTokens, dimensions)
	if err != nil {
		return nil, err
	}
	session, err := ort.NewAdvancedSession(modelPath, onnxInputNames, onnxOutputNames,
		[]ort.ArbitraryTensor{tensors.inputIDs, tensors.attentionMask, tensors.tokenTypeIDs},
		[]ort.ArbitraryTensor{tensors.hidden},
		nil)
	if err != nil {
		tensors.destroy()
		return nil, fmt.Errorf("create ONNX session for %s: %w", modelPath, err)
	}

	return &ONNXEmbedder{
		session:    session,
		tensors:    tensors,
		tokenizer:  &SimpleTokenizer{},
		cache:      NewEmbeddingCache(cacheSize),
		dimensions: dimensions,
		maxTokens:  maxTokens,
	}, nil
}

// Embed returns the L2-normalized sentence embedding for text, using the cache when available.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, fmt.Errorf("onnx embedder is closed")
	}
	start := time.Now()

	ids, mask, types := e.tokenizer.Tokenize(text, e.maxTokens)
	copy(e.tensors.inputIDs.GetData(), ids)
	copy(e.tensors.attentionMask.GetData(), mask)
	copy(e.tensors.tokenTypeIDs.GetData(), types)

	if err := e.session.Run(); err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(ProviderONNX, "error").Inc()
		return nil, fmt.Errorf("onnx inference: %w", err)
	}
	metrics.EmbeddingRequestsTotal.WithLabelValues(ProviderONNX, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(ProviderONNX).Observe(time.Since(start).Seconds())

	vec := MeanPool(e.tensors.hidden.GetData(), mask, e.dimensions)
	NormalizeL2Slice(vec)
	e.cache.Set(text, vec)
	return vec, nil
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and its tensors. Embed fails afterwards.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	e.tensors.destroy()
	return err
}
