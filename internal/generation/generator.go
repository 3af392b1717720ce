// Package generation issues grounded, streaming completion requests and folds the fragment
// stream into one answer.
package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kiku/internal/metrics"
	"github.com/hyperjump/kiku/internal/models"
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message sent to a backend.
type Message struct {
	Role    Role
	Content string
}

// Params are the decoding parameters of a completion request. Stop is always empty.
type Params struct {
	Temperature float32
	MaxTokens   int
	TopP        float32
}

// DefaultParams: temperature 0, at most 1024 output tokens, nucleus threshold 0.65.
func DefaultParams() Params {
	return Params{Temperature: 0, MaxTokens: 1024, TopP: 0.65}
}

// Stream is a finite, non-restartable sequence of text fragments.
type Stream interface {
	// Next advances to the next fragment and reports whether there is one.
	Next() bool
	// Fragment returns the current fragment. It may be empty.
	Fragment() string
	// Err returns the error that ended the stream early, if any.
	Err() error
	Close() error
}

// Backend opens a streaming completion for a list of messages.
type Backend interface {
	Stream(ctx context.Context, messages []Message, params Params) (Stream, error)
}

// FallbackPlaceholder is replaced by the fallback phrase in an instruction template.
const FallbackPlaceholder = "{fallback_phrase}"

// DefaultFallbackPhrase is what the backend is told to answer when the context is insufficient.
const DefaultFallbackPhrase = "Me desculpe, mas não tenho uma resposta para esta pergunta"

// DefaultInstructionTemplate is the grounded-answering instruction.
const DefaultInstructionTemplate = "Considere a conversa, o contexto e a pergunta dada para dar uma resposta. " +
	"Caso você não saiba uma resposta, fale '" + FallbackPlaceholder + "' em vez de tentar gerar uma resposta imprecisa. " +
	"Responda apenas o que foi perguntado de maneira sucinta."

// ContextPrefix starts the system message that carries the assembled context.
const ContextPrefix = "Contexto:\n"

// BuildInstruction fills the fallback phrase into template. A template without the placeholder
// gets the phrase appended so the backend always sees it verbatim.
func BuildInstruction(template, fallback string) string {
	if template == "" {
		template = DefaultInstructionTemplate
	}
	if fallback == "" {
		fallback = DefaultFallbackPhrase
	}
	if strings.Contains(template, FallbackPlaceholder) {
		return strings.ReplaceAll(template, FallbackPlaceholder, fallback)
	}
	return template + "\n" + fallback
}

// Generator builds the three grounded messages and drains the backend stream.
type Generator struct {
	backend     Backend
	provider    string
	instruction string
	params      Params
	logger      *zap.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithInstruction sets the full system instruction text.
func WithInstruction(instruction string) Option {
	return func(g *Generator) { g.instruction = instruction }
}

// WithParams overrides the decoding parameters.
func WithParams(p Params) Option {
	return func(g *Generator) { g.params = p }
}

// WithProvider sets the provider label used in logs and metrics.
func WithProvider(name string) Option {
	return func(g *Generator) { g.provider = name }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator returns a Generator over backend with the default instruction and parameters.
func NewGenerator(backend Backend, opts ...Option) *Generator {
	g := &Generator{
		backend:     backend,
		provider:    "custom",
		instruction: BuildInstruction(DefaultInstructionTemplate, DefaultFallbackPhrase),
		params:      DefaultParams(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Messages returns the three messages sent for the grounding context and query, in order.
func (g *Generator) Messages(grounding, query string) []Message {
	return []Message{
		{Role: RoleSystem, Content: g.instruction},
		{Role: RoleSystem, Content: ContextPrefix + grounding},
		{Role: RoleUser, Content: query},
	}
}

// Generate asks the backend to answer query grounded on the assembled context. Fragments are concatenated in
// arrival order and the stream is always drained. Any backend failure returns
// models.ErrGenerationFailed and no partial text. An empty context is still sent.
func (g *Generator) Generate(ctx context.Context, grounding, query string) (models.GeneratedAnswer, error) {
	start := time.Now()
	stream, err := g.backend.Stream(ctx, g.Messages(grounding, query), g.params)
	if err != nil {
		return models.GeneratedAnswer{}, g.fail(err, 0)
	}
	defer stream.Close()

	var (
		b         strings.Builder
		fragments int
	)
	for stream.Next() {
		b.WriteString(stream.Fragment())
		fragments++
	}
	if err := stream.Err(); err != nil {
		return models.GeneratedAnswer{}, g.fail(err, fragments)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.provider, "success").Inc()
	metrics.GenerationFragmentsTotal.WithLabelValues(g.provider).Add(float64(fragments))
	metrics.GenerationDuration.WithLabelValues(g.provider).Observe(time.Since(start).Seconds())
	g.logger.Debug("generation complete",
		zap.String("provider", g.provider),
		zap.Int("fragments", fragments),
		zap.Int("answer_len", b.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return models.GeneratedAnswer{Text: b.String()}, nil
}

func (g *Generator) fail(err error, fragments int) error {
	metrics.GenerationRequestsTotal.WithLabelValues(g.provider, "error").Inc()
	g.logger.Warn("generation failed",
		zap.String("provider", g.provider),
		zap.Int("fragments_received", fragments),
		zap.Error(err))
	return fmt.Errorf("%w: %w", models.ErrGenerationFailed, err)
}
