package generation

import (
	"context"
	"errors"
	"io"
	"math"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIBackend streams chat completions from an OpenAI-compatible API (OpenAI, Groq, vLLM, ...).
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

// NewOpenAIBackend creates a backend for model. An empty baseURL uses the OpenAI default.
func NewOpenAIBackend(apiKey, baseURL, model string) *OpenAIBackend {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIBackend{client: openai.NewClientWithConfig(cfg), model: model}
}

// Stream opens a chat completion stream.
func (b *OpenAIBackend) Stream(ctx context.Context, messages []Message, params Params) (Stream, error) {
	req := openai.ChatCompletionRequest{
		Model:       b.model,
		Messages:    make([]openai.ChatCompletionMessage, len(messages)),
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		TopP:        params.TopP,
		Stream:      true,
	}
	// temperature is omitempty; a zero value would fall back to the server default.
	if req.Temperature == 0 {
		req.Temperature = math.SmallestNonzeroFloat32
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: openaiRole(m.Role), Content: m.Content}
	}
	stream, err := b.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}
	return &openaiStream{stream: stream}, nil
}

func openaiRole(r Role) string {
	switch r {
	case RoleSystem:
		return openai.ChatMessageRoleSystem
	case RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

type openaiStream struct {
	stream   *openai.ChatCompletionStream
	fragment string
	err      error
}

func (s *openaiStream) Next() bool {
	resp, err := s.stream.Recv()
	if errors.Is(err, io.EOF) {
		return false
	}
	if err != nil {
		s.err = err
		return false
	}
	s.fragment = ""
	if len(resp.Choices) > 0 {
		s.fragment = resp.Choices[0].Delta.Content
	}
	return true
}

func (s *openaiStream) Fragment() string { return s.fragment }
func (s *openaiStream) Err() error       { return s.err }
func (s *openaiStream) Close() error     { return s.stream.Close() }
