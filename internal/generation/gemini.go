package generation

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"
)

// GeminiBackend streams Gemini content. System messages become ordered parts of the system
// instruction.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGeminiBackend creates a backend for model. An empty baseURL uses the Gemini API default.
func NewGeminiBackend(ctx context.Context, apiKey, baseURL, model string) (*GeminiBackend, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}
	return &GeminiBackend{client: client, model: model}, nil
}

// Stream opens a content stream.
func (b *GeminiBackend) Stream(ctx context.Context, messages []Message, params Params) (Stream, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(params.Temperature),
		TopP:            genai.Ptr(params.TopP),
		MaxOutputTokens: int32(params.MaxTokens),
	}
	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			if config.SystemInstruction == nil {
				config.SystemInstruction = &genai.Content{Role: genai.RoleUser}
			}
			config.SystemInstruction.Parts = append(config.SystemInstruction.Parts, genai.NewPartFromText(m.Content))
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	next, stop := iter.Pull2(b.client.Models.GenerateContentStream(ctx, b.model, contents, config))
	return &geminiStream{next: next, stop: stop}, nil
}

type geminiStream struct {
	next     func() (*genai.GenerateContentResponse, error, bool)
	stop     func()
	fragment string
	err      error
}

func (s *geminiStream) Next() bool {
	resp, err, ok := s.next()
	if !ok {
		return false
	}
	if err != nil {
		s.err = err
		return false
	}
	s.fragment = responseText(resp)
	return true
}

func (s *geminiStream) Fragment() string { return s.fragment }
func (s *geminiStream) Err() error       { return s.err }

func (s *geminiStream) Close() error {
	s.stop()
	return nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
