package generation

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
)

// AnthropicBackend streams Claude messages. System messages become system blocks in order.
type AnthropicBackend struct {
	client anthropic.Client
	model  string
}

// NewAnthropicBackend creates a backend for model. The SDK's automatic retries are disabled.
func NewAnthropicBackend(apiKey, baseURL, model string) *AnthropicBackend {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicBackend{client: anthropic.NewClient(opts...), model: model}
}

// Stream opens a message stream. Claude rejects requests that set both temperature and top_p,
// so only the temperature is sent.
func (b *AnthropicBackend) Stream(ctx context.Context, messages []Message, params Params) (Stream, error) {
	req := anthropic.MessageNewParams{
		Model:       anthropic.Model(b.model),
		MaxTokens:   int64(params.MaxTokens),
		Temperature: anthropic.Float(float64(params.Temperature)),
	}
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			req.System = append(req.System, anthropic.TextBlockParam{Text: m.Content})
		case RoleAssistant:
			req.Messages = append(req.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			req.Messages = append(req.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	stream := b.client.Messages.NewStreaming(ctx, req)
	if err := stream.Err(); err != nil {
		_ = stream.Close()
		return nil, err
	}
	return &anthropicStream{stream: stream}, nil
}

type anthropicStream struct {
	stream   *ssestream.Stream[anthropic.MessageStreamEventUnion]
	fragment string
}

// Next skips events that carry no text.
func (s *anthropicStream) Next() bool {
	for s.stream.Next() {
		event, ok := s.stream.Current().AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		if delta, ok := event.Delta.AsAny().(anthropic.TextDelta); ok {
			s.fragment = delta.Text
			return true
		}
	}
	return false
}

func (s *anthropicStream) Fragment() string { return s.fragment }
func (s *anthropicStream) Err() error       { return s.stream.Err() }
func (s *anthropicStream) Close() error     { return s.stream.Close() }
