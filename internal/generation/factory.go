package generation

import (
	"context"
	"fmt"

	"github.com/hyperjump/kiku/internal/models"
)

// Provider names accepted by NewBackend.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// BackendOptions selects and configures a completion backend.
type BackendOptions struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// NewBackend creates the backend named by opts.Provider.
func NewBackend(ctx context.Context, opts BackendOptions) (Backend, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("generation model is required: %w", models.ErrConfiguration)
	}
	switch opts.Provider {
	case ProviderOpenAI:
		return NewOpenAIBackend(opts.APIKey, opts.BaseURL, opts.Model), nil
	case ProviderAnthropic:
		return NewAnthropicBackend(opts.APIKey, opts.BaseURL, opts.Model), nil
	case ProviderGemini:
		return NewGeminiBackend(ctx, opts.APIKey, opts.BaseURL, opts.Model)
	default:
		return nil, fmt.Errorf("unknown generation provider %q (supported: openai, anthropic, gemini): %w",
			opts.Provider, models.ErrConfiguration)
	}
}
