package config

import (
	"os"

	"github.com/hyperjump/kiku/internal/prompt"
)

// Default generation endpoint: Groq's OpenAI-compatible API.
const (
	DefaultGenerationBaseURL = "https://api.groq.com/openai/v1"
	DefaultGenerationModel   = "llama3-groq-70b-8192-tool-use-preview"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = "./data/index"
	}
	if cfg.Index.Metric == "" {
		cfg.Index.Metric = "cosine"
	}
	if cfg.Index.TopK == 0 {
		cfg.Index.TopK = 5
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 1000
	}
	if cfg.Chunking.ChunkOverlap == nil {
		overlap := 0
		if cfg.Chunking.ChunkSize > 50 {
			overlap = 50
		}
		cfg.Chunking.ChunkOverlap = &overlap
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.Provider == "onnx" && cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "./models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.Provider == "openai" && cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	g := &cfg.Generation
	if g.Provider == "" {
		g.Provider = "openai"
		if g.BaseURL == "" {
			g.BaseURL = DefaultGenerationBaseURL
		}
		if g.Model == "" {
			g.Model = DefaultGenerationModel
		}
	}
	if g.APIKey == "" {
		g.APIKey = os.Getenv(apiKeyEnv(g.Provider, g.BaseURL))
	}
	if g.MaxTokens == 0 {
		g.MaxTokens = 1024
	}
	if g.TopP == 0 {
		g.TopP = 0.65
	}
	if g.MaxContextChars == 0 {
		g.MaxContextChars = prompt.DefaultMaxChars
	}
	if cfg.Corpus.Sources == nil {
		cfg.Corpus.Sources = []SourceConfig{
			{Path: "./data/corpus.txt", Kind: "text"},
			{Path: "./data/tables.txt", Kind: "table"},
		}
	}
	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = 500
	}
}

// apiKeyEnv names the environment variable holding the API key for a generation provider.
func apiKeyEnv(provider, baseURL string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	}
	if baseURL == DefaultGenerationBaseURL {
		return "GROQ_API_KEY"
	}
	return "OPENAI_API_KEY"
}
