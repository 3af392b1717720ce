// Package config provides configuration loading and structs for kiku.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/kiku/internal/indexer"
	"github.com/hyperjump/kiku/internal/models"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	LogLevel   string           `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Server     ServerConfig     `yaml:"server"`
	Index      IndexConfig      `yaml:"index"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"min=1,max=65535"`
}

// IndexConfig locates the persisted index and sets how it is searched.
type IndexConfig struct {
	Path   string `yaml:"path" validate:"required"`
	Metric string `yaml:"metric" validate:"oneof=cosine l2"`
	TopK   int    `yaml:"top_k" validate:"min=1"`
}

// ChunkingConfig holds the splitter settings, in characters.
// ChunkOverlap is a pointer so an explicit 0 is kept by ApplyDefaults.
type ChunkingConfig struct {
	ChunkSize    int  `yaml:"chunk_size"`
	ChunkOverlap *int `yaml:"chunk_overlap"`
}

// Overlap returns the configured overlap, or 0 when unset.
func (c ChunkingConfig) Overlap() int {
	if c.ChunkOverlap == nil {
		return 0
	}
	return *c.ChunkOverlap
}

// EmbeddingConfig selects the embedder. The same settings must be used to build and to query an index.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider" validate:"oneof=onnx openai mock"`
	ModelPath  string `yaml:"model_path" validate:"required_if=Provider onnx"`
	Dimensions int    `yaml:"dimensions" validate:"min=1"`
	MaxTokens  int    `yaml:"max_tokens" validate:"min=1"`
	CacheSize  int    `yaml:"cache_size" validate:"min=0"`
	Model      string `yaml:"model" validate:"required_if=Provider openai"`
	BaseURL    string `yaml:"base_url" validate:"omitempty,url"`
	APIKey     string `yaml:"api_key"`
}

// GenerationConfig selects the completion backend and its decoding parameters.
type GenerationConfig struct {
	Provider        string  `yaml:"provider" validate:"oneof=openai anthropic gemini"`
	Model           string  `yaml:"model" validate:"required"`
	BaseURL         string  `yaml:"base_url" validate:"omitempty,url"`
	APIKey          string  `yaml:"api_key"`
	Temperature     float64 `yaml:"temperature" validate:"min=0,max=2"`
	MaxTokens       int     `yaml:"max_tokens" validate:"min=1"`
	TopP            float64 `yaml:"top_p" validate:"gt=0,max=1"`
	SystemPrompt    string  `yaml:"system_prompt"`
	FallbackPhrase  string  `yaml:"fallback_phrase"`
	MaxContextChars int     `yaml:"max_context_chars" validate:"min=1"`
}

// CorpusConfig lists the files the index is built from.
type CorpusConfig struct {
	Sources []SourceConfig `yaml:"sources" validate:"dive"`
}

// SourceConfig is one corpus file or directory and the kind of its content.
type SourceConfig struct {
	Path string `yaml:"path" validate:"required"`
	Kind string `yaml:"kind" validate:"oneof=text table"`
}

// WatchConfig holds corpus watch settings.
type WatchConfig struct {
	DebounceMs int `yaml:"debounce_ms" validate:"min=0"`
}

// Load reads and parses the config file at path, expands environment variables and paths,
// applies defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse builds a Config from YAML bytes. Paths starting with "./" are resolved against configDir.
func Parse(data []byte, configDir string) (*Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	cfg.Index.Path = expandPath(cfg.Index.Path, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	for i := range cfg.Corpus.Sources {
		cfg.Corpus.Sources[i].Path = expandPath(cfg.Corpus.Sources[i].Path, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks struct constraints and the chunk_overlap < chunk_size rule.
// Every failure wraps models.ErrConfiguration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", models.ErrConfiguration, err)
	}
	return indexer.ValidateChunking(c.Chunking.ChunkSize, c.Chunking.Overlap())
}

// Sources converts the configured corpus into loader sources.
func (c *Config) Sources() []indexer.Source {
	out := make([]indexer.Source, len(c.Corpus.Sources))
	for i, s := range c.Corpus.Sources {
		out[i] = indexer.Source{Path: s.Path, Kind: models.Kind(s.Kind)}
	}
	return out
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		name, def, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(name)
		if val == "" && hasDefault {
			val = def
		}
		return []byte(val)
	})
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
