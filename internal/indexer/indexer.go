package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kiku/internal/embedding"
	"github.com/hyperjump/kiku/internal/extract"
	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/internal/vector"
)

// Source is one corpus file or directory and the kind of content it holds.
type Source struct {
	Path string
	Kind models.Kind
}

// Builder runs the build-time flow: load corpus, split, embed, build and persist.
type Builder struct {
	chunker   *Chunker
	embedder  embedding.Embedder
	metric    vector.Metric
	extractor *extract.Extractor
	logger    *zap.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets a logger for build progress.
func WithLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// WithMetric sets the similarity metric of built indexes. Defaults to cosine.
func WithMetric(m vector.Metric) BuilderOption {
	return func(b *Builder) { b.metric = m }
}

// NewBuilder creates a builder that splits with chunker and embeds with embedder.
func NewBuilder(chunker *Chunker, embedder embedding.Embedder, opts ...BuilderOption) *Builder {
	b := &Builder{
		chunker:   chunker,
		embedder:  embedder,
		metric:    vector.MetricCosine,
		extractor: extract.NewExtractor(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// LoadCorpus reads every source into documents, one per file, in source order.
// Directories are walked in lexical order; hidden entries and files whose extension is not
// readable as the source kind are skipped. Files with no text are skipped.
func (b *Builder) LoadCorpus(ctx context.Context, sources []Source) ([]models.Document, error) {
	var docs []models.Document
	for _, src := range sources {
		if !src.Kind.Valid() {
			return nil, fmt.Errorf("source %s: unknown kind %q: %w", src.Path, src.Kind, models.ErrConfiguration)
		}
		files, err := sourceFiles(src)
		if err != nil {
			return nil, err
		}
		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			text, err := b.extractor.Extract(path)
			if err != nil {
				return nil, fmt.Errorf("extract %s: %w", path, err)
			}
			if strings.TrimSpace(text) == "" {
				b.logger.Debug("skipping empty corpus file", zap.String("path", path))
				continue
			}
			docs = append(docs, models.Document{Content: text, Kind: src.Kind})
			b.logger.Debug("corpus file loaded",
				zap.String("path", path),
				zap.String("kind", string(src.Kind)),
				zap.Int("chars", len([]rune(text))))
		}
	}
	return docs, nil
}

// sourceFiles resolves a source into the files to read.
func sourceFiles(src Source) ([]string, error) {
	absPath, err := filepath.Abs(src.Path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if !info.IsDir() {
		if !extract.Supports(src.Kind, filepath.Ext(absPath)) {
			return nil, fmt.Errorf("source %s: extension not readable as %s (supported: %s): %w",
				absPath, src.Kind, strings.Join(extract.Extensions(src.Kind), " "), models.ErrConfiguration)
		}
		return []string{absPath}, nil
	}

	var files []string
	err = filepath.WalkDir(absPath, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path != absPath && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !extract.Supports(src.Kind, filepath.Ext(path)) {
			return nil
		}
		// Resolve symlinks so we only read regular files
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", absPath, err)
	}
	return files, nil
}

// Split chunks documents in order. Text and table chunks keep their document's kind.
func (b *Builder) Split(docs []models.Document) []models.Document {
	var chunks []models.Document
	for _, doc := range docs {
		chunks = append(chunks, b.chunker.Chunk(doc)...)
	}
	return chunks
}

// Build loads, splits and embeds the corpus into a new index.
func (b *Builder) Build(ctx context.Context, sources []Source) (*vector.Index, error) {
	start := time.Now()
	docs, err := b.LoadCorpus(ctx, sources)
	if err != nil {
		return nil, err
	}
	chunks := b.Split(docs)
	b.logger.Info("corpus split",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)))

	idx, err := vector.Build(ctx, chunks, b.embedder, b.metric,
		vector.WithLogger(b.logger),
		vector.WithProgress(func(done, total int) {
			if done%500 == 0 || done == total {
				b.logger.Debug("embedding progress", zap.Int("done", done), zap.Int("total", total))
			}
		}))
	if err != nil {
		return nil, err
	}
	b.logger.Info("index build complete", zap.Duration("elapsed", time.Since(start)))
	return idx, nil
}

// BuildAndPersist builds the index and atomically replaces the index directory at dir.
func (b *Builder) BuildAndPersist(ctx context.Context, sources []Source, dir string) (*vector.Index, error) {
	idx, err := b.Build(ctx, sources)
	if err != nil {
		return nil, err
	}
	if err := idx.Persist(ctx, dir); err != nil {
		return nil, err
	}
	b.logger.Info("index persisted", zap.String("path", dir), zap.String("build_id", idx.BuildID()))
	return idx, nil
}
