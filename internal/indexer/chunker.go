// Package indexer provides document chunking and index building.
package indexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/kiku/internal/models"
)

// DefaultSeparators is the separator hierarchy tried in order: paragraph, line, word, character.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Chunker splits text into bounded, overlapping chunks using a separator hierarchy.
// Lengths are measured in runes.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithSeparators replaces the separator hierarchy. Without "" as the last entry, a piece that no
// separator can split is emitted whole even when it exceeds the chunk size.
func WithSeparators(seps []string) ChunkerOption {
	return func(c *Chunker) { c.separators = append([]string(nil), seps...) }
}

// NewChunker creates a chunker with the given size and overlap (in characters).
// Returns models.ErrConfiguration unless 0 <= chunkOverlap < chunkSize.
func NewChunker(chunkSize, chunkOverlap int, opts ...ChunkerOption) (*Chunker, error) {
	if err := ValidateChunking(chunkSize, chunkOverlap); err != nil {
		return nil, err
	}
	c := &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   DefaultSeparators,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ValidateChunking checks the chunk_size/chunk_overlap relationship.
func ValidateChunking(chunkSize, chunkOverlap int) error {
	if chunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d: %w", chunkSize, models.ErrConfiguration)
	}
	if chunkOverlap < 0 {
		return fmt.Errorf("chunk_overlap must not be negative, got %d: %w", chunkOverlap, models.ErrConfiguration)
	}
	if chunkOverlap >= chunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d): %w",
			chunkOverlap, chunkSize, models.ErrConfiguration)
	}
	return nil
}

// Split is the pure form of Chunker.SplitText for the default separators.
func Split(text string, chunkSize, chunkOverlap int) ([]string, error) {
	c, err := NewChunker(chunkSize, chunkOverlap)
	if err != nil {
		return nil, err
	}
	return c.SplitText(text), nil
}

// Chunk splits a document into chunk documents of the same kind.
// Text uses the separator hierarchy; tables yield one chunk per non-blank row.
func (c *Chunker) Chunk(doc models.Document) []models.Document {
	var parts []string
	if doc.Kind == models.KindTable {
		parts = SplitTableRows(doc.Content)
	} else {
		parts = c.SplitText(doc.Content)
	}
	chunks := make([]models.Document, len(parts))
	for i, p := range parts {
		chunks[i] = models.Document{Content: p, Kind: doc.Kind}
	}
	return chunks
}

// SplitText splits text into chunks. Chunks are trimmed and never empty; blank text yields nil.
func (c *Chunker) SplitText(text string) []string {
	return c.split(text, c.separators)
}

func (c *Chunker) split(text string, separators []string) []string {
	separator := ""
	var finer []string
	if len(separators) > 0 {
		separator = separators[len(separators)-1]
	}
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			finer = nil
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			finer = separators[i+1:]
			break
		}
	}

	var (
		out  []string
		good []string
	)
	for _, piece := range splitOn(text, separator) {
		if runeLen(piece) <= c.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, c.merge(good, separator)...)
			good = nil
		}
		if len(finer) == 0 {
			if trimmed := strings.TrimSpace(piece); trimmed != "" {
				out = append(out, trimmed)
			}
			continue
		}
		out = append(out, c.split(piece, finer)...)
	}
	if len(good) > 0 {
		out = append(out, c.merge(good, separator)...)
	}
	return out
}

// merge packs pieces into chunks of at most chunkSize runes. Each new chunk starts with the
// trailing pieces of the previous one, up to chunkOverlap runes.
func (c *Chunker) merge(pieces []string, separator string) []string {
	sepLen := runeLen(separator)
	var (
		chunks  []string
		current []string
		total   int
	)
	joinCost := func() int {
		if len(current) > 0 {
			return sepLen
		}
		return 0
	}
	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n+joinCost() > c.chunkSize && len(current) > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, separator)); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > c.chunkOverlap || (total > 0 && total+n+joinCost() > c.chunkSize) {
				drop := runeLen(current[0])
				if len(current) > 1 {
					drop += sepLen
				}
				total -= drop
				current = current[1:]
			}
		}
		total += n + joinCost()
		current = append(current, piece)
	}
	if chunk := strings.TrimSpace(strings.Join(current, separator)); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// splitOn splits text by sep and drops empty pieces. An empty sep splits into runes.
func splitOn(text, sep string) []string {
	var raw []string
	if sep == "" {
		raw = make([]string, 0, len(text))
		for _, r := range text {
			raw = append(raw, string(r))
		}
	} else {
		raw = strings.Split(text, sep)
	}
	pieces := raw[:0]
	for _, p := range raw {
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
