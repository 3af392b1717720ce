// Package cli provides CLI output helpers for kiku.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/kiku/internal/models"
)

// OutputFormat is the format for answer and retrieval output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat returns the format named by s.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (supported: text, json)", s)
	}
}

// TextOptions tunes text output.
type TextOptions struct {
	// ChunkChars truncates each displayed chunk to this many characters; 0 shows chunks whole.
	ChunkChars int
	// HideChunks prints only the answer.
	HideChunks bool
}

// WriteAnswer writes the retrieved chunks, labeled "Chunk i", followed by the answer.
func WriteAnswer(w io.Writer, ans *models.Answer, format OutputFormat, opts TextOptions) error {
	if format == OutputJSON {
		return writeJSON(w, ans)
	}
	if !opts.HideChunks {
		writeChunks(w, ans.Retrieved, opts.ChunkChars)
	}
	fmt.Fprintln(w, "Answer:")
	fmt.Fprintln(w, ans.Answer)
	return nil
}

// WriteRetrieval writes a retrieval result without an answer.
func WriteRetrieval(w io.Writer, result models.RetrievalResult, format OutputFormat, opts TextOptions) error {
	if format == OutputJSON {
		if result == nil {
			result = models.RetrievalResult{}
		}
		return writeJSON(w, map[string]models.RetrievalResult{"retrieved": result})
	}
	if len(result) == 0 {
		fmt.Fprintln(w, "No chunks retrieved.")
		return nil
	}
	writeChunks(w, result, opts.ChunkChars)
	return nil
}

func writeChunks(w io.Writer, result models.RetrievalResult, maxChars int) {
	for i, hit := range result {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Chunk %d [%s] Score: %.4f\n", i+1, hit.Kind, hit.Score)
		fmt.Fprintf(w, "%s\n\n", Truncate(hit.Content, maxChars))
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Truncate truncates s to maxLen characters and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 0 || len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
