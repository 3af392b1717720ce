// Package extract reads corpus files into UTF-8 text.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hyperjump/kiku/internal/models"
)

var (
	textExtensions  = []string{".txt", ".md", ".pdf", ".docx"}
	tableExtensions = []string{".txt", ".xlsx"}
)

// Extensions returns the file extensions accepted for documents of kind.
// Table files must already hold one linearized row per line (.txt) or one row per sheet row (.xlsx).
func Extensions(kind models.Kind) []string {
	if kind == models.KindTable {
		return slices.Clone(tableExtensions)
	}
	return slices.Clone(textExtensions)
}

// Supports reports whether a file with extension ext can be read as kind. ext is case-insensitive.
func Supports(kind models.Kind, ext string) bool {
	return slices.Contains(Extensions(kind), strings.ToLower(ext))
}

// Extractor extracts plain text from corpus files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
// PDF pages and DOCX paragraphs are separated by a blank line; XLSX rows become tab-joined lines.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes extracts text from content based on the given extension (with leading dot).
// Unknown extensions are read as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	default:
		return extractPlain(content)
	}
}
