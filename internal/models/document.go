// Package models defines core data structures for documents, retrieval results, and answers.
package models

import "fmt"

// Kind is the origin of a document's content. It is a closed set.
type Kind string

const (
	// KindText is prose extracted from the corpus text.
	KindText Kind = "text"
	// KindTable is one pre-linearized table row.
	KindTable Kind = "table"
)

// ParseKind returns the Kind named by s, or an error for anything outside the closed set.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindText:
		return KindText, nil
	case KindTable:
		return KindTable, nil
	default:
		return "", fmt.Errorf("unknown document kind %q (supported: text, table)", s)
	}
}

// Valid reports whether k is a member of the closed set.
func (k Kind) Valid() bool {
	return k == KindText || k == KindTable
}

// Document is a unit of corpus content. Chunks produced by splitting are Documents too.
type Document struct {
	Content string `json:"content"`
	Kind    Kind   `json:"kind"`
}

// VectorRecord is one indexed document with its embedding. ID is the insertion order.
type VectorRecord struct {
	ID       int
	Vector   []float32
	Document Document
}
