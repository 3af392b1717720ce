package models

import "errors"

var (
	// ErrConfiguration signals an invalid setting, e.g. chunk_overlap >= chunk_size.
	ErrConfiguration = errors.New("configuration error")
	// ErrEmptyQuery signals a blank or whitespace-only query.
	ErrEmptyQuery = errors.New("empty query")
	// ErrIndexNotReady signals a search against an index that was never built or loaded.
	ErrIndexNotReady = errors.New("index not ready")
	// ErrDimensionMismatch signals an embedding/index dimensionality disagreement.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrIndexIO signals a failure reading or writing a persisted index.
	ErrIndexIO = errors.New("index i/o error")
	// ErrGenerationFailed signals a completion backend failure.
	ErrGenerationFailed = errors.New("generation failed")
)
