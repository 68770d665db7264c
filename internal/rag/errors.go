package rag

import "errors"

// Sentinel errors for the pipeline error taxonomy. Callers classify
// failures with errors.Is rather than string matching.
var (
	// ErrInvalidInput marks requests missing required fields or carrying an
	// unsupported mode. Surfaced to the caller immediately, never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbeddingService marks a failed or empty embedding service call.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrCompletionService marks a failed completion call or a response
	// with no extractable text.
	ErrCompletionService = errors.New("completion service error")

	// ErrDimensionMismatch marks a vector whose length does not match the
	// index's configured dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
