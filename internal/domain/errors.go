package domain

import "errors"

var (
	// ErrNotFound signals a missing product or vector.
	ErrNotFound = errors.New("not found")
	// ErrValidation signals missing or malformed request input.
	ErrValidation = errors.New("validation failed")
	// ErrVectorDimMismatch signals a query vector whose length does not match the index.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrIndexUnavailable signals a transport-level failure reaching the index service.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrIndexService signals a non-success status from the index service.
	ErrIndexService = errors.New("vector index error")
	// ErrIndexDecode signals an index response that did not match the expected binary shape.
	ErrIndexDecode = errors.New("vector index response decode failed")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
