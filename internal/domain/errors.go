package domain

import "errors"

// Sentinel errors for retrieval operations.
var (
	// ErrPartitionNotFound signals that no artifact location resolved for a partition.
	ErrPartitionNotFound = errors.New("partition not found")
	// ErrEncoderUnavailable signals that no encoding backend produced a vector.
	ErrEncoderUnavailable = errors.New("encoder unavailable")
	// ErrNoAnswer signals that no candidate partition yielded any result.
	ErrNoAnswer = errors.New("no answer")
	// ErrIndexCorrupt signals an unreadable persisted similarity index.
	ErrIndexCorrupt = errors.New("index corrupt")
	// ErrDimensionMismatch signals a query vector incompatible with an index.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrEncodingProviderError signals a remote embedding provider failure.
	ErrEncodingProviderError = errors.New("embedding provider error")
)
