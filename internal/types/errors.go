package types

import "errors"

var (
	// ErrInvalidArgument indicates malformed parameters, e.g. chunking bounds.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrRetrievalUnavailable indicates the vector index could not be queried.
	// Retrieval absorbs it and returns no evidence.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrCompletionFailure indicates the language model call failed.
	ErrCompletionFailure = errors.New("completion failed")

	ErrNotFound = errors.New("not found")
)
