package service

import "errors"

// Error taxonomy of the document chat service. The API layer maps these to
// HTTP status codes with errors.Is; anything else is treated as an internal
// dependency failure.
var (
	// ErrInvalidInput marks rejected caller input (non-PDF upload, empty
	// question). Safe to surface verbatim.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks an unknown document id.
	ErrNotFound = errors.New("document not found")

	// ErrUnavailable marks a transient failure of the embedding or
	// generation backends while answering a question.
	ErrUnavailable = errors.New("generation unavailable")
)
