package storage

import "errors"

var (
	ErrUnreachable       = errors.New("vector store unreachable")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
