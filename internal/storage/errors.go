package storage

import "errors"

var (
	ErrQdrantUnreachable = errors.New("qdrant server unreachable")
	ErrBookNotFound      = errors.New("book not found")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
