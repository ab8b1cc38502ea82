package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned when the requested key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage captures the minimal S3-compatible operations the ledger needs.
type ObjectStorage interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
	PutObject(ctx context.Context, key string, data []byte) error
}
