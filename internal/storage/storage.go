package storage

import (
	"context"
	"io"
)

// Store persists upload blobs addressed by a relative key. Remove is
// idempotent: deleting an absent key is not an error.
type Store interface {
	Save(ctx context.Context, key string, r io.Reader) error
	Remove(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
