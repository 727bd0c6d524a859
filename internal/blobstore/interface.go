package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrBlobNotFound is returned when no blob exists for a key.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore is the byte-storage abstraction used by ImageService.
// Keys are opaque image ids; the store never derives keys from content.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]string, error)
}
