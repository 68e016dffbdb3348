package objectstore

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("object not found")

// Storage is a flat object namespace inside one bucket or container.
type Storage interface {
	// Put stores everything read from r under name and returns the stored size.
	Put(ctx context.Context, name string, r io.Reader) (int64, error)
	// Get opens the object for reading. The caller closes it.
	Get(ctx context.Context, name string) (io.ReadCloser, error)
	// Stat returns the stored size of the object.
	Stat(ctx context.Context, name string) (int64, error)
	Delete(ctx context.Context, name string) error
	// Ping checks that the bucket or container is reachable.
	Ping(ctx context.Context) error
	// Type returns the storage type (s3, swift, local, memory).
	Type() string
}

// countingReader counts bytes as they are consumed by an uploader.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
