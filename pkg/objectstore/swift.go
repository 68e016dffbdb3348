package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ncw/swift"
)

// SwiftStorage stores objects in an OpenStack Swift container.
type SwiftStorage struct {
	conn      *swift.Connection
	container string
}

// NewSwiftStorage authenticates and creates the container if it is missing.
func NewSwiftStorage(ctx context.Context, conn *swift.Connection, container string) (*SwiftStorage, error) {
	if container == "" {
		return nil, errors.New("swift storage requires a container")
	}
	if !conn.Authenticated() {
		if err := conn.Authenticate(); err != nil {
			return nil, fmt.Errorf("swift authentication failed: %w", err)
		}
	}
	// PUT on a container is idempotent
	if err := conn.ContainerCreate(container, nil); err != nil {
		return nil, fmt.Errorf("failed to create swift container %s: %w", container, err)
	}
	return &SwiftStorage{conn: conn, container: container}, nil
}

func (s *SwiftStorage) Put(ctx context.Context, name string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cr := &countingReader{r: r}
	if _, err := s.conn.ObjectPut(s.container, objectKey(name), cr, true, "", "application/octet-stream", nil); err != nil {
		return 0, fmt.Errorf("failed to put object to swift: %w", err)
	}
	return cr.n, nil
}

func (s *SwiftStorage) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	f, _, err := s.conn.ObjectOpen(s.container, objectKey(name), false, nil)
	if err != nil {
		return nil, s.wrap(name, err)
	}
	return f, nil
}

func (s *SwiftStorage) Stat(ctx context.Context, name string) (int64, error) {
	info, _, err := s.conn.Object(s.container, objectKey(name))
	if err != nil {
		return 0, s.wrap(name, err)
	}
	return info.Bytes, nil
}

func (s *SwiftStorage) Delete(ctx context.Context, name string) error {
	if err := s.conn.ObjectDelete(s.container, objectKey(name)); err != nil {
		return s.wrap(name, err)
	}
	return nil
}

func (s *SwiftStorage) Ping(ctx context.Context) error {
	if _, _, err := s.conn.Container(s.container); err != nil {
		return fmt.Errorf("failed to ping swift container: %w", err)
	}
	return nil
}

func (s *SwiftStorage) Type() string {
	return "swift"
}

func (s *SwiftStorage) wrap(name string, err error) error {
	if errors.Is(err, swift.ObjectNotFound) {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return fmt.Errorf("swift %s/%s: %w", s.container, name, err)
}
