package ostest

import (
	"context"
	"fmt"

	"github.com/ncw/swift"
	"github.com/ncw/swift/swifttest"
	"github.com/user/objectstorage/pkg/objectstore"
	"github.com/user/objectstorage/pkg/objectstore/s3test"
)

// openStore returns the store for backend. A live endpoint configured for
// the backend is used as is; otherwise an in-process server stands in and
// is shut down with the test.
func (f *Fixture) openStore(ctx context.Context, backend, protocol, bucket string) (objectstore.Storage, error) {
	if cfg, ok := f.Config.Backends[backend]; ok && cfg.Live() {
		if cfg.Bucket == "" {
			cfg.Bucket = bucket
		}
		if cfg.Type == "" {
			cfg.Type = protocol
		}
		f.live = true
		return objectstore.NewStorage(ctx, cfg)
	}

	switch backend {
	case COS, S3A:
		srv := s3test.NewServer(bucket)
		f.t.Cleanup(srv.Close)
		s, err := objectstore.NewS3Storage(ctx, srv.URL, "", bucket, "ostest", "ostest", false)
		if err != nil {
			return nil, err
		}
		return s.WithType(protocol), nil
	case SWIFT2D:
		srv, err := swifttest.NewSwiftServer("localhost")
		if err != nil {
			return nil, fmt.Errorf("failed to start swift server: %w", err)
		}
		f.t.Cleanup(srv.Close)
		conn := &swift.Connection{
			UserName: swifttest.TEST_ACCOUNT,
			ApiKey:   swifttest.TEST_ACCOUNT,
			AuthUrl:  srv.AuthURL,
		}
		return objectstore.NewSwiftStorage(ctx, conn, bucket)
	}
	return nil, fmt.Errorf("unknown backend %q", backend)
}
