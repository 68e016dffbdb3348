package objectstore

import (
	"context"
	"fmt"

	"github.com/ncw/swift"
	"github.com/user/objectstorage/internal/config"
)

// NewStorage builds the storage client selected by cfg.Type.
func NewStorage(ctx context.Context, cfg config.ObjectStoreConfig) (Storage, error) {
	switch cfg.Type {
	case "s3", "cos", "s3a":
		s, err := NewS3Storage(
			ctx,
			cfg.S3.Endpoint,
			cfg.S3.Region,
			cfg.Bucket,
			cfg.S3.AccessKeyID,
			cfg.S3.SecretAccessKey,
			cfg.S3.UseSSL,
		)
		if err != nil {
			return nil, err
		}
		return s.WithType(cfg.Type), nil
	case "swift", "swift2d":
		conn := &swift.Connection{
			UserName:    cfg.Swift.UserName,
			ApiKey:      cfg.Swift.APIKey,
			AuthUrl:     cfg.Swift.AuthURL,
			Tenant:      cfg.Swift.Tenant,
			Domain:      cfg.Swift.Domain,
			Region:      cfg.Swift.Region,
			AuthVersion: cfg.Swift.AuthVersion,
		}
		return NewSwiftStorage(ctx, conn, cfg.Bucket)
	case "local":
		dir := cfg.LocalDir
		if dir == "" {
			dir = "objects"
		}
		return NewLocalStorage(dir)
	case "memory", "":
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
