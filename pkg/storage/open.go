package storage

import (
	"context"
	"fmt"

	"github.com/3leaps/nimbusfs/pkg/connstr"
	"github.com/3leaps/nimbusfs/pkg/provider"
	"github.com/3leaps/nimbusfs/pkg/provider/file"
	"github.com/3leaps/nimbusfs/pkg/provider/minio"
	"github.com/3leaps/nimbusfs/pkg/provider/s3"
	"github.com/3leaps/nimbusfs/pkg/provider/swift"
)

// Config selects and configures the adapter behind Open.
type Config struct {
	// ConnectionString carries credentials, endpoint and bucket, e.g.
	// "AccessKey=...;SecretKey=...;EndPoint=...;Bucket=media".
	// For the file provider EndPoint is the base directory.
	ConnectionString string

	// Provider is one of s3, minio, swift or file. Empty means s3.
	Provider string

	Region         string
	ForcePathStyle bool
	UseSSL         bool

	// MaxKeys is the adapter's default list batch size.
	MaxKeys int
}

// Open parses cfg.ConnectionString, builds the adapter named by
// cfg.Provider and returns a FileStorage over it.
func Open(ctx context.Context, cfg Config, opts ...Option) (*FileStorage, error) {
	conn, err := connstr.ParseStorage(cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	kind, err := provider.ParseProviderType(cfg.Provider)
	if err != nil {
		return nil, err
	}

	store, err := newStore(ctx, kind, conn, cfg)
	if err != nil {
		return nil, err
	}

	fs, err := New(ctx, store, opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return fs, nil
}

func newStore(ctx context.Context, kind provider.ProviderType, conn connstr.Options, cfg Config) (provider.ObjectStore, error) {
	switch kind {
	case provider.ProviderS3:
		return s3.New(ctx, s3.Config{
			Bucket:          conn.BucketName(),
			Region:          cfg.Region,
			Endpoint:        conn.Endpoint,
			AccessKeyID:     conn.AccessKey,
			SecretAccessKey: conn.SecretKey,
			ForcePathStyle:  cfg.ForcePathStyle,
			MaxKeys:         cfg.MaxKeys,
		})
	case provider.ProviderMinIO:
		return minio.New(minio.Config{
			Bucket:    conn.BucketName(),
			Endpoint:  conn.Endpoint,
			AccessKey: conn.AccessKey,
			SecretKey: conn.SecretKey,
			UseSSL:    cfg.UseSSL,
			Region:    cfg.Region,
			MaxKeys:   cfg.MaxKeys,
		})
	case provider.ProviderSwift:
		return swift.New(ctx, swift.Config{
			Container: conn.BucketName(),
			AuthURL:   conn.Endpoint,
			UserName:  conn.AccessKey,
			APIKey:    conn.SecretKey,
			Region:    cfg.Region,
			MaxKeys:   cfg.MaxKeys,
		})
	case provider.ProviderFile:
		return file.New(file.Config{
			BaseDir: conn.Endpoint,
			Bucket:  conn.BucketName(),
			MaxKeys: cfg.MaxKeys,
		})
	default:
		return nil, &provider.UnsupportedProviderError{Name: string(kind)}
	}
}
