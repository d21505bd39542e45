package minio

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"go.uber.org/multierr"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// Provider implements provider.ObjectStore over a minio-go client.
type Provider struct {
	client  Client
	bucket  string
	region  string
	maxKeys int
}

var _ provider.ObjectStore = (*Provider)(nil)

// New creates a provider from cfg.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c, err := NewClient(cfg)
	if err != nil {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.ProviderMinIO, Bucket: cfg.Bucket, Err: err}
	}
	return NewWithClient(c, cfg), nil
}

// NewWithClient binds an existing client to cfg.Bucket.
func NewWithClient(c Client, cfg Config) *Provider {
	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	return &Provider{client: c, bucket: cfg.Bucket, region: cfg.Region, maxKeys: maxKeys}
}

// Bucket returns the bound bucket name.
func (p *Provider) Bucket() string { return p.bucket }

// List returns up to MaxKeys objects after opts.Marker.
//
// minio-go streams the whole listing through a channel, so the batch reads
// one extra entry to learn whether more remain and then stops the stream.
// The marker handed back is the last key returned (StartAfter semantics).
func (p *Provider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	maxKeys := opts.MaxKeys
	if maxKeys <= 0 || maxKeys > p.maxKeys {
		maxKeys = p.maxKeys
	}

	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := p.client.ListObjects(listCtx, p.bucket, minio.ListObjectsOptions{
		Prefix:     opts.Prefix,
		StartAfter: opts.Marker,
		Recursive:  true,
		MaxKeys:    maxKeys + 1,
	})

	result := &provider.ListResult{Objects: make([]provider.ObjectSummary, 0, maxKeys)}
	for info := range ch {
		if info.Err != nil {
			return nil, p.wrapError("List", "", info.Err)
		}
		if len(result.Objects) == maxKeys {
			result.IsTruncated = true
			break
		}
		result.Objects = append(result.Objects, provider.ObjectSummary{
			Key:          info.Key,
			Size:         info.Size,
			ETag:         info.ETag,
			LastModified: info.LastModified,
		})
	}

	if result.IsTruncated {
		result.NextMarker = result.Objects[len(result.Objects)-1].Key
	}
	return result, nil
}

// Head returns metadata for a single object.
func (p *Provider) Head(ctx context.Context, key string) (*provider.ObjectMeta, error) {
	info, err := p.client.StatObject(ctx, p.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, p.wrapError("Head", key, err)
	}
	return &provider.ObjectMeta{
		ObjectSummary: provider.ObjectSummary{
			Key:          key,
			Size:         info.Size,
			ETag:         info.ETag,
			LastModified: info.LastModified,
		},
		ContentType: info.ContentType,
		Metadata:    info.UserMetadata,
	}, nil
}

// GetObject opens a read stream for key.
func (p *Provider) GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	body, size, err := p.client.GetObject(ctx, p.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, p.wrapError("GetObject", key, err)
	}
	return body, size, nil
}

// PutObject uploads an object. A negative contentLength streams a
// multipart upload.
func (p *Provider) PutObject(ctx context.Context, key string, body io.Reader, contentLength int64) error {
	if _, err := p.client.PutObject(ctx, p.bucket, key, body, contentLength, minio.PutObjectOptions{}); err != nil {
		return p.wrapError("PutObject", key, err)
	}
	return nil
}

// CopyObject performs a server-side copy within the bucket.
func (p *Provider) CopyObject(ctx context.Context, srcKey, dstKey string) error {
	_, err := p.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: p.bucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: p.bucket, Object: srcKey},
	)
	if err != nil {
		return p.wrapError("CopyObject", srcKey, err)
	}
	return nil
}

// DeleteObject deletes an object.
func (p *Provider) DeleteObject(ctx context.Context, key string) error {
	if err := p.client.RemoveObject(ctx, p.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return p.wrapError("DeleteObject", key, err)
	}
	return nil
}

// DeleteObjects removes keys with the multi-object delete API. Every
// per-key failure is combined into the returned error.
func (p *Provider) DeleteObjects(ctx context.Context, keys []string) (*provider.DeleteResult, error) {
	// Queued up front so nothing blocks if the client stops reading early.
	objectsCh := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		objectsCh <- minio.ObjectInfo{Key: k}
	}
	close(objectsCh)

	failed := make(map[string]struct{})
	var errs error
	for rerr := range p.client.RemoveObjects(ctx, p.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		failed[rerr.ObjectName] = struct{}{}
		errs = multierr.Append(errs, p.wrapError("DeleteObjects", rerr.ObjectName, rerr.Err))
	}
	if err := ctx.Err(); err != nil {
		errs = multierr.Append(errs, err)
	}

	result := &provider.DeleteResult{Deleted: make([]string, 0, len(keys))}
	if ctx.Err() == nil {
		for _, k := range keys {
			if _, ok := failed[k]; !ok {
				result.Deleted = append(result.Deleted, k)
			}
		}
	}
	return result, errs
}

// BucketExists reports whether the bound bucket exists.
func (p *Provider) BucketExists(ctx context.Context) (bool, error) {
	ok, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		wrapped := p.wrapError("BucketExists", "", err)
		if provider.IsNotFound(wrapped) {
			return false, nil
		}
		return false, wrapped
	}
	return ok, nil
}

// CreateBucket creates the bound bucket. A bucket already owned by the
// caller counts as success.
func (p *Provider) CreateBucket(ctx context.Context) error {
	err := p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: p.region})
	if err == nil {
		return nil
	}
	if minio.ToErrorResponse(err).Code == "BucketAlreadyOwnedByYou" {
		return nil
	}
	return p.wrapError("CreateBucket", "", err)
}

// Close releases any resources held by the provider.
func (p *Provider) Close() error { return nil }

// wrapError maps minio error responses onto provider sentinels.
func (p *Provider) wrapError(op, key string, err error) error {
	wrapped := &provider.ProviderError{
		Op:       op,
		Provider: provider.ProviderMinIO,
		Bucket:   p.bucket,
		Key:      key,
		Err:      err,
	}

	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		resp = minio.ToErrorResponse(err)
	}

	switch resp.Code {
	case "NoSuchKey", "NotFound":
		wrapped.Err = provider.ErrNotFound
		return wrapped
	case "NoSuchBucket":
		wrapped.Err = provider.ErrBucketNotFound
		return wrapped
	case "AccessDenied":
		wrapped.Err = provider.ErrAccessDenied
		return wrapped
	case "InvalidAccessKeyId", "SignatureDoesNotMatch":
		wrapped.Err = provider.ErrInvalidCredentials
		return wrapped
	case "SlowDown", "SlowDownRead", "SlowDownWrite":
		wrapped.Err = provider.ErrThrottled
		return wrapped
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		wrapped.Err = provider.ErrNotFound
	case http.StatusForbidden:
		wrapped.Err = provider.ErrAccessDenied
	case http.StatusTooManyRequests:
		wrapped.Err = provider.ErrThrottled
	case http.StatusServiceUnavailable:
		wrapped.Err = provider.ErrProviderUnavailable
	}
	return wrapped
}
