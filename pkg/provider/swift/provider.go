package swift

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/ncw/swift/v2"
	"go.uber.org/multierr"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// Provider implements provider.ObjectStore for one Swift container.
type Provider struct {
	client    Client
	container string
	maxKeys   int
}

var _ provider.ObjectStore = (*Provider)(nil)

// New authenticates and binds a provider to cfg.Container.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, wrapError("New", cfg.Container, "", err)
	}
	return NewWithClient(c, cfg), nil
}

// NewWithClient binds an existing client to cfg.Container.
func NewWithClient(c Client, cfg Config) *Provider {
	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	return &Provider{client: c, container: cfg.Container, maxKeys: maxKeys}
}

// Bucket returns the bound container name.
func (p *Provider) Bucket() string { return p.container }

// List returns up to MaxKeys objects after opts.Marker. The listing asks
// for one extra entry to learn whether more remain; the marker handed back
// is the last name returned.
func (p *Provider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = p.maxKeys
	}
	maxKeys = min(maxKeys, MaxAllowedKeys-1)

	objs, err := p.client.Objects(ctx, p.container, &swift.ObjectsOpts{
		Prefix: opts.Prefix,
		Marker: opts.Marker,
		Limit:  maxKeys + 1,
	})
	if err != nil {
		return nil, p.wrapError("List", "", err)
	}

	result := &provider.ListResult{Objects: make([]provider.ObjectSummary, 0, min(len(objs), maxKeys))}
	if len(objs) > maxKeys {
		result.IsTruncated = true
		objs = objs[:maxKeys]
	}
	for _, o := range objs {
		if o.PseudoDirectory {
			continue
		}
		result.Objects = append(result.Objects, provider.ObjectSummary{
			Key:          o.Name,
			Size:         o.Bytes,
			ETag:         o.Hash,
			LastModified: o.LastModified,
		})
	}
	if result.IsTruncated {
		result.NextMarker = objs[len(objs)-1].Name
	}
	return result, nil
}

// Head returns metadata for a single object.
func (p *Provider) Head(ctx context.Context, key string) (*provider.ObjectMeta, error) {
	info, headers, err := p.client.Object(ctx, p.container, key)
	if err != nil {
		return nil, p.wrapError("Head", key, err)
	}
	return &provider.ObjectMeta{
		ObjectSummary: provider.ObjectSummary{
			Key:          key,
			Size:         info.Bytes,
			ETag:         info.Hash,
			LastModified: info.LastModified,
		},
		ContentType: info.ContentType,
		Metadata:    headers.ObjectMetadata(),
	}, nil
}

// GetObject opens a read stream for key.
func (p *Provider) GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	body, size, err := p.client.Open(ctx, p.container, key)
	if err != nil {
		return nil, 0, p.wrapError("GetObject", key, err)
	}
	return body, size, nil
}

// PutObject uploads an object. Swift streams with chunked transfer, so the
// length is not needed.
func (p *Provider) PutObject(ctx context.Context, key string, body io.Reader, contentLength int64) error {
	_ = contentLength
	if _, err := p.client.ObjectPut(ctx, p.container, key, body, false, "", "", nil); err != nil {
		return p.wrapError("PutObject", key, err)
	}
	return nil
}

// CopyObject performs a server-side copy within the container.
func (p *Provider) CopyObject(ctx context.Context, srcKey, dstKey string) error {
	if _, err := p.client.ObjectCopy(ctx, p.container, srcKey, p.container, dstKey, nil); err != nil {
		return p.wrapError("CopyObject", srcKey, err)
	}
	return nil
}

// DeleteObject deletes an object.
func (p *Provider) DeleteObject(ctx context.Context, key string) error {
	if err := p.client.ObjectDelete(ctx, p.container, key); err != nil {
		return p.wrapError("DeleteObject", key, err)
	}
	return nil
}

// DeleteObjects removes keys with the bulk-delete middleware. Names Swift
// reports as already missing count as deleted.
func (p *Provider) DeleteObjects(ctx context.Context, keys []string) (*provider.DeleteResult, error) {
	result := &provider.DeleteResult{Deleted: make([]string, 0, len(keys))}
	if len(keys) == 0 {
		return result, nil
	}

	res, err := p.client.BulkDelete(ctx, p.container, keys)
	if err != nil {
		return result, p.wrapError("DeleteObjects", "", err)
	}

	var errs error
	for _, k := range keys {
		if ferr, failed := res.Errors[k]; failed {
			errs = multierr.Append(errs, p.wrapError("DeleteObjects", k, ferr))
			continue
		}
		result.Deleted = append(result.Deleted, k)
	}
	return result, errs
}

// BucketExists reports whether the container exists.
func (p *Provider) BucketExists(ctx context.Context) (bool, error) {
	_, _, err := p.client.Container(ctx, p.container)
	if err == nil {
		return true, nil
	}
	wrapped := p.wrapError("BucketExists", "", err)
	if provider.IsNotFound(wrapped) {
		return false, nil
	}
	return false, wrapped
}

// CreateBucket creates the container. Swift container PUT is idempotent.
func (p *Provider) CreateBucket(ctx context.Context) error {
	if err := p.client.ContainerCreate(ctx, p.container, nil); err != nil {
		return p.wrapError("CreateBucket", "", err)
	}
	return nil
}

// Close releases any resources held by the provider.
func (p *Provider) Close() error { return nil }

func (p *Provider) wrapError(op, key string, err error) error {
	return wrapError(op, p.container, key, err)
}

// wrapError maps swift errors onto provider sentinels.
func wrapError(op, container, key string, err error) error {
	wrapped := &provider.ProviderError{
		Op:       op,
		Provider: provider.ProviderSwift,
		Bucket:   container,
		Key:      key,
		Err:      err,
	}

	switch {
	case errors.Is(err, swift.ContainerNotFound):
		wrapped.Err = provider.ErrBucketNotFound
		return wrapped
	case errors.Is(err, swift.ObjectNotFound):
		wrapped.Err = provider.ErrNotFound
		return wrapped
	}

	var se *swift.Error
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusNotFound:
			wrapped.Err = provider.ErrNotFound
		case http.StatusUnauthorized:
			wrapped.Err = provider.ErrInvalidCredentials
		case http.StatusForbidden:
			wrapped.Err = provider.ErrAccessDenied
		case http.StatusTooManyRequests:
			wrapped.Err = provider.ErrThrottled
		case http.StatusServiceUnavailable:
			wrapped.Err = provider.ErrProviderUnavailable
		}
	}
	return wrapped
}
