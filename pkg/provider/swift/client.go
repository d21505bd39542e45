package swift

import (
	"context"
	"io"

	"github.com/ncw/swift/v2"
)

// Client is the subset of *swift.Connection the provider calls.
type Client interface {
	Objects(ctx context.Context, container string, opts *swift.ObjectsOpts) ([]swift.Object, error)
	Object(ctx context.Context, container, objectName string) (swift.Object, swift.Headers, error)
	// Open returns a read stream for the object and its length.
	Open(ctx context.Context, container, objectName string) (io.ReadCloser, int64, error)
	ObjectPut(ctx context.Context, container, objectName string, contents io.Reader, checkHash bool, hash, contentType string, h swift.Headers) (swift.Headers, error)
	ObjectCopy(ctx context.Context, srcContainer, srcObjectName, dstContainer, dstObjectName string, h swift.Headers) (swift.Headers, error)
	ObjectDelete(ctx context.Context, container, objectName string) error
	BulkDelete(ctx context.Context, container string, objectNames []string) (swift.BulkDeleteResult, error)
	Container(ctx context.Context, container string) (swift.Container, swift.Headers, error)
	ContainerCreate(ctx context.Context, container string, h swift.Headers) error
}

// NewClient authenticates a swift connection for cfg.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	c := &swift.Connection{
		AuthUrl:  cfg.AuthURL,
		UserName: cfg.UserName,
		ApiKey:   cfg.APIKey,
		Tenant:   cfg.Tenant,
		Domain:   cfg.Domain,
		Region:   cfg.Region,
	}
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}
	return &connection{Connection: c}, nil
}

type connection struct {
	*swift.Connection
}

func (c *connection) Open(ctx context.Context, container, objectName string) (io.ReadCloser, int64, error) {
	f, _, err := c.ObjectOpen(ctx, container, objectName, false, nil)
	if err != nil {
		return nil, 0, err
	}
	size, err := f.Length(ctx)
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	return f, size, nil
}
