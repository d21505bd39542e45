package provider

import (
	"context"
	"io"
)

// Optional provider capability interfaces.
//
// Read-only callers only need Provider. The file storage service needs the
// full ObjectStore set.

// ObjectGetter can download objects as a stream.
type ObjectGetter interface {
	GetObject(ctx context.Context, key string) (body io.ReadCloser, contentLength int64, err error)
}

// ObjectPutter can create/overwrite objects.
//
// contentLength is -1 when unknown; implementations that need a length must
// receive a seekable body.
type ObjectPutter interface {
	PutObject(ctx context.Context, key string, body io.Reader, contentLength int64) error
}

// ObjectCopier performs a server-side copy within the bound bucket.
type ObjectCopier interface {
	CopyObject(ctx context.Context, srcKey, dstKey string) error
}

// ObjectDeleter can delete objects.
type ObjectDeleter interface {
	DeleteObject(ctx context.Context, key string) error
}

// BatchDeleter removes many objects in as few requests as the backend allows.
//
// A non-nil error means at least one key was not removed; the result still
// lists the keys that were.
type BatchDeleter interface {
	DeleteObjects(ctx context.Context, keys []string) (*DeleteResult, error)
}

// DeleteResult reports the outcome of a batch delete.
type DeleteResult struct {
	// Deleted are the keys the backend confirmed as removed.
	Deleted []string
}

// BucketManager can probe for and create the bound bucket.
type BucketManager interface {
	BucketExists(ctx context.Context) (bool, error)
	CreateBucket(ctx context.Context) error
}

// ObjectStore is the full capability set used by the file storage service.
type ObjectStore interface {
	Provider
	ObjectGetter
	ObjectPutter
	ObjectCopier
	ObjectDeleter
	BatchDeleter
	BucketManager
}
