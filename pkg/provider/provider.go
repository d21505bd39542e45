// Package provider defines the object client contract that nimbusfs storage
// operations are built on.
//
// A Provider is bound to a single bucket at construction. The core interface
// covers listing and metadata; write, copy, delete and bucket management are
// capability interfaces so that read-only tooling can work with a partial
// implementation.
package provider

import (
	"context"
	"time"
)

// Provider abstracts bucket listing and metadata retrieval.
//
// Implementations should:
//   - Resume listing from an opaque marker
//   - Translate native failures into *ProviderError with a sentinel Err
//   - Be safe for concurrent use
type Provider interface {
	// List returns a batch of objects with the given prefix, starting after
	// opts.Marker. Use NextMarker from ListResult for subsequent batches.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Head returns metadata for a single object.
	// Returns ErrNotFound if the object does not exist.
	Head(ctx context.Context, key string) (*ObjectMeta, error)

	// Close releases any resources held by the provider.
	Close() error
}

// ListOptions configures a List operation.
type ListOptions struct {
	// Prefix filters results to keys starting with this value.
	// Empty string lists all objects.
	Prefix string

	// Marker resumes listing from a previous ListResult.
	// Empty string starts from the beginning.
	Marker string

	// MaxKeys limits the number of objects returned per batch.
	// Zero uses the provider default (typically 1000).
	MaxKeys int
}

// ListResult contains a batch of objects from a List operation.
type ListResult struct {
	// Objects contains the object summaries for this batch, in key order.
	Objects []ObjectSummary

	// NextMarker is used to retrieve the next batch.
	// Empty string means the provider has nothing more to return.
	NextMarker string

	// IsTruncated indicates whether more results are available.
	IsTruncated bool
}

// ObjectSummary contains basic metadata returned from List operations.
type ObjectSummary struct {
	// Key is the full object key (path) in the bucket.
	Key string

	// Size is the object size in bytes.
	Size int64

	// ETag is the entity tag, typically an MD5 hash of the object.
	ETag string

	// LastModified is when the object was last modified.
	LastModified time.Time
}

// ObjectMeta contains full metadata for a single object.
// Returned by Head operations.
type ObjectMeta struct {
	ObjectSummary

	// ContentType is the MIME type of the object.
	ContentType string

	// Metadata contains user-defined metadata key-value pairs.
	Metadata map[string]string
}

// ProviderType identifies an object storage backend.
type ProviderType string

const (
	// ProviderS3 represents AWS S3 or S3-compatible storage (including the
	// Aliyun OSS S3 endpoint).
	ProviderS3 ProviderType = "s3"

	// ProviderMinIO represents MinIO accessed through minio-go.
	ProviderMinIO ProviderType = "minio"

	// ProviderSwift represents an OpenStack Swift object store.
	ProviderSwift ProviderType = "swift"

	// ProviderFile represents a local directory used as a bucket.
	ProviderFile ProviderType = "file"
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	return string(p)
}

// ParseProviderType maps a configured provider name to a ProviderType.
// An empty name selects ProviderS3.
func ParseProviderType(name string) (ProviderType, error) {
	switch ProviderType(name) {
	case "", ProviderS3:
		return ProviderS3, nil
	case ProviderMinIO, ProviderSwift, ProviderFile:
		return ProviderType(name), nil
	default:
		return "", &UnsupportedProviderError{Name: name}
	}
}

// UnsupportedProviderError is returned for an unknown provider name.
type UnsupportedProviderError struct {
	Name string
}

func (e *UnsupportedProviderError) Error() string {
	return "unsupported provider: " + e.Name
}
