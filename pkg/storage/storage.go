// Package storage exposes a bucket as a flat file store with wildcard
// listing, resumable paging and boolean point operations.
//
// Point operations (save, copy, rename, delete, info, stream) log failures
// and report them as false or nil results. Only argument validation, bucket
// setup at construction, listing failures and batch deletes return errors.
package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// FileStorage is a file store bound to a single bucket. It holds no mutable
// state after construction and is safe for concurrent use.
type FileStorage struct {
	store      provider.ObjectStore
	bucket     string
	logger     *zap.Logger
	serializer Serializer
	limiter    *rate.Limiter
	bufferMax  int64
}

// Option configures a FileStorage.
type Option func(*FileStorage)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *FileStorage) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSerializer sets the serializer used by SaveObject and GetObject. The
// default is JSON.
func WithSerializer(sz Serializer) Option {
	return func(s *FileStorage) {
		if sz != nil {
			s.serializer = sz
		}
	}
}

// WithListRateLimit paces provider list calls to rps requests per second.
// Zero or negative disables pacing.
func WithListRateLimit(rps float64) Option {
	return func(s *FileStorage) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			s.limiter = nil
		}
	}
}

// WithBufferMaxMemory caps how much of a non-seekable upload is held in
// memory before it is spooled to a temp file.
func WithBufferMaxMemory(bytes int64) Option {
	return func(s *FileStorage) {
		if bytes > 0 {
			s.bufferMax = bytes
		}
	}
}

// bucketNamer is implemented by adapters that know their bucket name.
type bucketNamer interface {
	Bucket() string
}

// New binds store and makes sure its bucket exists, creating it when the
// provider reports it absent.
func New(ctx context.Context, store provider.ObjectStore, opts ...Option) (*FileStorage, error) {
	if store == nil {
		return nil, &ArgumentError{Name: "store"}
	}

	s := &FileStorage{
		store:      store,
		logger:     zap.NewNop(),
		serializer: JSONSerializer{},
		bufferMax:  DefaultBufferMaxMemory,
	}
	if bn, ok := store.(bucketNamer); ok {
		s.bucket = bn.Bucket()
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("bucket", s.bucket))

	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStorage) ensureBucket(ctx context.Context) error {
	s.logger.Debug("Checking if bucket exists")
	exists, err := s.store.BucketExists(ctx)
	if err != nil {
		if provider.Classify(err) != provider.StatusAbsent {
			return fmt.Errorf("check bucket %s: %w", s.bucket, err)
		}
		s.logger.Debug("Bucket probe reported not found", zap.Error(err))
		exists = false
	}
	if exists {
		return nil
	}

	s.logger.Info("Creating bucket")
	if err := s.store.CreateBucket(ctx); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	s.logger.Info("Created bucket")
	return nil
}

// Bucket returns the bound bucket name, or "" when the adapter does not
// report one.
func (s *FileStorage) Bucket() string { return s.bucket }

// Store returns the underlying adapter.
func (s *FileStorage) Store() provider.ObjectStore { return s.store }

// Serializer returns the serializer used by SaveObject and GetObject.
func (s *FileStorage) Serializer() Serializer { return s.serializer }

// Close releases the adapter.
func (s *FileStorage) Close() error {
	return s.store.Close()
}

// ErrInvalidArgument is matched by every ArgumentError.
var ErrInvalidArgument = errors.New("invalid argument")

// ArgumentError reports a missing or malformed argument. It is returned
// before any provider call is made.
type ArgumentError struct {
	Name   string
	Reason string
}

func (e *ArgumentError) Error() string {
	if e.Reason == "" {
		return e.Name + " is required"
	}
	return e.Name + ": " + e.Reason
}

func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

func requirePath(name, path string) error {
	if path == "" {
		return &ArgumentError{Name: name}
	}
	return nil
}
