package storage

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// fakeStore is an in-memory provider.ObjectStore with a configurable list
// batch size and failure hooks.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	// batch caps keys per List call, like a provider's max keys.
	batch int

	bucketExists bool
	bucketErr    error
	createErr    error
	created      bool

	headErr   error
	getErr    error
	putErr    error
	copyErr   error
	deleteErr error
	batchErr  error

	listCalls []provider.ListOptions
	onList    func(call int)
	puts      []int64

	// listErr sees the context List received and may fail the call after
	// the batch is computed.
	listErr func(ctx context.Context, call int) error
}

var _ provider.ObjectStore = (*fakeStore)(nil)

func newFakeStore(keys ...string) *fakeStore {
	f := &fakeStore{objects: map[string][]byte{}, batch: 1000, bucketExists: true}
	for _, k := range keys {
		f.objects[k] = []byte(k)
	}
	return f
}

func (f *fakeStore) Bucket() string { return "fake" }

func (f *fakeStore) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	f.mu.Lock()
	f.listCalls = append(f.listCalls, opts)
	call := len(f.listCalls)
	hook := f.onList
	fail := f.listErr

	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		if strings.HasPrefix(k, opts.Prefix) && k > opts.Marker {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	n := f.batch
	if opts.MaxKeys > 0 && opts.MaxKeys < n {
		n = opts.MaxKeys
	}
	res := &provider.ListResult{}
	for i, k := range keys {
		if i == n {
			res.IsTruncated = true
			res.NextMarker = keys[i-1]
			break
		}
		res.Objects = append(res.Objects, provider.ObjectSummary{
			Key:          k,
			Size:         int64(len(f.objects[k])),
			LastModified: time.Unix(1700000000, 0).UTC(),
		})
	}
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if fail != nil {
		if err := fail(ctx, call); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (f *fakeStore) Head(ctx context.Context, key string) (*provider.ObjectMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.headErr != nil {
		return nil, f.headErr
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, notFound("Head", key)
	}
	return &provider.ObjectMeta{ObjectSummary: provider.ObjectSummary{Key: key, Size: int64(len(data))}}, nil
}

func (f *fakeStore) GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, 0, f.getErr
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, 0, notFound("GetObject", key)
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (f *fakeStore) PutObject(ctx context.Context, key string, body io.Reader, contentLength int64) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	f.puts = append(f.puts, contentLength)
	return nil
}

func (f *fakeStore) CopyObject(ctx context.Context, srcKey, dstKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.copyErr != nil {
		return f.copyErr
	}
	data, ok := f.objects[srcKey]
	if !ok {
		return notFound("CopyObject", srcKey)
	}
	f.objects[dstKey] = append([]byte(nil), data...)
	return nil
}

func (f *fakeStore) DeleteObject(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.objects[key]; !ok {
		return notFound("DeleteObject", key)
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) DeleteObjects(ctx context.Context, keys []string) (*provider.DeleteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := &provider.DeleteResult{}
	for i, k := range keys {
		// With batchErr set, only the first key goes through.
		if f.batchErr != nil && i > 0 {
			break
		}
		delete(f.objects, k)
		res.Deleted = append(res.Deleted, k)
	}
	return res, f.batchErr
}

func (f *fakeStore) BucketExists(ctx context.Context) (bool, error) {
	return f.bucketExists, f.bucketErr
}

func (f *fakeStore) CreateBucket(ctx context.Context) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = true
	f.bucketExists = true
	return nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

func (f *fakeStore) listCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listCalls)
}

func notFound(op, key string) error {
	return &provider.ProviderError{Op: op, Provider: "fake", Bucket: "fake", Key: key, Err: provider.ErrNotFound}
}
