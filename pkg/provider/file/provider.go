// Package file implements the provider interfaces over a local directory.
//
// Each bucket is a subdirectory of BaseDir and keys are slash-separated
// paths relative to it. It backs local development and end-to-end tests of
// the storage service.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/multierr"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// DefaultMaxKeys is the default batch size for List operations.
const DefaultMaxKeys = 1000

// Provider implements provider.ObjectStore for a local directory.
type Provider struct {
	root    string
	bucket  string
	maxKeys int
}

var _ provider.ObjectStore = (*Provider)(nil)

// Config configures a file provider.
type Config struct {
	// BaseDir holds one directory per bucket.
	BaseDir string

	// Bucket is the directory under BaseDir used as the bucket.
	Bucket string

	// MaxKeys is the default and largest batch size for List operations.
	MaxKeys int
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseDir) == "" {
		return fmt.Errorf("base dir is required")
	}
	if strings.TrimSpace(c.Bucket) == "" || strings.ContainsAny(c.Bucket, `/\`) || c.Bucket == "." || c.Bucket == ".." {
		return fmt.Errorf("invalid bucket name %q", c.Bucket)
	}
	return nil
}

func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	return &Provider{
		root:    filepath.Join(filepath.Clean(cfg.BaseDir), cfg.Bucket),
		bucket:  cfg.Bucket,
		maxKeys: maxKeys,
	}, nil
}

// Bucket returns the bound bucket name.
func (p *Provider) Bucket() string { return p.bucket }

func (p *Provider) Close() error { return nil }

// List returns keys under opts.Prefix in lexical order, strictly after
// opts.Marker. The marker handed back is the last key returned.
func (p *Provider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	maxKeys := opts.MaxKeys
	if maxKeys <= 0 || maxKeys > p.maxKeys {
		maxKeys = p.maxKeys
	}

	keys, err := p.collectKeys(opts.Prefix)
	if err != nil {
		return nil, p.wrapError("List", opts.Prefix, err)
	}
	sort.Strings(keys)

	start := 0
	if opts.Marker != "" {
		start = sort.Search(len(keys), func(i int) bool { return keys[i] > opts.Marker })
	}
	end := min(start+maxKeys, len(keys))

	objects := make([]provider.ObjectSummary, 0, end-start)
	for _, k := range keys[start:end] {
		st, err := os.Stat(p.fullPath(k))
		if err != nil || st.IsDir() {
			continue
		}
		objects = append(objects, provider.ObjectSummary{Key: k, Size: st.Size(), LastModified: st.ModTime()})
	}

	res := &provider.ListResult{Objects: objects}
	if end < len(keys) {
		res.IsTruncated = true
		res.NextMarker = keys[end-1]
	}
	return res, nil
}

func (p *Provider) Head(ctx context.Context, key string) (*provider.ObjectMeta, error) {
	_ = ctx
	full, err := p.keyPath(key)
	if err != nil {
		return nil, p.wrapError("Head", key, err)
	}
	st, err := os.Stat(full)
	if err != nil {
		return nil, p.wrapError("Head", key, err)
	}
	if st.IsDir() {
		return nil, p.wrapError("Head", key, provider.ErrNotFound)
	}

	return &provider.ObjectMeta{
		ObjectSummary: provider.ObjectSummary{Key: key, Size: st.Size(), LastModified: st.ModTime()},
	}, nil
}

func (p *Provider) GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	_ = ctx
	full, err := p.keyPath(key)
	if err != nil {
		return nil, 0, p.wrapError("GetObject", key, err)
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, 0, p.wrapError("GetObject", key, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, p.wrapError("GetObject", key, err)
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, 0, p.wrapError("GetObject", key, provider.ErrNotFound)
	}
	return f, st.Size(), nil
}

// PutObject writes body to a temp file next to the target and renames it
// into place.
func (p *Provider) PutObject(ctx context.Context, key string, body io.Reader, contentLength int64) error {
	_ = contentLength
	if err := p.bucketPresent(); err != nil {
		return p.wrapError("PutObject", key, err)
	}
	full, err := p.keyPath(key)
	if err != nil {
		return p.wrapError("PutObject", key, err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return p.wrapError("PutObject", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".nimbusfs-put-*")
	if err != nil {
		return p.wrapError("PutObject", key, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: body}); err != nil {
		return p.wrapError("PutObject", key, err)
	}
	if err := tmp.Close(); err != nil {
		return p.wrapError("PutObject", key, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		return p.wrapError("PutObject", key, err)
	}
	return nil
}

// CopyObject copies srcKey to dstKey through a temp file.
func (p *Provider) CopyObject(ctx context.Context, srcKey, dstKey string) error {
	body, size, err := p.GetObject(ctx, srcKey)
	if err != nil {
		var pe *provider.ProviderError
		if errors.As(err, &pe) {
			pe.Op = "CopyObject"
		}
		return err
	}
	defer func() { _ = body.Close() }()

	if err := p.PutObject(ctx, dstKey, body, size); err != nil {
		return err
	}
	return nil
}

// DeleteObject removes key. Deleting a missing key reports ErrNotFound.
func (p *Provider) DeleteObject(ctx context.Context, key string) error {
	_ = ctx
	full, err := p.keyPath(key)
	if err != nil {
		return p.wrapError("DeleteObject", key, err)
	}
	if err := os.Remove(full); err != nil {
		return p.wrapError("DeleteObject", key, err)
	}
	p.pruneEmptyDirs(filepath.Dir(full))
	return nil
}

// DeleteObjects removes each key; missing keys count as deleted, matching
// S3 multi-object delete.
func (p *Provider) DeleteObjects(ctx context.Context, keys []string) (*provider.DeleteResult, error) {
	result := &provider.DeleteResult{Deleted: make([]string, 0, len(keys))}
	var errs error
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return result, multierr.Append(errs, err)
		}
		err := p.DeleteObject(ctx, k)
		if err != nil && !errors.Is(err, provider.ErrNotFound) {
			errs = multierr.Append(errs, err)
			continue
		}
		result.Deleted = append(result.Deleted, k)
	}
	return result, errs
}

func (p *Provider) BucketExists(ctx context.Context) (bool, error) {
	_ = ctx
	err := p.bucketPresent()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, provider.ErrBucketNotFound):
		return false, nil
	default:
		return false, p.wrapError("BucketExists", "", err)
	}
}

func (p *Provider) CreateBucket(ctx context.Context) error {
	_ = ctx
	if err := os.MkdirAll(p.root, 0o755); err != nil {
		return p.wrapError("CreateBucket", "", err)
	}
	return nil
}

func (p *Provider) bucketPresent() error {
	st, err := os.Stat(p.root)
	if err != nil {
		if os.IsNotExist(err) {
			return provider.ErrBucketNotFound
		}
		return err
	}
	if !st.IsDir() {
		return fmt.Errorf("bucket path %s is not a directory", p.root)
	}
	return nil
}

// keyPath resolves key under the bucket root, rejecting traversal.
func (p *Provider) keyPath(key string) (string, error) {
	clean := filepath.Clean("/" + strings.TrimPrefix(key, "/"))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid key path %q", key)
	}
	return p.fullPath(clean), nil
}

func (p *Provider) fullPath(key string) string {
	return filepath.Join(p.root, filepath.FromSlash(key))
}

// collectKeys walks the deepest directory implied by prefix and keeps keys
// that start with it.
func (p *Provider) collectKeys(prefix string) ([]string, error) {
	if err := p.bucketPresent(); err != nil {
		return nil, err
	}

	dir := ""
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		dir = prefix[:i]
	}
	walkRoot := p.root
	if dir != "" {
		walkRoot = p.fullPath(dir)
	}
	if _, err := os.Stat(walkRoot); err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	var keys []string
	err := filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".nimbusfs-put-") {
			return nil
		}
		rel, err := filepath.Rel(p.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, prefix) {
			keys = append(keys, rel)
		}
		return nil
	})
	return keys, err
}

// pruneEmptyDirs removes now-empty parents up to the bucket root so that
// directories do not outlive their last key.
func (p *Provider) pruneEmptyDirs(dir string) {
	for dir != p.root && strings.HasPrefix(dir, p.root) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func (p *Provider) wrapError(op, key string, err error) error {
	wrapped := &provider.ProviderError{Op: op, Provider: provider.ProviderFile, Bucket: p.bucket, Key: key, Err: err}
	switch {
	case errors.Is(err, provider.ErrBucketNotFound), errors.Is(err, provider.ErrNotFound):
	case os.IsNotExist(err):
		wrapped.Err = provider.ErrNotFound
	case os.IsPermission(err):
		wrapped.Err = provider.ErrAccessDenied
	}
	return wrapped
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(b []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(b)
}
