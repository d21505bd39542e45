package storage

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/pkg/match"
	"github.com/3leaps/nimbusfs/pkg/provider"
)

// Unbounded as a page size puts every match on a single terminal page.
const Unbounded = math.MaxInt

// maxListBatch is the largest MaxKeys a listing asks for. Larger page sizes
// leave the batch to the provider default.
const maxListBatch = 1000

// DefaultPageSize is the page size used when callers have no preference.
const DefaultPageSize = 100

// Page is one page of a paged listing.
type Page struct {
	Files []FileSpec

	// HasMore reports whether another page follows. When false Next is nil.
	HasMore bool

	// Next resumes the listing at the following page.
	Next *Cursor

	// Partial marks a page cut short by cancellation. Its contents are a
	// best-effort prefix of the full page.
	Partial bool
}

func emptyPage() *Page {
	return &Page{Files: []FileSpec{}}
}

// ListOptions selects the objects returned by GetFileList.
type ListOptions struct {
	// Pattern is a search pattern where '*' matches any run of characters.
	// Empty lists the whole bucket.
	Pattern string

	// Limit caps the number of results. Zero means no limit, negative
	// returns nothing.
	Limit int

	// Skip drops that many matches before results are collected.
	Skip int

	// Excludes are doublestar globs; matching keys are dropped.
	Excludes []string
}

// keyFilter combines search criteria with optional exclusions.
type keyFilter struct {
	criteria match.Criteria
	excludes *match.ExcludeSet
}

func newKeyFilter(pattern string, excludes []string) (keyFilter, error) {
	f := keyFilter{criteria: match.Resolve(pattern)}
	if len(excludes) > 0 {
		set, err := match.NewExcludeSet(excludes)
		if err != nil {
			return keyFilter{}, &ArgumentError{Name: "excludes", Reason: err.Error()}
		}
		f.excludes = set
	}
	return f, nil
}

func (f keyFilter) match(key string) bool {
	return f.criteria.Match(key) && !f.excludes.Excluded(key)
}

// GetPagedFileList returns the first page of objects matching pattern. A
// pageSize of zero or less yields an empty terminal page without contacting
// the provider.
func (s *FileStorage) GetPagedFileList(ctx context.Context, pageSize int, pattern string, excludes ...string) (*Page, error) {
	return s.FetchPage(ctx, Cursor{
		Pattern:  pattern,
		Excludes: excludes,
		PageSize: pageSize,
		Page:     1,
	})
}

// NextPage fetches the page after page. On a terminal or nil page it returns
// an empty terminal page.
func (s *FileStorage) NextPage(ctx context.Context, page *Page) (*Page, error) {
	if page == nil || !page.HasMore || page.Next == nil {
		return emptyPage(), nil
	}
	return s.FetchPage(ctx, *page.Next)
}

// FetchPage fetches the page described by cur.
//
// Each provider call asks for PageSize+1 keys, so the first key of the next
// page is seen without an extra round trip. The returned cursor points at
// the provider batch holding that key. Page sizes past maxListBatch use the
// provider's default batch.
//
// Cancellation is checked between provider calls. A call already in flight
// completes and its keys are kept. FetchPage then returns what it has
// gathered as a Partial page along with ctx.Err().
func (s *FileStorage) FetchPage(ctx context.Context, cur Cursor) (*Page, error) {
	if cur.PageSize <= 0 {
		return emptyPage(), nil
	}
	if cur.Offset < 0 {
		return nil, &ArgumentError{Name: "cursor", Reason: "negative offset"}
	}
	if cur.Page < 1 {
		cur.Page = 1
	}
	filter, err := newKeyFilter(cur.Pattern, cur.Excludes)
	if err != nil {
		return nil, err
	}

	batch := 0
	if cur.PageSize < maxListBatch {
		batch = cur.PageSize + 1
	}

	s.logger.Debug("Getting file list",
		zap.String("pattern", cur.Pattern),
		zap.String("prefix", filter.criteria.Prefix),
		zap.Int("page", cur.Page),
		zap.Int("page_size", cur.PageSize))

	files := make([]FileSpec, 0, min(cur.PageSize, 1024))
	marker := cur.Marker
	skip := cur.Offset

	for {
		if err := s.waitList(ctx); err != nil {
			return &Page{Files: files, Partial: true}, err
		}

		res, err := s.store.List(context.WithoutCancel(ctx), provider.ListOptions{
			Prefix:  filter.criteria.Prefix,
			Marker:  marker,
			MaxKeys: batch,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return &Page{Files: files, Partial: true}, ctxErr
			}
			return nil, fmt.Errorf("list %q: %w", filter.criteria.Prefix, err)
		}

		// seen counts matches in this batch, skipped or kept.
		seen := 0
		for _, obj := range res.Objects {
			if !filter.match(obj.Key) {
				continue
			}
			if skip > 0 {
				skip--
				seen++
				continue
			}
			if len(files) == cur.PageSize {
				next := cur
				next.Page++
				next.Marker = marker
				next.Offset = seen
				return &Page{Files: files, HasMore: true, Next: &next}, nil
			}
			files = append(files, fileSpecFromSummary(obj))
			seen++
		}

		if res.NextMarker == "" || res.NextMarker == marker {
			break
		}
		marker = res.NextMarker
	}

	return &Page{Files: files}, nil
}

// GetFileList returns every object matching opts, after Skip and up to Limit.
func (s *FileStorage) GetFileList(ctx context.Context, opts ListOptions) ([]FileSpec, error) {
	if opts.Limit < 0 {
		return []FileSpec{}, nil
	}
	if opts.Skip < 0 {
		return nil, &ArgumentError{Name: "skip", Reason: "must not be negative"}
	}
	filter, err := newKeyFilter(opts.Pattern, opts.Excludes)
	if err != nil {
		return nil, err
	}

	objs, err := s.listAll(ctx, filter, opts.Limit, opts.Skip)
	if err != nil {
		return nil, err
	}
	return fileSpecsFromSummaries(objs), nil
}

// listAll gathers matches until skip+limit are held (everything when limit
// is zero), then applies skip and limit once. Cancellation aborts it before
// the next provider call.
func (s *FileStorage) listAll(ctx context.Context, filter keyFilter, limit, skip int) ([]provider.ObjectSummary, error) {
	total := Unbounded
	batch := 0
	if limit > 0 && skip < Unbounded-limit {
		total = skip + limit
		batch = min(total, maxListBatch)
	}

	s.logger.Debug("Getting file list",
		zap.String("prefix", filter.criteria.Prefix),
		zap.Stringer("criteria", filter.criteria),
		zap.Int("limit", limit),
		zap.Int("skip", skip))

	var objs []provider.ObjectSummary
	marker := ""
	for {
		if err := s.waitList(ctx); err != nil {
			return nil, err
		}

		res, err := s.store.List(context.WithoutCancel(ctx), provider.ListOptions{
			Prefix:  filter.criteria.Prefix,
			Marker:  marker,
			MaxKeys: batch,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("list %q: %w", filter.criteria.Prefix, err)
		}
		for _, obj := range res.Objects {
			if filter.match(obj.Key) {
				objs = append(objs, obj)
			}
		}

		if len(objs) >= total || res.NextMarker == "" || res.NextMarker == marker {
			break
		}
		marker = res.NextMarker
	}

	if skip >= len(objs) {
		return []provider.ObjectSummary{}, nil
	}
	objs = objs[skip:]
	if limit > 0 && len(objs) > limit {
		objs = objs[:limit]
	}
	return objs, nil
}

// waitList gates each provider list call on cancellation and, when set, the
// rate limiter.
func (s *FileStorage) waitList(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}
