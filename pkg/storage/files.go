package storage

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/3leaps/nimbusfs/pkg/match"
	"github.com/3leaps/nimbusfs/pkg/provider"
)

// Exists reports whether path holds an object. A not-found answer from the
// provider is false; any other failure is returned.
func (s *FileStorage) Exists(ctx context.Context, path string) (bool, error) {
	if err := requirePath("path", path); err != nil {
		return false, err
	}
	key := match.NormalizePath(path)
	s.logger.Debug("Checking if file exists", zap.String("path", key))

	_, err := s.store.Head(ctx, key)
	switch provider.Classify(err) {
	case provider.StatusOK:
		return true, nil
	case provider.StatusAbsent:
		s.logger.Debug("File does not exist", zap.String("path", key), zap.Error(err))
		return false, nil
	default:
		return false, fmt.Errorf("check %s exists: %w", key, err)
	}
}

// GetFileStream opens path for reading. When the object cannot be read the
// failure is logged and a nil reader is returned.
func (s *FileStorage) GetFileStream(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := requirePath("path", path); err != nil {
		return nil, err
	}
	key := match.NormalizePath(path)
	s.logger.Debug("Getting file stream", zap.String("path", key))

	body, _, err := s.store.GetObject(ctx, key)
	if err != nil {
		s.logFailure("Unable to get file stream", key, err)
		return nil, nil
	}
	return &loggedStream{ReadCloser: body, path: key, logger: s.logger}, nil
}

// loggedStream logs when the caller releases the stream.
type loggedStream struct {
	io.ReadCloser
	path   string
	logger *zap.Logger
}

func (l *loggedStream) Close() error {
	l.logger.Debug("Disposing file stream", zap.String("path", l.path))
	return l.ReadCloser.Close()
}

// GetFileInfo returns metadata for path, or nil when it cannot be fetched
// for any reason.
func (s *FileStorage) GetFileInfo(ctx context.Context, path string) (*FileSpec, error) {
	if err := requirePath("path", path); err != nil {
		return nil, err
	}
	key := match.NormalizePath(path)
	s.logger.Debug("Getting file info", zap.String("path", key))

	meta, err := s.store.Head(ctx, key)
	if err != nil {
		s.logFailure("Unable to get file info", key, err)
		return nil, nil
	}
	spec := fileSpecFromSummary(meta.ObjectSummary)
	spec.Path = key
	return &spec, nil
}

// SaveFile uploads r to path. A reader that cannot seek is buffered first
// so the upload has a known length; the buffer is released before SaveFile
// returns. Upload failures are logged and reported as false.
func (s *FileStorage) SaveFile(ctx context.Context, path string, r io.Reader) (bool, error) {
	if err := requirePath("path", path); err != nil {
		return false, err
	}
	if r == nil {
		return false, &ArgumentError{Name: "stream"}
	}
	key := match.NormalizePath(path)
	s.logger.Debug("Saving file", zap.String("path", key))

	body, err := asSeekable(r, s.bufferMax)
	if err != nil {
		s.logFailure("Error buffering file", key, err)
		return false, nil
	}
	defer func() {
		if cerr := body.Close(); cerr != nil {
			s.logger.Warn("Failed to release upload buffer", zap.String("path", key), zap.Error(cerr))
		}
	}()

	if err := s.store.PutObject(ctx, key, body.reader, body.size); err != nil {
		s.logFailure("Error saving file", key, err)
		return false, nil
	}
	return true, nil
}

// CopyFile copies path to targetPath on the provider side.
func (s *FileStorage) CopyFile(ctx context.Context, path, targetPath string) (bool, error) {
	if err := requirePath("path", path); err != nil {
		return false, err
	}
	if err := requirePath("targetPath", targetPath); err != nil {
		return false, err
	}
	src := match.NormalizePath(path)
	dst := match.NormalizePath(targetPath)
	s.logger.Info("Copying file", zap.String("path", src), zap.String("target", dst))

	if err := s.store.CopyObject(ctx, src, dst); err != nil {
		s.logger.Error("Error copying file",
			zap.String("path", src),
			zap.String("target", dst),
			zap.Error(err))
		return false, nil
	}
	return true, nil
}

// RenameFile copies path to newPath and then deletes path. It is true only
// when both steps succeed. If the delete fails the object exists under both
// names.
func (s *FileStorage) RenameFile(ctx context.Context, path, newPath string) (bool, error) {
	if err := requirePath("path", path); err != nil {
		return false, err
	}
	if err := requirePath("newPath", newPath); err != nil {
		return false, err
	}
	src := match.NormalizePath(path)
	dst := match.NormalizePath(newPath)
	s.logger.Info("Renaming file", zap.String("path", src), zap.String("new_path", dst))

	if ok, err := s.CopyFile(ctx, src, dst); !ok || err != nil {
		return false, err
	}
	return s.DeleteFile(ctx, src)
}

// DeleteFile removes path. Failures, including a missing object on
// providers that report one, are logged and reported as false.
func (s *FileStorage) DeleteFile(ctx context.Context, path string) (bool, error) {
	if err := requirePath("path", path); err != nil {
		return false, err
	}
	key := match.NormalizePath(path)
	s.logger.Debug("Deleting file", zap.String("path", key))

	if err := s.store.DeleteObject(ctx, key); err != nil {
		s.logFailure("Unable to delete file", key, err)
		return false, nil
	}
	return true, nil
}

// DeleteFiles deletes every object matching pattern in one batch request
// and returns how many were deleted. Empty pattern deletes the whole bucket.
// A failed batch is returned as an error together with the count of keys
// the provider did delete.
func (s *FileStorage) DeleteFiles(ctx context.Context, pattern string) (int, error) {
	filter, err := newKeyFilter(pattern, nil)
	if err != nil {
		return 0, err
	}
	objs, err := s.listAll(ctx, filter, 0, 0)
	if err != nil {
		return 0, err
	}

	s.logger.Info("Deleting files", zap.Int("count", len(objs)), zap.String("pattern", pattern))
	if len(objs) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(objs))
	for _, o := range objs {
		keys = append(keys, o.Key)
	}

	res, err := s.store.DeleteObjects(ctx, keys)
	deleted := 0
	if res != nil {
		deleted = len(res.Deleted)
	}
	if err != nil {
		return deleted, fmt.Errorf("delete files matching %q: %w", pattern, err)
	}

	s.logger.Debug("Finished deleting files", zap.Int("count", deleted), zap.String("pattern", pattern))
	return deleted, nil
}

// logFailure logs not-found at debug level and everything else as an error.
func (s *FileStorage) logFailure(msg, path string, err error) {
	if provider.Classify(err) == provider.StatusAbsent {
		s.logger.Debug(msg, zap.String("path", path), zap.Error(err))
		return
	}
	s.logger.Error(msg, zap.String("path", path), zap.Error(err))
}
