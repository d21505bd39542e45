package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/3leaps/nimbusfs/pkg/match"
)

// Serializer encodes values stored with SaveObject.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONSerializer is the default serializer.
type JSONSerializer struct{}

func (JSONSerializer) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONSerializer) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// YAMLSerializer stores values as YAML documents.
type YAMLSerializer struct{}

func (YAMLSerializer) Marshal(v any) ([]byte, error)      { return yaml.Marshal(v) }
func (YAMLSerializer) Unmarshal(data []byte, v any) error { return yaml.Unmarshal(data, v) }

// SaveObject serializes v and saves it to path.
func (s *FileStorage) SaveObject(ctx context.Context, path string, v any) (bool, error) {
	if err := requirePath("path", path); err != nil {
		return false, err
	}
	data, err := s.serializer.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("serialize %s: %w", match.NormalizePath(path), err)
	}
	return s.SaveFile(ctx, path, bytes.NewReader(data))
}

// GetObject reads path and deserializes it into v. It returns false when the
// object cannot be read; a payload that does not decode is an error.
func (s *FileStorage) GetObject(ctx context.Context, path string, v any) (bool, error) {
	if v == nil {
		return false, &ArgumentError{Name: "value"}
	}
	body, err := s.GetFileStream(ctx, path)
	if err != nil || body == nil {
		return false, err
	}
	defer func() { _ = body.Close() }()

	key := match.NormalizePath(path)
	data, err := io.ReadAll(body)
	if err != nil {
		s.logger.Error("Unable to read file", zap.String("path", key), zap.Error(err))
		return false, nil
	}
	if err := s.serializer.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("deserialize %s: %w", key, err)
	}
	return true, nil
}
