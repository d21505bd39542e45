package match

import (
	"errors"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrInvalidPattern is returned when a glob pattern cannot be compiled.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// PatternError wraps pattern-related errors with context.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// ExcludeSet drops keys matching any of a set of doublestar globs
// ("**/*.tmp", "cache/**"). It is applied after Criteria and is safe for
// concurrent use.
type ExcludeSet struct {
	patterns []string
}

// NewExcludeSet validates and normalizes patterns. An empty list yields a
// set that excludes nothing.
func NewExcludeSet(patterns []string) (*ExcludeSet, error) {
	normalized := make([]string, 0, len(patterns))
	for _, raw := range patterns {
		if raw == "" {
			continue
		}
		p := NormalizePattern(raw)
		if !doublestar.ValidatePattern(p) {
			return nil, &PatternError{Pattern: raw, Err: ErrInvalidPattern}
		}
		normalized = append(normalized, p)
	}
	return &ExcludeSet{patterns: normalized}, nil
}

// Excluded reports whether key matches any exclude pattern. A nil set
// excludes nothing.
func (s *ExcludeSet) Excluded(key string) bool {
	if s == nil {
		return false
	}
	for _, p := range s.patterns {
		// Patterns were validated in NewExcludeSet.
		if ok, err := doublestar.Match(p, key); err == nil && ok {
			return true
		}
	}
	return false
}

// Len returns the number of patterns.
func (s *ExcludeSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.patterns)
}

// Patterns returns the normalized patterns.
func (s *ExcludeSet) Patterns() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.patterns))
	copy(out, s.patterns)
	return out
}
