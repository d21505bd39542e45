package match

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExcludeSet(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		wantLen  int
		wantErr  bool
	}{
		{"nil", nil, 0, false},
		{"empty strings skipped", []string{"", ""}, 0, false},
		{"valid patterns", []string{"**/*.tmp", "cache/**"}, 2, false},
		{"invalid pattern", []string{"**/*.tmp", "[invalid"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewExcludeSet(tt.patterns)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, s)
				var pe *PatternError
				require.True(t, errors.As(err, &pe))
				assert.Equal(t, "[invalid", pe.Pattern)
				assert.True(t, errors.Is(err, ErrInvalidPattern))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, s.Len())
		})
	}
}

func TestExcludeSet_Excluded(t *testing.T) {
	s, err := NewExcludeSet([]string{"**/*.tmp", "cache/**", "logs\\2024\\app.log", "data/file\\*.txt"})
	require.NoError(t, err)

	tests := []struct {
		key  string
		want bool
	}{
		{"a.tmp", true},
		{"deep/nested/a.tmp", true},
		{"a.txt", false},
		{"cache/x", true},
		{"cache/a/b/c", true},
		{"cachex/a", false},
		{"logs/2024/app.log", true},
		{"logs/2025/app.log", false},
		{"data/file*.txt", true},
		{"data/file1.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Excluded(tt.key))
		})
	}
}

func TestExcludeSet_Nil(t *testing.T) {
	var s *ExcludeSet
	assert.False(t, s.Excluded("anything"))
	assert.Equal(t, 0, s.Len())
	assert.Nil(t, s.Patterns())
}

func TestExcludeSet_PatternsCopy(t *testing.T) {
	s, err := NewExcludeSet([]string{"tmp\\a.tmp"})
	require.NoError(t, err)

	got := s.Patterns()
	assert.Equal(t, []string{"tmp/a.tmp"}, got)
	got[0] = "mutated"
	assert.Equal(t, []string{"tmp/a.tmp"}, s.Patterns())
}

func TestPatternError(t *testing.T) {
	err := &PatternError{Pattern: "[bad", Err: ErrInvalidPattern}
	assert.Equal(t, "pattern [bad: invalid glob pattern", err.Error())
	assert.True(t, errors.Is(err, ErrInvalidPattern))
}
