// Package match turns user search patterns into listing criteria for object
// keys: a server-side prefix plus an optional anchored matcher, and an
// optional set of doublestar exclusions.
package match

import (
	"strings"
)

// Glob metacharacters that can be escaped with backslash in exclude patterns.
const globEscapable = `*?[]{}\`

// NormalizePath converts every backslash in a path or search pattern to a
// forward slash. Object paths never carry backslashes once normalized.
//
//	"docs\2024\*.txt" → "docs/2024/*.txt"
func NormalizePath(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// NormalizePattern converts a doublestar exclude pattern to canonical form.
//
// Unlike NormalizePath it keeps backslash escapes of glob metacharacters, so
// "logs/file\*.txt" still excludes a literal asterisk:
//
//	"tmp\cache\x.log"  → "tmp/cache/x.log"
//	"logs/file\*.txt" → "logs/file\*.txt"
func NormalizePattern(pattern string) string {
	if pattern == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(pattern))

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '\\' {
			result.WriteRune(r)
			continue
		}
		if i+1 < len(runes) && strings.ContainsRune(globEscapable, runes[i+1]) {
			result.WriteRune('\\')
			result.WriteRune(runes[i+1])
			i++
			continue
		}
		result.WriteRune('/')
	}

	return result.String()
}
