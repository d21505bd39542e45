package match

import (
	"regexp"
	"strings"
)

// Criteria is the listing request derived from a search pattern.
type Criteria struct {
	// Prefix is sent to the provider. Empty means the whole bucket. It never
	// contains a wildcard.
	Prefix string

	// Pattern filters listed keys client-side. Nil when the search pattern
	// had no wildcard.
	Pattern *regexp.Regexp
}

// Resolve derives listing criteria from a search pattern.
//
// An empty pattern lists everything. A pattern without '*' is a plain
// prefix. Otherwise '*' matches any run of characters (including '/' and the
// empty string), everything else matches literally, and the whole key must
// match. The prefix is the pattern up to and including the last '/' before
// the first '*':
//
//	""              → prefix "",       no pattern
//	"docs/a.txt"    → prefix "docs/a.txt"
//	"docs/*.txt"    → prefix "docs/",  ^docs/.*\.txt$
//	"a/*/c/*.log"   → prefix "a/",     ^a/.*/c/.*\.log$
//	"*.json"        → prefix "",       ^.*\.json$
func Resolve(pattern string) Criteria {
	if pattern == "" {
		return Criteria{}
	}

	normalized := NormalizePath(pattern)
	star := strings.IndexByte(normalized, '*')
	if star < 0 {
		return Criteria{Prefix: normalized}
	}

	prefix := ""
	if slash := strings.LastIndexByte(normalized[:star], '/'); slash >= 0 {
		prefix = normalized[:slash+1]
	}

	return Criteria{
		Prefix:  prefix,
		Pattern: compileWildcard(normalized),
	}
}

// compileWildcard builds ^literal(.*literal)*$ from a '*' pattern.
func compileWildcard(pattern string) *regexp.Regexp {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	// (?s) so a wildcard also spans newlines, which keys may contain.
	return regexp.MustCompile("(?s)^" + strings.Join(parts, ".*") + "$")
}

// HasPattern reports whether client-side filtering is needed.
func (c Criteria) HasPattern() bool {
	return c.Pattern != nil
}

// Match reports whether key satisfies the criteria's pattern. Keys are
// assumed to already start with Prefix, as returned by the provider.
func (c Criteria) Match(key string) bool {
	return c.Pattern == nil || c.Pattern.MatchString(key)
}

// String renders the criteria for logs.
func (c Criteria) String() string {
	if c.Pattern == nil {
		return "prefix=" + c.Prefix
	}
	return "prefix=" + c.Prefix + " pattern=" + c.Pattern.String()
}
