package storage

import (
	"encoding/base64"
	"encoding/json"
	"math"
)

// Cursor identifies one page of a paged listing. It is a plain value that
// can be stored or sent elsewhere and handed back to FetchPage later.
type Cursor struct {
	Pattern  string   `json:"pattern,omitempty"`
	Excludes []string `json:"excludes,omitempty"`
	PageSize int      `json:"page_size"`

	// Page is the 1-based index of the page this cursor produces.
	Page int `json:"page"`

	// Marker is the provider marker to list from. Empty starts at the
	// beginning of the prefix.
	Marker string `json:"marker,omitempty"`

	// Offset is the number of matches after Marker that belong to earlier
	// pages.
	Offset int `json:"offset,omitempty"`
}

// Encode returns an opaque, URL-safe form of c.
func (c Cursor) Encode() string {
	// Marshal of this struct cannot fail.
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses a string produced by Cursor.Encode.
func DecodeCursor(s string) (Cursor, error) {
	var c Cursor
	if s == "" {
		return c, &ArgumentError{Name: "cursor"}
	}
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return c, &ArgumentError{Name: "cursor", Reason: "malformed encoding"}
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, &ArgumentError{Name: "cursor", Reason: "malformed payload"}
	}
	// The next page's cursor must stay representable.
	if c.PageSize <= 0 || c.Page < 1 || c.Page == math.MaxInt || c.Offset < 0 {
		return Cursor{}, &ArgumentError{Name: "cursor", Reason: "out of range"}
	}
	return c, nil
}
