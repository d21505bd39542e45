// Package connstr parses and renders storage connection strings of the form
//
//	AccessKey=AKIA...;SecretKey=...;EndPoint=https://s3.example.com;Bucket=media
//
// Keys are matched case-insensitively against a small alias table. Parse
// accepts the credential and endpoint keys, ParseStorage additionally accepts
// Bucket. Any other key is an error naming it.
package connstr

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultBucket is used when a connection string names no bucket.
const DefaultBucket = "storage"

// ErrEmpty is returned for an empty connection string.
var ErrEmpty = errors.New("connection string is empty")

// UnknownOptionError reports a key that no alias row recognizes.
type UnknownOptionError struct {
	Key string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("the option '%s' cannot be recognized in connection string", e.Key)
}

// Options holds the parsed connection settings. The zero value is valid and
// renders as an empty string.
type Options struct {
	AccessKey string
	SecretKey string
	Endpoint  string

	// Bucket is empty unless set explicitly; see BucketName.
	Bucket string
}

// BucketName returns Bucket, or DefaultBucket when unset.
func (o Options) BucketName() string {
	if o.Bucket == "" {
		return DefaultBucket
	}
	return o.Bucket
}

// String renders the populated fields in a fixed order:
// AccessKey, SecretKey, EndPoint, Bucket. Every field ends with ';'.
func (o Options) String() string {
	return o.render(o.SecretKey)
}

// Redacted is String with the secret masked, for logs.
func (o Options) Redacted() string {
	if o.SecretKey == "" {
		return o.render("")
	}
	return o.render("****")
}

func (o Options) render(secret string) string {
	var b strings.Builder
	write := func(key, value string) {
		if value == "" {
			return
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(value)
		b.WriteByte(';')
	}
	write("AccessKey", o.AccessKey)
	write("SecretKey", secret)
	write("EndPoint", o.Endpoint)
	write("Bucket", o.Bucket)
	return b.String()
}

type field int

const (
	fieldAccessKey field = iota
	fieldSecretKey
	fieldEndpoint
	fieldBucket
)

// option is one row of the alias table.
type option struct {
	field   field
	aliases []string
}

var baseOptions = []option{
	{fieldAccessKey, []string{"AccessKey", "Access Key", "AccessKeyId", "Access Key Id", "Id"}},
	{fieldSecretKey, []string{"SecretKey", "Secret Key", "SecretAccessKey", "Secret Access Key", "AccessKeySecret", "Access Key Secret", "Secret"}},
	{fieldEndpoint, []string{"EndPoint", "End Point"}},
}

var storageOptions = append(baseOptions[:len(baseOptions):len(baseOptions)],
	option{fieldBucket, []string{"Bucket"}},
)

var legacyOptions = append(baseOptions[:len(baseOptions):len(baseOptions)],
	option{fieldEndpoint, []string{"Address"}},
)

// Parse reads a connection string with AccessKey, SecretKey and EndPoint
// entries separated by ';'.
func Parse(s string) (Options, error) {
	return parse(s, ";", baseOptions, true)
}

// ParseStorage is Parse plus the Bucket entry.
func ParseStorage(s string) (Options, error) {
	return parse(s, ";", storageOptions, true)
}

// ParseLegacy reads the older credential format: entries may be separated by
// ',' or ';', Address is accepted for the endpoint, and unknown keys are
// skipped instead of rejected.
func ParseLegacy(s string) (Options, error) {
	return parse(s, ",;", legacyOptions, false)
}

func parse(s, separators string, table []option, strict bool) (Options, error) {
	var opts Options
	if strings.TrimSpace(s) == "" {
		return opts, ErrEmpty
	}

	entries := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(separators, r)
	})
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		f, found := lookup(table, key)
		if !found {
			if strict {
				return Options{}, &UnknownOptionError{Key: key}
			}
			continue
		}
		opts.set(f, value)
	}
	return opts, nil
}

func lookup(table []option, key string) (field, bool) {
	for _, row := range table {
		for _, alias := range row.aliases {
			if strings.EqualFold(alias, key) {
				return row.field, true
			}
		}
	}
	return 0, false
}

func (o *Options) set(f field, value string) {
	switch f {
	case fieldAccessKey:
		o.AccessKey = value
	case fieldSecretKey:
		o.SecretKey = value
	case fieldEndpoint:
		o.Endpoint = value
	case fieldBucket:
		o.Bucket = value
	}
}
