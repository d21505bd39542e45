// Package minio implements the provider interfaces on top of minio-go, for
// MinIO and other S3-compatible stores that minio-go speaks to directly.
package minio

import "strings"

// DefaultMaxKeys is the default batch size for List operations.
const DefaultMaxKeys = 1000

// Config configures a MinIO provider.
type Config struct {
	// Bucket is the bucket name (required).
	Bucket string

	// Endpoint is host[:port]. An http:// or https:// scheme is accepted and
	// decides UseSSL.
	Endpoint string

	// AccessKey and SecretKey are static V4 credentials.
	AccessKey string
	SecretKey string

	// UseSSL selects https when Endpoint has no scheme.
	UseSSL bool

	// Region is passed to the client and to MakeBucket.
	Region string

	// MaxKeys is the default batch size for List operations.
	MaxKeys int
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Bucket) == "" {
		return &ConfigError{Field: "Bucket", Message: "bucket name is required"}
	}
	if strings.TrimSpace(c.Endpoint) == "" {
		return &ConfigError{Field: "Endpoint", Message: "endpoint is required"}
	}
	if (c.AccessKey != "") != (c.SecretKey != "") {
		return &ConfigError{Field: "AccessKey/SecretKey", Message: "both access key and secret key must be provided together"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "minio config: " + e.Field + ": " + e.Message
}

// splitEndpoint strips a URL scheme from endpoint, reporting whether it
// asked for TLS. Without a scheme, useSSL is returned unchanged.
func splitEndpoint(endpoint string, useSSL bool) (string, bool) {
	endpoint = strings.TrimSpace(endpoint)
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "https://"), "/"), true
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "http://"), "/"), false
	default:
		return strings.TrimSuffix(endpoint, "/"), useSSL
	}
}
