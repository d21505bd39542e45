// Package s3 implements the provider interfaces for AWS S3 and S3-compatible
// stores, including the Aliyun OSS S3 endpoint.
package s3

import "strings"

// Config configures an S3 provider.
//
// Credentials come from AccessKeyID/SecretAccessKey when both are set
// (typically parsed from a connection string). Otherwise the AWS SDK default
// chain applies: environment, shared config profile, instance role.
//
// When Endpoint is set no default region is applied, since most
// S3-compatible stores ignore it.
type Config struct {
	// Bucket is the bucket name (required).
	Bucket string

	// Region is the signing region. Defaults to us-east-1 for AWS when
	// neither config nor environment provide one.
	Region string

	// Endpoint is a custom endpoint for S3-compatible stores. A missing
	// scheme defaults to https, so "oss-cn-hangzhou.aliyuncs.com" works.
	Endpoint string

	// Profile is the AWS shared config profile, when credentials are not explicit.
	Profile string

	// AccessKeyID is an explicit access key. If set, SecretAccessKey must also be set.
	AccessKeyID string

	// SecretAccessKey is an explicit secret key. Required if AccessKeyID is set.
	SecretAccessKey string

	// ForcePathStyle forces path-style URLs (bucket in path, not subdomain).
	ForcePathStyle bool

	// MaxKeys is the default batch size for List operations.
	// Zero uses 1000. Values over 1000 are clamped.
	MaxKeys int
}

// DefaultMaxKeys is the default batch size for List operations.
const DefaultMaxKeys = 1000

// MaxAllowedKeys is the maximum batch size S3 returns per ListObjectsV2 call
// and the maximum key count per DeleteObjects request.
const MaxAllowedKeys = 1000

// DefaultAWSRegion is the fallback region for AWS S3 when not specified.
const DefaultAWSRegion = "us-east-1"

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Bucket) == "" {
		return &ConfigError{Field: "Bucket", Message: "bucket name is required"}
	}

	if (c.AccessKeyID != "") != (c.SecretAccessKey != "") {
		return &ConfigError{
			Field:   "AccessKeyID/SecretAccessKey",
			Message: "both access key ID and secret access key must be provided together",
		}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "s3 config: " + e.Field + ": " + e.Message
}

// normalizeEndpoint adds an https scheme to a bare host.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" || strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "https://" + endpoint
}
