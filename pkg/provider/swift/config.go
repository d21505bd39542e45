// Package swift implements the provider interfaces for OpenStack Swift.
// A bucket maps to a Swift container.
package swift

import "strings"

// DefaultMaxKeys is the default batch size for List operations.
// Swift caps container listings at 10000 entries per request.
const DefaultMaxKeys = 1000

// MaxAllowedKeys is the largest listing limit Swift accepts.
const MaxAllowedKeys = 10000

// Config configures a Swift provider.
type Config struct {
	// Container is the container name (required).
	Container string

	// AuthURL is the Keystone or TempAuth endpoint (required).
	AuthURL string

	// UserName and APIKey authenticate against AuthURL.
	UserName string
	APIKey   string

	// Tenant, Domain and Region are optional Keystone v3 scoping values.
	Tenant string
	Domain string
	Region string

	// MaxKeys is the default batch size for List operations.
	MaxKeys int
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Container) == "" {
		return &ConfigError{Field: "Container", Message: "container name is required"}
	}
	if strings.TrimSpace(c.AuthURL) == "" {
		return &ConfigError{Field: "AuthURL", Message: "auth url is required"}
	}
	if c.UserName == "" || c.APIKey == "" {
		return &ConfigError{Field: "UserName/APIKey", Message: "user name and api key are required"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "swift config: " + e.Field + ": " + e.Message
}
