// Package config loads nimbusfs application configuration.
//
// Layers, lowest to highest: built-in defaults, the config file
// (nimbusfs.yaml), a .env file in the working directory, NIMBUSFS_*
// environment variables, then runtime overrides.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// AppName names the config file, config directory and env prefix.
const AppName = "nimbusfs"

// EnvPrefix is prepended to every environment variable.
const EnvPrefix = "NIMBUSFS"

// Config is the full application configuration.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Listing ListingConfig `mapstructure:"listing"`
	Logging LoggingConfig `mapstructure:"logging"`
	Upload  UploadConfig  `mapstructure:"upload"`
}

// StorageConfig selects the bucket and how to reach it.
type StorageConfig struct {
	ConnectionString string        `mapstructure:"connection_string"`
	Provider         string        `mapstructure:"provider"`
	Region           string        `mapstructure:"region"`
	ForcePathStyle   bool          `mapstructure:"force_path_style"`
	UseSSL           bool          `mapstructure:"use_ssl"`
	MaxKeys          int           `mapstructure:"max_keys"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

// ListingConfig tunes paged listing.
type ListingConfig struct {
	PageSize  int      `mapstructure:"page_size"`
	RateLimit float64  `mapstructure:"rate_limit"`
	Excludes  []string `mapstructure:"excludes"`
}

// LoggingConfig selects log level and encoding.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// UploadConfig tunes upload buffering.
type UploadConfig struct {
	BufferMaxMemoryBytes int64 `mapstructure:"buffer_max_memory_bytes"`
}

// EnvSpec maps a short environment variable to a config path.
type EnvSpec struct {
	Name string
	Path string
}

var (
	configMu   sync.RWMutex
	appConfig  *Config
	configFile string
)

// SetConfigFile pins the config file path. Empty restores discovery.
func SetConfigFile(path string) {
	configMu.Lock()
	defer configMu.Unlock()
	configFile = path
}

// GetConfig returns the most recently loaded configuration, or nil.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.connection_string", "")
	v.SetDefault("storage.provider", string(provider.ProviderS3))
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.force_path_style", false)
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.max_keys", 1000)
	v.SetDefault("storage.timeout", "0s")

	v.SetDefault("listing.page_size", 100)
	v.SetDefault("listing.rate_limit", 0.0)
	v.SetDefault("listing.excludes", []string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("upload.buffer_max_memory_bytes", 16<<20)
}

// getEnvSpecs lists the short environment variables. Every config key is
// also reachable as NIMBUSFS_<SECTION>_<KEY>.
func getEnvSpecs() []EnvSpec {
	return []EnvSpec{
		{Name: EnvPrefix + "_CONNECTION_STRING", Path: "storage.connection_string"},
		{Name: EnvPrefix + "_PROVIDER", Path: "storage.provider"},
		{Name: EnvPrefix + "_REGION", Path: "storage.region"},
		{Name: EnvPrefix + "_TIMEOUT", Path: "storage.timeout"},
		{Name: EnvPrefix + "_PAGE_SIZE", Path: "listing.page_size"},
		{Name: EnvPrefix + "_LOG_LEVEL", Path: "logging.level"},
		{Name: EnvPrefix + "_LOG_FORMAT", Path: "logging.format"},
	}
}

// getUserConfigPaths returns directories searched for nimbusfs.yaml after
// the working directory.
func getUserConfigPaths() []string {
	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, AppName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, "."+AppName))
	}
	return paths
}

// Load builds the configuration and makes it available through GetConfig.
// Each override is a nested map applied above every other layer.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	_ = ctx

	configMu.RLock()
	explicit := configFile
	configMu.RUnlock()

	v := viper.New()
	setDefaults(v)

	if err := readConfigFile(v, explicit); err != nil {
		return nil, err
	}

	// A missing .env is normal; values already in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, spec := range getEnvSpecs() {
		if err := v.BindEnv(spec.Path, EnvPrefix+"_"+envKey(spec.Path), spec.Name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", spec.Name, err)
		}
	}

	for _, o := range overrides {
		for key, value := range flatten("", o) {
			v.Set(key, value)
		}
	}

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()
	return &cfg, nil
}

func readConfigFile(v *viper.Viper, explicit string) error {
	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", explicit, err)
		}
		return nil
	}

	v.SetConfigName(AppName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	for _, p := range getUserConfigPaths() {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func envKey(path string) string {
	return strings.ToUpper(strings.ReplaceAll(path, ".", "_"))
}

// flatten turns {"a": {"b": 1}} into {"a.b": 1}.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = val
	}
	return out
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if _, err := provider.ParseProviderType(c.Storage.Provider); err != nil {
		return fmt.Errorf("storage.provider: %w", err)
	}
	if c.Storage.MaxKeys < 0 {
		return fmt.Errorf("storage.max_keys must not be negative")
	}
	if c.Storage.Timeout < 0 {
		return fmt.Errorf("storage.timeout must not be negative")
	}
	if c.Listing.PageSize <= 0 {
		return fmt.Errorf("listing.page_size must be positive")
	}
	if c.Listing.RateLimit < 0 {
		return fmt.Errorf("listing.rate_limit must not be negative")
	}
	if c.Upload.BufferMaxMemoryBytes < 0 {
		return fmt.Errorf("upload.buffer_max_memory_bytes must not be negative")
	}
	return nil
}
