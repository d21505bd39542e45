package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps user config dirs, .env files and stray env vars out of the
// test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, spec := range getEnvSpecs() {
		t.Setenv(spec.Name, "")
		require.NoError(t, os.Unsetenv(spec.Name))
	}

	dir := t.TempDir()
	t.Chdir(dir)

	SetConfigFile("")
	return dir
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadDefaults", func(t *testing.T) {
		isolate(t)
		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "", cfg.Storage.ConnectionString)
		assert.Equal(t, "s3", cfg.Storage.Provider)
		assert.True(t, cfg.Storage.UseSSL)
		assert.Equal(t, 1000, cfg.Storage.MaxKeys)
		assert.Equal(t, time.Duration(0), cfg.Storage.Timeout)

		assert.Equal(t, 100, cfg.Listing.PageSize)
		assert.Equal(t, 0.0, cfg.Listing.RateLimit)
		assert.Empty(t, cfg.Listing.Excludes)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "console", cfg.Logging.Format)

		assert.Equal(t, int64(16<<20), cfg.Upload.BufferMaxMemoryBytes)
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		isolate(t)
		overrides := map[string]any{
			"storage": map[string]any{
				"provider": "file",
			},
			"logging": map[string]any{
				"level": "debug",
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)
		assert.Equal(t, "file", cfg.Storage.Provider)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "console", cfg.Logging.Format)
		assert.Equal(t, 100, cfg.Listing.PageSize)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		isolate(t)
		t.Setenv("NIMBUSFS_CONNECTION_STRING", "EndPoint=/data;Bucket=media")
		t.Setenv("NIMBUSFS_LOG_LEVEL", "warn")
		t.Setenv("NIMBUSFS_LISTING_PAGE_SIZE", "25")
		t.Setenv("NIMBUSFS_LISTING_EXCLUDES", "**/*.tmp,cache/**")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "EndPoint=/data;Bucket=media", cfg.Storage.ConnectionString)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.Equal(t, 25, cfg.Listing.PageSize)
		assert.Equal(t, []string{"**/*.tmp", "cache/**"}, cfg.Listing.Excludes)
	})

	t.Run("ConfigPrecedence", func(t *testing.T) {
		isolate(t)
		t.Setenv("NIMBUSFS_PAGE_SIZE", "40")

		cfg, err := Load(ctx, map[string]any{"listing": map[string]any{"page_size": 50}})
		require.NoError(t, err)
		assert.Equal(t, 50, cfg.Listing.PageSize)

		cfg, err = Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 40, cfg.Listing.PageSize)
	})

	t.Run("ConfigFile", func(t *testing.T) {
		dir := isolate(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "nimbusfs.yaml"), []byte(`
storage:
  provider: minio
  region: eu-west-1
  timeout: 30s
listing:
  page_size: 10
`), 0o600))
		t.Setenv("NIMBUSFS_REGION", "us-east-2")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "minio", cfg.Storage.Provider)
		assert.Equal(t, "us-east-2", cfg.Storage.Region, "env beats file")
		assert.Equal(t, 30*time.Second, cfg.Storage.Timeout)
		assert.Equal(t, 10, cfg.Listing.PageSize)
	})

	t.Run("ExplicitConfigFile", func(t *testing.T) {
		dir := isolate(t)
		path := filepath.Join(dir, "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("logging:\n  format: json\n"), 0o600))
		SetConfigFile(path)
		defer SetConfigFile("")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "json", cfg.Logging.Format)

		SetConfigFile(filepath.Join(dir, "missing.yaml"))
		_, err = Load(ctx)
		assert.Error(t, err)
	})

	t.Run("DotEnv", func(t *testing.T) {
		dir := isolate(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("NIMBUSFS_PROVIDER=swift\n"), 0o600))
		t.Cleanup(func() { _ = os.Unsetenv("NIMBUSFS_PROVIDER") })

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "swift", cfg.Storage.Provider)
	})
}

func TestLoad_Invalid(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		overrides map[string]any
	}{
		{"unknown provider", map[string]any{"storage": map[string]any{"provider": "gcs"}}},
		{"zero page size", map[string]any{"listing": map[string]any{"page_size": 0}}},
		{"negative rate", map[string]any{"listing": map[string]any{"rate_limit": -1.0}}},
		{"negative timeout", map[string]any{"storage": map[string]any{"timeout": "-1s"}}},
		{"negative buffer", map[string]any{"upload": map[string]any{"buffer_max_memory_bytes": -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			_, err := Load(ctx, tt.overrides)
			assert.Error(t, err)
		})
	}
}

func TestGetConfig(t *testing.T) {
	isolate(t)
	cfg, err := Load(context.Background(), map[string]any{"listing": map[string]any{"page_size": 7}})
	require.NoError(t, err)

	retrieved := GetConfig()
	require.NotNil(t, retrieved)
	assert.Equal(t, cfg.Listing.PageSize, retrieved.Listing.PageSize)
}

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	assert.Equal(t, "s3", v.GetString("storage.provider"))
	assert.Equal(t, 1000, v.GetInt("storage.max_keys"))
	assert.Equal(t, 100, v.GetInt("listing.page_size"))
	assert.Equal(t, "info", v.GetString("logging.level"))
	assert.Equal(t, "console", v.GetString("logging.format"))
}

func TestEnvSpecs(t *testing.T) {
	specs := getEnvSpecs()
	require.NotEmpty(t, specs)

	names := make(map[string]bool)
	for _, spec := range specs {
		names[spec.Name] = true
		assert.Contains(t, spec.Name, "NIMBUSFS_")
		assert.NotEmpty(t, spec.Path, "env var %s should have a path", spec.Name)
	}
	assert.True(t, names["NIMBUSFS_CONNECTION_STRING"])
	assert.True(t, names["NIMBUSFS_LOG_LEVEL"])
}

func TestFlatten(t *testing.T) {
	got := flatten("", map[string]any{
		"a": map[string]any{"b": 1, "c": map[string]any{"d": "x"}},
		"e": true,
	})
	assert.Equal(t, map[string]any{"a.b": 1, "a.c.d": "x", "e": true}, got)
}
