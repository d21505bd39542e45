package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/nimbusfs/pkg/connstr"
	"github.com/3leaps/nimbusfs/pkg/provider"
)

func TestOpen_FileProvider(t *testing.T) {
	base := t.TempDir()
	ctx := context.Background()

	fs, err := Open(ctx, Config{
		ConnectionString: "EndPoint=" + base + ";Bucket=media",
		Provider:         "file",
	})
	require.NoError(t, err)
	defer func() { _ = fs.Close() }()
	assert.Equal(t, "media", fs.Bucket())

	ok, err := fs.SaveFile(ctx, "hello.txt", strings.NewReader("hi"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpen_DefaultBucket(t *testing.T) {
	fs, err := Open(context.Background(), Config{
		ConnectionString: "EndPoint=" + t.TempDir(),
		Provider:         "file",
	})
	require.NoError(t, err)
	assert.Equal(t, connstr.DefaultBucket, fs.Bucket())
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, Config{ConnectionString: "Nope=1", Provider: "file"})
	var uerr *connstr.UnknownOptionError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, "Nope", uerr.Key)

	_, err = Open(ctx, Config{ConnectionString: "", Provider: "file"})
	assert.ErrorIs(t, err, connstr.ErrEmpty)

	_, err = Open(ctx, Config{ConnectionString: "EndPoint=/tmp", Provider: "gcs"})
	var perr *provider.UnsupportedProviderError
	assert.True(t, errors.As(err, &perr))
}
