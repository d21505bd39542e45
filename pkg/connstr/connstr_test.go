package connstr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AccessKeyAliases(t *testing.T) {
	for _, key := range []string{"AccessKey", "AccessKeyId", "Access Key", "Access Key ID", "Id", "accessKey", "access key", "access key id", "id"} {
		t.Run(key, func(t *testing.T) {
			opts, err := Parse(key + "=TestAccessKey;SecretKey=TestSecretKey;")
			require.NoError(t, err)
			assert.Equal(t, "TestAccessKey", opts.AccessKey)
			assert.Equal(t, "TestSecretKey", opts.SecretKey)
			assert.Empty(t, opts.Endpoint)
		})
	}
}

func TestParse_SecretKeyAliases(t *testing.T) {
	for _, key := range []string{"SecretKey", "Secret Key", "SecretAccessKey", "Secret Access Key", "AccessKeySecret", "Access Key Secret", "Secret", "secretKey", "secret key", "secret"} {
		t.Run(key, func(t *testing.T) {
			opts, err := Parse("AccessKey=TestAccessKey;" + key + "=TestSecretKey;")
			require.NoError(t, err)
			assert.Equal(t, "TestAccessKey", opts.AccessKey)
			assert.Equal(t, "TestSecretKey", opts.SecretKey)
		})
	}
}

func TestParse_EndpointAliases(t *testing.T) {
	for _, key := range []string{"EndPoint", "End Point", "endPoint", "end point"} {
		t.Run(key, func(t *testing.T) {
			opts, err := Parse("AccessKey=TestAccessKey;SecretKey=TestSecretKey;" + key + "=TestEndPoint;")
			require.NoError(t, err)
			assert.Equal(t, "TestEndPoint", opts.Endpoint)
		})
	}
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := Parse("wrongaccess=TestAccessKey;SecretKey=TestSecretKey")
	require.Error(t, err)

	var uerr *UnknownOptionError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, "wrongaccess", uerr.Key)
	assert.Equal(t, "the option 'wrongaccess' cannot be recognized in connection string", err.Error())
}

func TestParse_BucketOnlyForStorage(t *testing.T) {
	_, err := Parse("AccessKey=a;Bucket=b")
	var uerr *UnknownOptionError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, "Bucket", uerr.Key)

	for _, key := range []string{"Bucket", "bucket"} {
		opts, err := ParseStorage("AccessKey=TestAccessKey;SecretKey=TestSecretKey;" + key + "=TestBucket")
		require.NoError(t, err)
		assert.Equal(t, "TestBucket", opts.BucketName())
		assert.Empty(t, opts.Endpoint)
	}
}

func TestParse_Tolerances(t *testing.T) {
	opts, err := ParseStorage("  AccessKey = a ; ;noequals; SecretKey=b=c ;EndPoint=http://h:9000")
	require.NoError(t, err)
	assert.Equal(t, "a", opts.AccessKey)
	assert.Equal(t, "b=c", opts.SecretKey, "value keeps everything after the first '='")
	assert.Equal(t, "http://h:9000", opts.Endpoint)
}

func TestParse_Empty(t *testing.T) {
	for _, s := range []string{"", "   "} {
		_, err := Parse(s)
		assert.ErrorIs(t, err, ErrEmpty)
		_, err = ParseStorage(s)
		assert.ErrorIs(t, err, ErrEmpty)
		_, err = ParseLegacy(s)
		assert.ErrorIs(t, err, ErrEmpty)
	}
}

func TestParseLegacy(t *testing.T) {
	opts, err := ParseLegacy("Id=ak, Secret=sk; Address=oss.example.com, Region=cn-hangzhou")
	require.NoError(t, err)
	assert.Equal(t, "ak", opts.AccessKey)
	assert.Equal(t, "sk", opts.SecretKey)
	assert.Equal(t, "oss.example.com", opts.Endpoint)
	assert.Empty(t, opts.Bucket)
}

func TestBucketName_Default(t *testing.T) {
	opts, err := ParseStorage("AccessKey=a;SecretKey=b")
	require.NoError(t, err)
	assert.Equal(t, DefaultBucket, opts.BucketName())
	assert.Equal(t, "storage", Options{}.BucketName())
}

func TestString(t *testing.T) {
	opts := Options{AccessKey: "TestAccessKey", SecretKey: "TestSecretKey", Endpoint: "TestEndPoint"}
	assert.Equal(t, "AccessKey=TestAccessKey;SecretKey=TestSecretKey;EndPoint=TestEndPoint;", opts.String())

	opts.Bucket = "TestBucket"
	assert.Equal(t, "AccessKey=TestAccessKey;SecretKey=TestSecretKey;EndPoint=TestEndPoint;Bucket=TestBucket;", opts.String())

	assert.Equal(t, "Bucket=b;", Options{Bucket: "b"}.String())
	assert.Empty(t, Options{}.String())
}

func TestString_RoundTrip(t *testing.T) {
	in := Options{AccessKey: "a", SecretKey: "b", Endpoint: "https://e", Bucket: "c"}
	out, err := ParseStorage(in.String())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRedacted(t *testing.T) {
	opts := Options{AccessKey: "a", SecretKey: "secret", Bucket: "b"}
	assert.Equal(t, "AccessKey=a;SecretKey=****;Bucket=b;", opts.Redacted())
	assert.NotContains(t, opts.Redacted(), "secret")
	assert.Equal(t, "AccessKey=a;", Options{AccessKey: "a"}.Redacted())
}
