package swift

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/ncw/swift/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) Objects(ctx context.Context, container string, opts *swift.ObjectsOpts) ([]swift.Object, error) {
	args := m.Called(ctx, container, opts)
	objs, _ := args.Get(0).([]swift.Object)
	return objs, args.Error(1)
}

func (m *mockClient) Object(ctx context.Context, container, objectName string) (swift.Object, swift.Headers, error) {
	args := m.Called(ctx, container, objectName)
	h, _ := args.Get(1).(swift.Headers)
	return args.Get(0).(swift.Object), h, args.Error(2)
}

func (m *mockClient) Open(ctx context.Context, container, objectName string) (io.ReadCloser, int64, error) {
	args := m.Called(ctx, container, objectName)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Get(1).(int64), args.Error(2)
}

func (m *mockClient) ObjectPut(ctx context.Context, container, objectName string, contents io.Reader, checkHash bool, hash, contentType string, h swift.Headers) (swift.Headers, error) {
	args := m.Called(ctx, container, objectName, contents)
	return nil, args.Error(0)
}

func (m *mockClient) ObjectCopy(ctx context.Context, srcContainer, srcObjectName, dstContainer, dstObjectName string, h swift.Headers) (swift.Headers, error) {
	args := m.Called(ctx, srcContainer, srcObjectName, dstContainer, dstObjectName)
	return nil, args.Error(0)
}

func (m *mockClient) ObjectDelete(ctx context.Context, container, objectName string) error {
	return m.Called(ctx, container, objectName).Error(0)
}

func (m *mockClient) BulkDelete(ctx context.Context, container string, objectNames []string) (swift.BulkDeleteResult, error) {
	args := m.Called(ctx, container, objectNames)
	return args.Get(0).(swift.BulkDeleteResult), args.Error(1)
}

func (m *mockClient) Container(ctx context.Context, container string) (swift.Container, swift.Headers, error) {
	args := m.Called(ctx, container)
	return swift.Container{}, nil, args.Error(0)
}

func (m *mockClient) ContainerCreate(ctx context.Context, container string, h swift.Headers) error {
	return m.Called(ctx, container).Error(0)
}

func newTestProvider(c Client) *Provider {
	return NewWithClient(c, Config{Container: "storage"})
}

func TestConfig_Validate(t *testing.T) {
	ok := Config{Container: "storage", AuthURL: "http://keystone/v3", UserName: "u", APIKey: "k"}
	assert.NoError(t, ok.Validate())

	missing := ok
	missing.AuthURL = ""
	err := missing.Validate()
	require.Error(t, err)
	assert.Equal(t, "swift config: AuthURL: auth url is required", err.Error())

	noContainer := ok
	noContainer.Container = ""
	assert.Error(t, noContainer.Validate())

	noKey := ok
	noKey.APIKey = ""
	assert.Error(t, noKey.Validate())
}

func TestList(t *testing.T) {
	c := new(mockClient)
	c.On("Objects", mock.Anything, "storage", &swift.ObjectsOpts{Prefix: "a/", Marker: "a/0", Limit: 3}).
		Return([]swift.Object{{Name: "a/1", Bytes: 1}, {Name: "a/2", Bytes: 2}, {Name: "a/3", Bytes: 3}}, nil)

	res, err := newTestProvider(c).List(context.Background(), provider.ListOptions{Prefix: "a/", Marker: "a/0", MaxKeys: 2})
	require.NoError(t, err)
	require.Len(t, res.Objects, 2)
	assert.True(t, res.IsTruncated)
	assert.Equal(t, "a/2", res.NextMarker)
	c.AssertExpectations(t)
}

func TestList_SkipsPseudoDirectories(t *testing.T) {
	c := new(mockClient)
	c.On("Objects", mock.Anything, "storage", mock.Anything).
		Return([]swift.Object{{Name: "a/", PseudoDirectory: true}, {Name: "a/x"}}, nil)

	res, err := newTestProvider(c).List(context.Background(), provider.ListOptions{})
	require.NoError(t, err)
	require.Len(t, res.Objects, 1)
	assert.Equal(t, "a/x", res.Objects[0].Key)
	assert.Empty(t, res.NextMarker)
}

func TestHead_NotFound(t *testing.T) {
	c := new(mockClient)
	c.On("Object", mock.Anything, "storage", "gone").Return(swift.Object{}, nil, swift.ObjectNotFound)

	_, err := newTestProvider(c).Head(context.Background(), "gone")
	require.Error(t, err)
	assert.True(t, provider.IsNotFound(err))
}

func TestObjectOps(t *testing.T) {
	c := new(mockClient)
	c.On("Open", mock.Anything, "storage", "a").Return(io.NopCloser(strings.NewReader("xyz")), int64(3), nil)
	c.On("ObjectPut", mock.Anything, "storage", "b", mock.Anything).Return(nil)
	c.On("ObjectCopy", mock.Anything, "storage", "b", "storage", "c").Return(nil)
	c.On("ObjectDelete", mock.Anything, "storage", "b").Return(&swift.Error{StatusCode: http.StatusForbidden, Text: "Operation forbidden"})

	p := newTestProvider(c)
	ctx := context.Background()

	body, size, err := p.GetObject(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(3), size)
	_ = body.Close()

	require.NoError(t, p.PutObject(ctx, "b", strings.NewReader("xyz"), 3))
	require.NoError(t, p.CopyObject(ctx, "b", "c"))

	err = p.DeleteObject(ctx, "b")
	require.Error(t, err)
	assert.True(t, provider.IsAccessDenied(err))
}

func TestDeleteObjects(t *testing.T) {
	c := new(mockClient)
	c.On("BulkDelete", mock.Anything, "storage", []string{"a", "b"}).
		Return(swift.BulkDeleteResult{NumberDeleted: 1, Errors: map[string]error{"b": errors.New("409 Conflict")}}, nil)

	res, err := newTestProvider(c).DeleteObjects(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Equal(t, []string{"a"}, res.Deleted)
	assert.Contains(t, err.Error(), "409 Conflict")

	empty, err := newTestProvider(c).DeleteObjects(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Deleted)
}

func TestBucketExists(t *testing.T) {
	c := new(mockClient)
	c.On("Container", mock.Anything, "storage").Return(swift.ContainerNotFound).Once()
	c.On("Container", mock.Anything, "storage").Return(nil).Once()
	c.On("ContainerCreate", mock.Anything, "storage").Return(nil)

	p := newTestProvider(c)
	ok, err := p.BucketExists(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, p.CreateBucket(context.Background()))

	ok, err = p.BucketExists(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWrapError(t *testing.T) {
	assert.ErrorIs(t, wrapError("Op", "c", "", swift.ContainerNotFound), provider.ErrBucketNotFound)
	assert.ErrorIs(t, wrapError("Op", "c", "k", &swift.Error{StatusCode: http.StatusUnauthorized}), provider.ErrInvalidCredentials)
	assert.ErrorIs(t, wrapError("Op", "c", "k", &swift.Error{StatusCode: http.StatusTooManyRequests}), provider.ErrThrottled)
	assert.ErrorIs(t, wrapError("Op", "c", "k", &swift.Error{StatusCode: http.StatusServiceUnavailable}), provider.ErrProviderUnavailable)
}
