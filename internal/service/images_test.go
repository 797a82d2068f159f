package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func (m *mockS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.DeleteObjectOutput)
	return out, args.Error(1)
}

func TestS3ImageStore(t *testing.T) {
	client := new(mockS3)
	store := NewS3ImageStore(client, "foodgram", "https://cdn.example/foodgram/")
	ctx := context.Background()

	client.On("PutObject", ctx, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "foodgram" &&
			aws.ToString(in.Key) == "recipes/a.png" &&
			aws.ToString(in.ContentType) == "image/png"
	})).Return(&s3.PutObjectOutput{}, nil).Once()
	client.On("DeleteObject", ctx, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return aws.ToString(in.Key) == "recipes/a.png"
	})).Return(&s3.DeleteObjectOutput{}, nil).Once()

	url, err := store.Save(ctx, "recipes/a.png", "image/png", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/foodgram/recipes/a.png", url)
	require.NoError(t, store.Delete(ctx, url))

	assert.Error(t, store.Delete(ctx, "https://elsewhere.example/recipes/a.png"))
	client.AssertExpectations(t)
}

func TestS3ImageStoreBreakerOpens(t *testing.T) {
	client := new(mockS3)
	store := NewS3ImageStore(client, "foodgram", "https://cdn.example/foodgram")
	ctx := context.Background()

	client.On("PutObject", ctx, mock.Anything).Return(nil, errors.New("connection refused")).Times(3)

	for i := 0; i < 3; i++ {
		_, err := store.Save(ctx, "recipes/a.png", "image/png", []byte("data"))
		require.Error(t, err)
	}

	_, err := store.Save(ctx, "recipes/a.png", "image/png", []byte("data"))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	client.AssertNumberOfCalls(t, "PutObject", 3)
}

func TestLocalImageStore(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalImageStore(dir, "http://localhost:8080/media/")
	ctx := context.Background()

	url, err := store.Save(ctx, "avatars/me.png", "image/png", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/media/avatars/me.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "avatars", "me.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)

	require.NoError(t, store.Delete(ctx, url))
	_, err = os.Stat(filepath.Join(dir, "avatars", "me.png"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(ctx, url), "deleting a missing file is not an error")
	assert.Error(t, store.Delete(ctx, "http://localhost:8080/media/../etc/passwd"))
}
