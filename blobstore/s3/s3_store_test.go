package s3

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/vismatch/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStore_Get(t *testing.T) {
	client := new(mockClient)
	store := NewStore(client, "test-bucket", WithPrefix("prefix"))

	t.Run("NotFound", func(t *testing.T) {
		client.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
			return *in.Bucket == "test-bucket" && *in.Key == "prefix/missing"
		})).Return(nil, &types.NoSuchKey{}).Once()

		_, err := store.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("Success", func(t *testing.T) {
		client.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
			return *in.Bucket == "test-bucket" && *in.Key == "prefix/refsets/7.json"
		})).Return(&s3.GetObjectOutput{
			Body: io.NopCloser(strings.NewReader("payload")),
		}, nil).Once()

		got, err := store.Get(context.Background(), "refsets/7.json")
		require.NoError(t, err)
		assert.Equal(t, "payload", string(got))
	})

	client.AssertExpectations(t)
}

func TestStore_Put(t *testing.T) {
	client := new(mockClient)
	store := NewStore(client, "test-bucket", WithPrefix("prefix"))

	var body string
	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Bucket == "test-bucket" && *in.Key == "prefix/new" &&
			in.ChecksumAlgorithm == types.ChecksumAlgorithmCrc32c
	})).Run(func(args mock.Arguments) {
		in := args.Get(1).(*s3.PutObjectInput)
		b, _ := io.ReadAll(in.Body)
		body = string(b)
	}).Return(&s3.PutObjectOutput{}, nil).Once()

	require.NoError(t, store.Put(context.Background(), "new", []byte("content")))
	assert.Equal(t, "content", body)
	client.AssertExpectations(t)
}

func TestStore_Put_WithoutChecksum(t *testing.T) {
	client := new(mockClient)
	cfg := DefaultUploadConfig()
	cfg.EnableChecksum = false
	store := NewStore(client, "b", WithUploadConfig(cfg))

	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Key == "k" && in.ChecksumAlgorithm != types.ChecksumAlgorithmCrc32c
	})).Run(func(args mock.Arguments) {
		_, _ = io.ReadAll(args.Get(1).(*s3.PutObjectInput).Body)
	}).Return(&s3.PutObjectOutput{}, nil).Once()

	require.NoError(t, store.Put(context.Background(), "k", []byte("x")))
	client.AssertExpectations(t)
}

func TestStore_Delete(t *testing.T) {
	client := new(mockClient)
	store := NewStore(client, "test-bucket", WithPrefix("prefix"))

	client.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return *in.Bucket == "test-bucket" && *in.Key == "prefix/del"
	})).Return(&s3.DeleteObjectOutput{}, nil).Once()

	assert.NoError(t, store.Delete(context.Background(), "del"))
	client.AssertExpectations(t)
}

func TestStore_List(t *testing.T) {
	client := new(mockClient)
	store := NewStore(client, "test-bucket", WithPrefix("prefix/"))

	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return *in.Bucket == "test-bucket" && *in.Prefix == "prefix"
	})).Return(&s3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("prefix/file1")},
			{Key: aws.String("prefix/dir/file2")},
		},
	}, nil).Once()

	keys, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"dir/file2", "file1"}, keys)
}

func TestStore_List_Pagination(t *testing.T) {
	client := new(mockClient)
	store := NewStore(client, "test-bucket", WithPrefix("prefix/"))

	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return in.ContinuationToken == nil
	})).Return(&s3.ListObjectsV2Output{
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("token"),
		Contents:              []types.Object{{Key: aws.String("prefix/2")}},
	}, nil).Once()

	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return in.ContinuationToken != nil && *in.ContinuationToken == "token"
	})).Return(&s3.ListObjectsV2Output{
		IsTruncated: aws.Bool(false),
		Contents:    []types.Object{{Key: aws.String("prefix/1")}},
	}, nil).Once()

	keys, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, keys)
	client.AssertExpectations(t)
}

func TestDefaultUploadConfig(t *testing.T) {
	cfg := DefaultUploadConfig()
	assert.Equal(t, int64(8*1024*1024), cfg.PartSize)
	assert.Equal(t, 5, cfg.Concurrency)
	assert.True(t, cfg.EnableChecksum)
}
