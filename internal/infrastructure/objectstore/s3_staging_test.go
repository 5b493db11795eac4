package objectstore

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBucket struct {
	mu      sync.Mutex
	objects map[string]string
	putErr  error
}

func newMemoryBucket() *memoryBucket {
	return &memoryBucket{objects: map[string]string{}}
}

func (b *memoryBucket) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return nil, b.putErr
	}
	key := aws.ToString(in.Key)
	if aws.ToString(in.IfNoneMatch) == "*" {
		if _, ok := b.objects[key]; ok {
			return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
		}
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	b.objects[key] = string(data)
	return &s3.PutObjectOutput{}, nil
}

func (b *memoryBucket) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(data))}, nil
}

func (b *memoryBucket) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StagingRoundTrip(t *testing.T) {
	t.Parallel()

	bucket := newMemoryBucket()
	staging := newS3Staging(bucket, "imports", "uploads/")
	ctx := context.Background()

	key, err := staging.Save(ctx, "users_1700000000.xlsx", strings.NewReader("payload"))
	require.NoError(t, err)
	assert.Equal(t, "uploads/users_1700000000.xlsx", key)

	rc, err := staging.Open(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	require.NoError(t, staging.Remove(ctx, key))
	assert.Empty(t, bucket.objects)
}

func TestS3StagingKeyCollisionGetsSuffix(t *testing.T) {
	t.Parallel()

	bucket := newMemoryBucket()
	staging := newS3Staging(bucket, "imports", "uploads/")
	ctx := context.Background()

	_, err := staging.Save(ctx, "users_1700000000.xlsx", strings.NewReader("first"))
	require.NoError(t, err)
	key, err := staging.Save(ctx, "users_1700000000.xlsx", strings.NewReader("second"))
	require.NoError(t, err)

	assert.Equal(t, "uploads/users_1700000000-1.xlsx", key)
	assert.Equal(t, "first", bucket.objects["uploads/users_1700000000.xlsx"])
}

func TestS3StagingOpenMissingKey(t *testing.T) {
	t.Parallel()

	_, err := newS3Staging(newMemoryBucket(), "imports", "").Open(context.Background(), "nope.xlsx")
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestS3StagingPutFailure(t *testing.T) {
	t.Parallel()

	bucket := newMemoryBucket()
	bucket.putErr = errors.New("access denied")

	_, err := newS3Staging(bucket, "imports", "").Save(context.Background(), "a.xlsx", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
