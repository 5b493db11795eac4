package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/mohammadpnp/user-directory/internal/infrastructure/file"
)

const maxKeyAttempts = 100

type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Staging stages uploads as objects in a bucket (S3 or MinIO). Staged
// references are full object keys.
type S3Staging struct {
	client objectAPI
	bucket string
	prefix string
}

func NewS3Staging(ctx context.Context, opts S3Options) (*S3Staging, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Staging(client, opts.Bucket, opts.Prefix), nil
}

func newS3Staging(client objectAPI, bucket, prefix string) *S3Staging {
	return &S3Staging{client: client, bucket: bucket, prefix: prefix}
}

// Save uploads content under prefix+name. The write is conditional on the key
// being absent; a taken key gets a "-N" suffix like the local backend.
func (s *S3Staging) Save(ctx context.Context, name string, content io.Reader) (string, error) {
	// Buffer once so the body can be replayed on a key collision.
	body, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}

	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key := s.prefix + file.CandidateName(name, attempt)
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(body),
			ContentLength: aws.Int64(int64(len(body))),
			IfNoneMatch:   aws.String("*"),
		})
		if isKeyTaken(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("put object %s: %w", key, err)
		}
		return key, nil
	}

	return "", fmt.Errorf("stage %s: no free key after %d attempts", name, maxKeyAttempts)
}

func (s *S3Staging) Open(ctx context.Context, stagedPath string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(stagedPath),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("get object %s: %w", stagedPath, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("get object %s: %w", stagedPath, err)
	}
	return out.Body, nil
}

// Remove deletes the object; S3 treats deleting a missing key as success.
func (s *S3Staging) Remove(ctx context.Context, stagedPath string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(stagedPath),
	}); err != nil {
		return fmt.Errorf("delete object %s: %w", stagedPath, err)
	}
	return nil
}

func isKeyTaken(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	}
	return false
}
