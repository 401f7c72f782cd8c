package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const s3Scheme = "s3://"

// S3Options configures the access to an S3 bucket.
// If AccessKeyID is empty, the default credential chain is used.
type S3Options struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string // S3-compatible endpoint (optional)
}

type s3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type s3Deleter interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage implements Storage on an S3 bucket
type S3Storage struct {
	bucket   string
	prefix   string
	uploader s3Uploader
	deleter  s3Deleter
}

// NewS3Storage creates a new S3Storage from a s3://bucket/prefix uri
func NewS3Storage(ctx context.Context, storageURI string, opts S3Options) (*S3Storage, error) {
	bucket, prefix, err := parseS3URI(storageURI)
	if err != nil {
		return nil, fmt.Errorf("NewS3Storage.%w", err)
	}

	var loadOpts []func(*config.LoadOptions) error
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("NewS3Storage.LoadDefaultConfig: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 10 * 1024 * 1024 // 10MB per part
	})

	return &S3Storage{bucket: bucket, prefix: prefix, uploader: uploader, deleter: client}, nil
}

// Save implements Storage
func (s *S3Storage) Save(ctx context.Context, data []byte, filename string) (string, error) {
	key := path.Join(s.prefix, filename)
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		var respErr interface{ HTTPStatusCode() int }
		if errors.As(err, &respErr) && TemporaryStatus(respErr.HTTPStatusCode()) {
			err = MakeTemporary(err)
		}
		return "", fmt.Errorf("Save.Upload to %s/%s: %w", s.bucket, key, err)
	}
	return s3Scheme + path.Join(s.bucket, key), nil
}

// Delete implements Storage
func (s *S3Storage) Delete(ctx context.Context, file string) error {
	bucket, key, err := parseS3URI(file)
	if err != nil {
		return fmt.Errorf("Delete.%w", err)
	}
	if _, err := s.deleter.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return ErrFileNotFound{file}
		}
		return fmt.Errorf("Delete.DeleteObject: %w", err)
	}
	return nil
}

func parseS3URI(uri string) (bucket, key string, err error) {
	if !strings.HasPrefix(uri, s3Scheme) {
		return "", "", fmt.Errorf("parseS3URI: %s is not a s3 uri", uri)
	}
	bucket, key, _ = strings.Cut(strings.TrimPrefix(uri, s3Scheme), "/")
	if bucket == "" {
		return "", "", fmt.Errorf("parseS3URI: missing bucket in %s", uri)
	}
	return bucket, strings.Trim(key, "/"), nil
}
