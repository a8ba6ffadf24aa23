package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/garyjia/tpa-claims/internal/application/port"
	"go.uber.org/zap"
)

// S3API is the subset of *s3.Client used by S3FileStorage
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds bucket settings
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // non-empty for localstack or minio
	Prefix   string
}

// S3FileStorage implements port.FileStorage on an S3 bucket
type S3FileStorage struct {
	client S3API
	bucket string
	prefix string
	logger *zap.Logger
}

// NewS3Client builds an S3 client from the default credential chain
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3FileStorage creates a new S3FileStorage
func NewS3FileStorage(client S3API, cfg S3Config, logger *zap.Logger) port.FileStorage {
	return &S3FileStorage{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger,
	}
}

// Save uploads content under the object key for path
func (s *S3FileStorage) Save(ctx context.Context, p string, content []byte) error {
	key, err := s.key(p)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(content),
		ContentLength:        aws.Int64(int64(len(content))),
		ContentType:          aws.String(mimetype.Detect(content).String()),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	})
	if err != nil {
		s.logger.Error("Failed to upload object",
			zap.String("bucket", s.bucket),
			zap.String("key", key),
			zap.Error(err))
		return fmt.Errorf("failed to upload object: %w", err)
	}

	s.logger.Debug("Object uploaded", zap.String("key", key), zap.Int("size", len(content)))
	return nil
}

// Read downloads the object for path
func (s *S3FileStorage) Read(ctx context.Context, p string) ([]byte, error) {
	key, err := s.key(p)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%s: %w", p, ErrFileNotFound)
		}
		s.logger.Error("Failed to download object", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to download object: %w", err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return content, nil
}

// Exists reports whether an object is stored for path
func (s *S3FileStorage) Exists(ctx context.Context, p string) bool {
	key, err := s.key(p)
	if err != nil {
		return false
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err == nil
}

// Delete removes the object for path. S3 deletes are idempotent.
func (s *S3FileStorage) Delete(ctx context.Context, p string) error {
	key, err := s.key(p)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.logger.Error("Failed to delete object", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// GetFullPath returns the s3:// URI of the object for relativePath
func (s *S3FileStorage) GetFullPath(relativePath string) string {
	key, err := s.key(relativePath)
	if err != nil {
		return ""
	}
	return "s3://" + s.bucket + "/" + key
}

// key maps a relative path to an object key, rejecting traversal
func (s *S3FileStorage) key(p string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	if clean == "/" || strings.Contains(p, "..") {
		return "", fmt.Errorf("invalid object path: %q", p)
	}
	clean = strings.TrimPrefix(clean, "/")
	if s.prefix == "" {
		return clean, nil
	}
	return s.prefix + "/" + clean, nil
}

// Verify interface compliance
var _ port.FileStorage = (*S3FileStorage)(nil)
