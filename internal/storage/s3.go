package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/logbook"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// objectAPI is the part of *minio.Client the sink uses.
type objectAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// S3Sink copies rotation archives to an S3-compatible bucket.
type S3Sink struct {
	api    objectAPI
	bucket string
	prefix string
	logger *zap.Logger
}

func NewS3Sink(cfg Config, logger *zap.Logger) (*S3Sink, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage.NewS3Sink: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Sink{api: mc, bucket: cfg.Bucket, prefix: cfg.Prefix, logger: logger}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *S3Sink) EnsureBucket(ctx context.Context, region string) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("storage.S3Sink.EnsureBucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if region == "" {
		region = "us-east-1"
	}
	if err := s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("storage.S3Sink.EnsureBucket %s: %w", s.bucket, err)
	}
	s.logger.Info("archive_bucket_created", zap.String("bucket", s.bucket))
	return nil
}

func (s *S3Sink) key(archiveID string) string {
	return s.prefix + archiveID + ".gz.b64"
}

// Upload stores data under the archive's key. An existing object is never
// replaced.
func (s *S3Sink) Upload(ctx context.Context, archiveID string, data []byte) error {
	key := s.key(archiveID)
	_, err := s.api.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	switch {
	case err == nil:
		return fmt.Errorf("storage.S3Sink.Upload %s: %w", key, logbook.ErrArchiveExists)
	case !isNotFound(err):
		return fmt.Errorf("storage.S3Sink.Upload %s: %w", key, err)
	}

	_, err = s.api.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/plain",
		UserMetadata: map[string]string{
			"encoding": "gzip+base64",
		},
	})
	if err != nil {
		return fmt.Errorf("storage.S3Sink.Upload %s: %w", key, err)
	}
	s.logger.Debug("archive_uploaded", zap.String("bucket", s.bucket), zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
