package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/techpathlabs/milestonedesk/config"
	"github.com/techpathlabs/milestonedesk/pkg/logger"
)

// MinioArtifactStore keeps export files in a MINIO bucket
type MinioArtifactStore struct {
	client *minio.Client
	bucket string
	config *config.MinioConfig
}

func NewMinioArtifactStore(cfg *config.MinioConfig) (*MinioArtifactStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioArtifactStore{
		client: client,
		bucket: cfg.Bucket,
		config: cfg,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *MinioArtifactStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.config.Region})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// Put uploads content under key
func (s *MinioArtifactStore) Put(ctx context.Context, key string, content []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload artifact: %w", err)
	}
	return nil
}

// URL signs a download link at call time. When signing fails it falls
// back to the unsigned public URL.
func (s *MinioArtifactStore) URL(ctx context.Context, key string) (string, error) {
	url, err := s.PresignedURL(ctx, key)
	if err != nil {
		logger.Warn(ctx, "failed to presign artifact, using public url", "key", key, "error", err)
		return s.PublicURL(key), nil
	}
	return url, nil
}

// Get downloads an object.
func (s *MinioArtifactStore) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return data, nil
}

// Delete removes an object
func (s *MinioArtifactStore) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}

	return nil
}

// maxPresignExpiry is the longest validity S3 signatures accept
const maxPresignExpiry = 7 * 24 * time.Hour

// PresignedURL generates a presigned URL for the object with expiration
func (s *MinioArtifactStore) PresignedURL(ctx context.Context, key string) (string, error) {
	expiry := time.Duration(s.config.ExpireDays) * 24 * time.Hour
	if expiry > maxPresignExpiry {
		expiry = maxPresignExpiry
	}
	url, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url.String(), nil
}

// PublicURL returns a public URL for the object (if bucket policy allows)
func (s *MinioArtifactStore) PublicURL(key string) string {
	protocol := "http"
	if s.config.UseSSL {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", protocol, s.config.Endpoint, s.bucket, key)
}
