package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"gitlab.com/yelinaung/claimspro/internal/config"
	"gitlab.com/yelinaung/claimspro/internal/logger"
	"gitlab.com/yelinaung/claimspro/internal/models"
)

// BlobStore holds attachment payloads outside the database.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// MinioBlobStore stores attachment payloads in an S3-compatible bucket.
type MinioBlobStore struct {
	client *minio.Client
	bucket string
}

// NewMinioBlobStore connects to the bucket, creating it if missing.
// A nil transport uses the minio default.
func NewMinioBlobStore(ctx context.Context, cfg config.MinioConfig, transport http.RoundTripper) (*MinioBlobStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Log.Info().Str("bucket", cfg.Bucket).Msg("Created attachment bucket")
	}

	return &MinioBlobStore{client: client, bucket: cfg.Bucket}, nil
}

// Put uploads data under key.
func (s *MinioBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload attachment %s: %w: %w", key, models.ErrPersistence, err)
	}
	return nil
}

// Get downloads the payload stored under key.
func (s *MinioBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.objectError("download", key, err)
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.objectError("download", key, err)
	}
	return data, nil
}

// Delete removes the payload stored under key. Missing objects are not an error.
func (s *MinioBlobStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return s.objectError("remove", key, err)
	}
	return nil
}

func (s *MinioBlobStore) objectError(action, key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("failed to %s attachment %s: %w", action, key, models.ErrNotFound)
	}
	return fmt.Errorf("failed to %s attachment %s: %w: %w", action, key, models.ErrPersistence, err)
}

func attachmentObjectKey(a *models.Attachment) string {
	return "claims/" + a.ClaimID + "/" + a.ID
}
