package storage

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Options carries the object-store connection settings. Injected from
// config at construction time; nothing in this package reads the
// environment.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type ObjectStore struct {
	client *minio.Client
	bucket string
}

func New(opts Options) (*ObjectStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &ObjectStore{
		client: client,
		bucket: opts.Bucket,
	}, nil
}

// EnsureBucket creates the deliverables bucket if it does not exist yet.
func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// UploadFile uploads a local file to the given object name, tagging it with
// the provided user metadata. Returns the number of bytes stored.
func (s *ObjectStore) UploadFile(ctx context.Context, objectName, filePath, contentType string, metadata map[string]string) (int64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat file: %w", err)
	}

	info, err := s.client.PutObject(ctx, s.bucket, objectName, file, stat.Size(), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upload to MinIO: %w", err)
	}

	return info.Size, nil
}

// PresignedDownloadURL issues a time-limited, credential-free GET URL for a
// stored object and the instant it expires. The expiry is captured before
// signing, so the advertised cutoff is never later than the signed one.
func (s *ObjectStore) PresignedDownloadURL(ctx context.Context, objectName string, expiry time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(expiry)
	url, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, expiry, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url.String(), expiresAt, nil
}

func (s *ObjectStore) RemoveObject(ctx context.Context, objectName string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete from MinIO: %w", err)
	}
	return nil
}
