package artifact

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

// MinioStore pulls artifacts from an S3-compatible bucket at startup.
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(endpoint, accessKey, secretKey, bucket string, secure bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	log.WithFields(log.Fields{
		"event":    "artifact_store",
		"endpoint": endpoint,
		"bucket":   bucket,
	}).Info("Object storage client initialized")

	return &MinioStore{client: client, bucket: bucket}, nil
}

func (m *MinioStore) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	// GetObject defers errors until the first read; Stat first so a
	// missing artifact fails startup immediately.
	if _, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{}); err != nil {
		return nil, fmt.Errorf("artifact %q not found in bucket %q: %w", key, m.bucket, err)
	}

	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact %q: %w", key, err)
	}
	return obj, nil
}
