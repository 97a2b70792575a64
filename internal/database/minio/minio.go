package minio

import (
	"context"
	"fmt"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"docchat/internal/config"
)

var (
	client  *minio.Client
	once    sync.Once
	initErr error
)

// GetClient connects to MinIO once per process and returns the shared client.
func GetClient(cfg *config.MinIOConfig) (*minio.Client, error) {
	once.Do(func() {
		c, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.Secure,
		})
		if err != nil {
			initErr = fmt.Errorf("cannot create MinIO client: %w", err)
			return
		}
		client = c
	})

	return client, initErr
}

// EnsureBucket creates the upload bucket when it does not exist yet.
func EnsureBucket(ctx context.Context, c *minio.Client, bucket string) error {
	exists, err := c.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("cannot check bucket existence: %w", err)
	}
	if !exists {
		if err := c.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("cannot create bucket '%s': %w", bucket, err)
		}
	}
	return nil
}

// HealthCheck verifies connectivity and credentials by listing buckets.
func HealthCheck(ctx context.Context) error {
	if client == nil {
		return fmt.Errorf("minio client not initialized")
	}
	if _, err := client.ListBuckets(ctx); err != nil {
		return fmt.Errorf("minio health check failed: %w", err)
	}
	return nil
}
