package filestore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"

	"docchat/internal/rag/interfaces"
)

// MinioStore keeps uploaded originals in an object storage bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore creates a store over an existing client and bucket.
func NewMinioStore(client *minio.Client, bucket string) *MinioStore {
	return &MinioStore{client: client, bucket: bucket}
}

// Save uploads the file under the generated name and returns the object key.
func (s *MinioStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/pdf"})
	if err != nil {
		return "", fmt.Errorf("cannot upload object '%s': %w", name, err)
	}
	return name, nil
}

// Remove deletes a stored object.
func (s *MinioStore) Remove(ctx context.Context, path string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("cannot remove object '%s': %w", path, err)
	}
	return nil
}

var _ interfaces.FileStore = (*MinioStore)(nil)
