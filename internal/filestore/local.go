package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"docchat/internal/rag/interfaces"
)

// LocalStore keeps uploaded originals in a flat directory on disk.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the directory when missing and returns the store.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create upload directory '%s': %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save writes the file under the generated name and returns its path.
func (s *LocalStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("cannot write file '%s': %w", path, err)
	}
	return path, nil
}

// Remove deletes a stored file. A missing file is not an error, so cleanup
// after a failed ingestion is idempotent.
func (s *LocalStore) Remove(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot remove file '%s': %w", path, err)
	}
	return nil
}

var _ interfaces.FileStore = (*LocalStore)(nil)
