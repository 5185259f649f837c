package rootstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore persists the root to a single local file, default
// "./root.dat". Save writes through a temp file and renames into place
// so a reader never observes a half-written root.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("rootstore: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".root-*.tmp")
	if err != nil {
		return fmt.Errorf("rootstore: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("rootstore: write %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("rootstore: sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rootstore: close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rootstore: rename %s to %s: %w", tmpPath, f.path, err)
	}
	return nil
}

func (f *FileStore) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("rootstore: read %s: %w", f.path, err)
	}
	return data, nil
}
