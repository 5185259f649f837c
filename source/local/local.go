// Package local implements a filesystem-backed blockstore.Source,
// sharding blobs into subdirectories named after the descriptor's last
// two characters (the random part of its ULID) to keep any one
// directory from accumulating too many entries.
package local

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/vaultgrid/vaultgrid/blockstore"
)

// Source stores one blob per descriptor at
// basePath/blobs/<last two characters of the descriptor>/<descriptor>.
type Source struct {
	basePath string
	maxSize  int
	entropy  *ulid.MonotonicEntropy
}

// New creates basePath (and its blobs subdirectory) if missing and
// returns a Source that rejects payloads over maxSize bytes. maxSize
// <= 0 means unbounded.
func New(basePath string, maxSize int) (*Source, error) {
	dir := filepath.Join(basePath, "blobs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("local: create %s: %w", dir, err)
	}
	return &Source{
		basePath: basePath,
		maxSize:  maxSize,
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}, nil
}

func (s *Source) MaxSize() int {
	if s.maxSize <= 0 {
		return int(^uint(0) >> 1)
	}
	return s.maxSize
}

func (s *Source) path(descriptor blockstore.Descriptor) string {
	name := string(descriptor)
	shard := name
	if len(shard) > 2 {
		shard = shard[len(shard)-2:]
	}
	return filepath.Join(s.basePath, "blobs", shard, name)
}

func (s *Source) Create(ctx context.Context) (blockstore.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy)
	descriptor := blockstore.Descriptor(id.String())

	path := s.path(descriptor)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("local: create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("local: create %s: %w", path, err)
	}
	return descriptor, f.Close()
}

// Put writes data to a temp file in the same directory, fsyncs it, and
// renames it into place, so a reader never observes a partially
// written blob.
func (s *Source) Put(ctx context.Context, descriptor blockstore.Descriptor, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.maxSize > 0 && len(data) > s.maxSize {
		return fmt.Errorf("local: payload of %d bytes exceeds max size %d", len(data), s.maxSize)
	}
	path := s.path(descriptor)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("local: descriptor %q was never created: %w", descriptor, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("local: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("local: write %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("local: sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("local: close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("local: rename %s to %s: %w", tmpPath, path, err)
	}
	return nil
}

func (s *Source) Get(ctx context.Context, descriptor blockstore.Descriptor) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.path(descriptor)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("local: open %s: %w", path, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("local: read %s: %w", path, err)
	}
	return data, nil
}

func (s *Source) Delete(ctx context.Context, descriptor blockstore.Descriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.path(descriptor)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("local: remove %s: %w", path, err)
	}
	return nil
}
