// Package memory implements an in-memory blockstore.Source, the
// primary test double for the whole engine and a reasonable choice for
// a scratch or ephemeral bucket in production.
package memory

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/vaultgrid/vaultgrid/blockstore"
)

// Source is a map-backed blockstore.Source. The zero value is not
// usable; construct with New.
type Source struct {
	maxSize int

	mu      sync.RWMutex
	entropy *ulid.MonotonicEntropy
	objects map[string][]byte
}

// New returns a Source that rejects any payload larger than maxSize
// bytes. maxSize <= 0 means unbounded.
func New(maxSize int) *Source {
	return &Source{
		maxSize: maxSize,
		entropy: ulid.Monotonic(rand.Reader, 0),
		objects: make(map[string][]byte),
	}
}

func (s *Source) MaxSize() int {
	if s.maxSize <= 0 {
		return int(^uint(0) >> 1)
	}
	return s.maxSize
}

func (s *Source) Create(ctx context.Context) (blockstore.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy)
	key := id.String()
	s.objects[key] = nil
	return blockstore.Descriptor(key), nil
}

func (s *Source) Put(ctx context.Context, descriptor blockstore.Descriptor, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.maxSize > 0 && len(data) > s.maxSize {
		return fmt.Errorf("memory: payload of %d bytes exceeds max size %d", len(data), s.maxSize)
	}
	key := string(descriptor)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("memory: descriptor %q was never created", key)
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[key] = stored
	return nil
}

func (s *Source) Get(ctx context.Context, descriptor blockstore.Descriptor) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := string(descriptor)
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("memory: descriptor %q not found", key)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *Source) Delete(ctx context.Context, descriptor blockstore.Descriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := string(descriptor)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("memory: descriptor %q not found", key)
	}
	delete(s.objects, key)
	return nil
}

// Len reports how many objects are currently stored, for test
// assertions about cleanup behavior.
func (s *Source) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
