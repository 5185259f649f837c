package blockstore

import (
	"context"
	"errors"
	"fmt"
)

// Bucket is a named Source optionally wrapped by an Encryption filter.
// Its effective MaxSize already accounts for the encryption overhead, so
// any payload up to Bucket.MaxSize() survives a Put/Get round trip
// unchanged.
type Bucket struct {
	name       string
	source     Source
	encryption Encryption
}

// NewBucket wraps source under name, optionally through encryption.
// encryption may be nil for a plaintext bucket.
func NewBucket(name string, source Source, encryption Encryption) *Bucket {
	return &Bucket{name: name, source: source, encryption: encryption}
}

// Name returns the bucket's name in the Registry.
func (b *Bucket) Name() string { return b.name }

// MaxSize returns the largest plaintext payload this bucket accepts,
// after subtracting any encryption expansion from the Source's MaxSize.
func (b *Bucket) MaxSize() int {
	max := b.source.MaxSize()
	if b.encryption != nil {
		max -= b.encryption.Overhead()
		if max < 0 {
			max = 0
		}
	}
	return max
}

// Create reserves a new, empty descriptor in the underlying Source.
func (b *Bucket) Create(ctx context.Context) (Descriptor, error) {
	d, err := b.source.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("bucket %q: create: %w", b.name, errWithBackend(err))
	}
	return d, nil
}

// Put encrypts data (if configured) and writes it through to the Source.
func (b *Bucket) Put(ctx context.Context, descriptor Descriptor, data []byte) error {
	if b.encryption != nil {
		enc, err := b.encryption.Encrypt(data)
		if err != nil {
			return fmt.Errorf("bucket %q: encrypt: %w", b.name, err)
		}
		data = enc
	}
	if err := b.source.Put(ctx, descriptor, data); err != nil {
		return fmt.Errorf("bucket %q: put: %w", b.name, errWithBackend(err))
	}
	return nil
}

// Get fetches and decrypts (if configured) the blob at descriptor.
func (b *Bucket) Get(ctx context.Context, descriptor Descriptor) ([]byte, error) {
	data, err := b.source.Get(ctx, descriptor)
	if err != nil {
		return nil, fmt.Errorf("bucket %q: get: %w", b.name, errWithBackend(err))
	}
	if b.encryption != nil {
		dec, err := b.encryption.Decrypt(data)
		if err != nil {
			return nil, fmt.Errorf("bucket %q: decrypt: %w", b.name, err)
		}
		return dec, nil
	}
	return data, nil
}

// Delete removes the blob at descriptor from the underlying Source.
func (b *Bucket) Delete(ctx context.Context, descriptor Descriptor) error {
	if err := b.source.Delete(ctx, descriptor); err != nil {
		return fmt.Errorf("bucket %q: delete: %w", b.name, errWithBackend(err))
	}
	return nil
}

// errWithBackend tags err with ErrBackend unless it is already one of
// the package's sentinel categories, so callers never lose the ability
// to errors.Is(err, ErrBackend) against an adapter's raw error.
func errWithBackend(err error) error {
	for _, sentinel := range []error{ErrPlacement, ErrBackend, ErrCodec, ErrNotFound, ErrInvariant} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrBackend, err)
}
