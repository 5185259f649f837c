package blockstore

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Stored is an immutable handle to exactly one blob in exactly one
// bucket. It has no knowledge of what the blob contains — callers must
// deserialize with the same type they serialized with, and that
// contract is what the generic functions below enforce at the call
// site rather than at runtime.
//
// Destroying a Stored without calling Delete leaks the blob it points
// at; nothing garbage-collects orphaned blobs.
type Stored struct {
	Bucket     string     `msgpack:"b"`
	Descriptor Descriptor `msgpack:"d"`
}

// Equal reports whether s and other reference the same bucket and
// descriptor. Stored embeds a byte slice, so it is not comparable with
// ==; this is the supported equality check.
func (s Stored) Equal(other Stored) bool {
	return s.Bucket == other.Bucket && bytes.Equal(s.Descriptor, other.Descriptor)
}

// AsURL renders s as "bucket$descriptor", percent-encoding both parts
// and additionally escaping any literal '$' so the separator stays
// unambiguous.
func (s Stored) AsURL() string {
	bucket := strings.ReplaceAll(url.QueryEscape(s.Bucket), "$", "%24")
	descriptor := strings.ReplaceAll(url.QueryEscape(string(s.Descriptor)), "$", "%24")
	return bucket + "$" + descriptor
}

// StoredFromURL parses bucket and descriptor as returned by splitting
// an AsURL string on the first unescaped '$'.
func StoredFromURL(bucket, descriptor string) (Stored, error) {
	b, err := url.QueryUnescape(bucket)
	if err != nil {
		return Stored{}, fmt.Errorf("%w: invalid bucket in url: %v", ErrInvariant, err)
	}
	d, err := url.QueryUnescape(descriptor)
	if err != nil {
		return Stored{}, fmt.Errorf("%w: invalid descriptor in url: %v", ErrInvariant, err)
	}
	return Stored{Bucket: b, Descriptor: Descriptor(d)}, nil
}

// ParseStoredURL splits a full "bucket$descriptor" URL on the first
// unescaped '$' and parses both halves.
func ParseStoredURL(raw string) (Stored, error) {
	i := strings.IndexByte(raw, '$')
	if i < 0 {
		return Stored{}, fmt.Errorf("%w: missing '$' separator in stored url", ErrInvariant)
	}
	return StoredFromURL(raw[:i], raw[i+1:])
}

// StoredCreate serializes value with the package's tagged binary codec,
// asks reg to place it in a bucket large enough for the result, and
// writes it there. The bucket binding is fixed for the Stored's
// lifetime: StoredPut below never re-picks it.
func StoredCreate[T any](ctx context.Context, reg *Registry, value T) (Stored, error) {
	data, err := encode(value)
	if err != nil {
		return Stored{}, err
	}

	name := reg.PickBucket(len(data), nil)
	if name == "" {
		return Stored{}, fmt.Errorf("%w: no bucket accepts %d bytes", ErrPlacement, len(data))
	}
	bucket := reg.GetBucket(name)

	descriptor, err := bucket.Create(ctx)
	if err != nil {
		return Stored{}, err
	}
	if err := bucket.Put(ctx, descriptor, data); err != nil {
		if delErr := bucket.Delete(ctx, descriptor); delErr != nil {
			return Stored{}, aggregate("stored create", []error{err, delErr})
		}
		return Stored{}, err
	}
	return Stored{Bucket: name, Descriptor: descriptor}, nil
}

// StoredGet fetches and deserializes s's blob as a T. A decode failure
// surfaces as ErrCodec, including when the blob was serialized as a
// different type than T. A T of []byte takes the blob's bytes verbatim
// and never fails to decode.
func StoredGet[T any](ctx context.Context, reg *Registry, s Stored) (T, error) {
	var zero T
	bucket := reg.GetBucket(s.Bucket)
	if bucket == nil {
		return zero, fmt.Errorf("%w: bucket %q", ErrNotFound, s.Bucket)
	}
	data, err := bucket.Get(ctx, s.Descriptor)
	if err != nil {
		return zero, err
	}
	var value T
	if err := decode(data, &value); err != nil {
		return zero, err
	}
	return value, nil
}

// StoredPut re-serializes value and overwrites s's existing descriptor.
// It never re-picks a bucket: s's (bucket, descriptor) identity is
// preserved.
func StoredPut[T any](ctx context.Context, reg *Registry, s Stored, value T) error {
	bucket := reg.GetBucket(s.Bucket)
	if bucket == nil {
		return fmt.Errorf("%w: bucket %q", ErrNotFound, s.Bucket)
	}
	data, err := encode(value)
	if err != nil {
		return err
	}
	return bucket.Put(ctx, s.Descriptor, data)
}

// Delete removes s's blob from its bucket.
func (s Stored) Delete(ctx context.Context, reg *Registry) error {
	bucket := reg.GetBucket(s.Bucket)
	if bucket == nil {
		return fmt.Errorf("%w: bucket %q", ErrNotFound, s.Bucket)
	}
	return bucket.Delete(ctx, s.Descriptor)
}
