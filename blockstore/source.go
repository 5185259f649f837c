package blockstore

import "context"

// Descriptor is an opaque byte string meaningful only to the Source that
// issued it — a local path, an S3 key, a row id, a Discord attachment
// snowflake. Nothing outside that Source may interpret it.
type Descriptor []byte

// Source is the narrow CRUD contract every concrete backend implements.
// It is a collaborator interface: this package never constructs one
// directly, only calls through it. Concrete adapters live under
// source/... (memory, local, s3, sftp, duckdb, flight).
//
// All four operations are expected to be safe for concurrent use on
// distinct descriptors; callers are responsible for serializing
// concurrent operations on the *same* descriptor (the tree above never
// issues two in flight on one descriptor).
type Source interface {
	// Create reserves a new, empty slot and returns its descriptor. A
	// Source may invent the descriptor locally or round-trip to the
	// backend.
	Create(ctx context.Context) (Descriptor, error)

	// Put overwrites the blob at descriptor. Implementations may reject
	// data longer than MaxSize.
	Put(ctx context.Context, descriptor Descriptor, data []byte) error

	// Get fetches the blob at descriptor.
	Get(ctx context.Context, descriptor Descriptor) ([]byte, error)

	// Delete removes the blob at descriptor. Deleting a descriptor that
	// no longer exists may succeed or fail; callers must tolerate both.
	Delete(ctx context.Context, descriptor Descriptor) error

	// MaxSize is the upper bound, in bytes, on a blob accepted by Put.
	MaxSize() int
}
