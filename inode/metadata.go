// Package inode implements the thin filesystem layer on top of
// blockstore: File (one block tree plus Metadata) and Directory (a
// name-to-Stored map plus Metadata).
package inode

import "time"

// Metadata carries the bookkeeping every inode tracks locally. Size is
// a byte count for a File, an entry count for a Directory; callers
// update it whenever content changes, it is never recomputed lazily.
type Metadata struct {
	Size     int64     `msgpack:"size"`
	Created  time.Time `msgpack:"created"`
	Modified time.Time `msgpack:"modified"`
}

// NewMetadata returns Metadata stamped with now for both timestamps.
func NewMetadata(now time.Time, size int64) Metadata {
	return Metadata{Size: size, Created: now, Modified: now}
}

// Touch updates Modified and Size in place.
func (m *Metadata) Touch(now time.Time, size int64) {
	m.Modified = now
	m.Size = size
}
