package inode

import (
	"context"
	"iter"
	"time"

	"github.com/vaultgrid/vaultgrid/blockstore"
)

// File owns one Indirect block tree (its data) plus Metadata. The tree
// root is always an Indirect, never a bare Direct or StoredBlock,
// because blockstore.CreateBlock's default factory always returns one.
type File struct {
	Data blockstore.IndirectBlock `msgpack:"data"`
	Meta Metadata                 `msgpack:"metadata"`
}

// CreateFile builds a new File from data, placing it through reg.
func CreateFile(ctx context.Context, reg *blockstore.Registry, data []byte) (*File, error) {
	root, err := blockstore.CreateBlock(ctx, reg, data, 0)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &File{Data: *root.Indirect, Meta: NewMetadata(now, int64(len(data)))}, nil
}

func (f *File) Metadata() Metadata { return f.Meta }

// Get streams the file's entire current contents in logical-offset order.
func (f *File) Get(ctx context.Context, reg *blockstore.Registry) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		rng, err := f.Data.Range(ctx, reg)
		if err != nil {
			yield(nil, err)
			return
		}
		for chunk, err := range f.Data.Get(ctx, reg, rng) {
			if !yield(chunk, err) {
				return
			}
			if err != nil {
				return
			}
		}
	}
}

// Put overwrites the file's entire contents with data and refreshes
// Metadata. Per blockstore's Indirect.Put, this only supports a
// full-span rewrite; there is no partial-write file API.
func (f *File) Put(ctx context.Context, reg *blockstore.Registry, data []byte) error {
	rng, err := f.Data.Range(ctx, reg)
	if err != nil {
		return err
	}
	if len(data) != rng.Len() {
		rebuilt, err := blockstore.CreateBlock(ctx, reg, data, rng.Start)
		if err != nil {
			return err
		}
		if err := f.Data.Delete(ctx, reg); err != nil {
			return err
		}
		f.Data = *rebuilt.Indirect
	} else if err := f.Data.Put(ctx, reg, data, rng); err != nil {
		return err
	}
	f.Meta.Touch(time.Now(), int64(len(data)))
	return nil
}

// Delete recursively tears down the file's entire block tree.
func (f *File) Delete(ctx context.Context, reg *blockstore.Registry) error {
	return f.Data.Delete(ctx, reg)
}
