package blockstore

import (
	"context"
	"fmt"
	"iter"
)

// DirectBlock is a block-tree leaf: one Stored blob holding raw bytes,
// tagged with the logical range it occupies in its parent.
type DirectBlock struct {
	Stored Stored `msgpack:"s"`
	Rng    Range  `msgpack:"r"`
}

func createDirectBlock(ctx context.Context, reg *Registry, data []byte, start int) (*DirectBlock, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: direct block cannot be created from empty data", ErrInvariant)
	}
	stored, err := StoredCreate(ctx, reg, data)
	if err != nil {
		return nil, err
	}
	return &DirectBlock{Stored: stored, Rng: Range{Start: start, End: start + len(data)}}, nil
}

func (d *DirectBlock) Range(context.Context, *Registry) (Range, error) { return d.Rng, nil }

func (d *DirectBlock) Get(ctx context.Context, reg *Registry, _ Range) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		data, err := StoredGet[[]byte](ctx, reg, d.Stored)
		if err != nil {
			yield(nil, err)
			return
		}
		yield(data, nil)
	}
}

// Put overwrites the block's entire span in one shot: rng must match the
// block's own range exactly and data must be exactly that long. A
// Direct block never grows, shrinks or partially updates; see
// IndirectBlock.Put for how a caller reaches that same restriction when
// writing into a recursive tree.
func (d *DirectBlock) Put(ctx context.Context, reg *Registry, data []byte, rng Range) error {
	if rng != d.Rng {
		return fmt.Errorf("%w: direct block put range %v does not match block range %v", ErrInvariant, rng, d.Rng)
	}
	if len(data) != rng.Len() {
		return fmt.Errorf("%w: put data length %d does not match range length %d", ErrInvariant, len(data), rng.Len())
	}
	return StoredPut(ctx, reg, d.Stored, data)
}

func (d *DirectBlock) Delete(ctx context.Context, reg *Registry) error {
	return d.Stored.Delete(ctx, reg)
}
