package blockstore

import (
	"context"
	"fmt"
	"iter"
)

// IndirectBlock is an ordered sequence of child blocks, each owning a
// contiguous sub-range, concatenating to the parent's full span. A
// child may be any variant: a Direct leaf, a nested Indirect (not
// produced by the current factory but valid on read), or a StoredBlock
// tail used once the fanout bound is reached.
type IndirectBlock struct {
	Blocks []BlockType `msgpack:"b"`
}

// createIndirectBlock is the default block factory: it
// greedily creates Direct children, each sized to whatever bucket the
// registry currently offers, until either the fanout F is reached or
// data runs out. If data remains after F children, the rest is pushed
// into a single StoredBlock tail, which recurses through CreateBlock
// and so can absorb an arbitrarily large remainder one indirection
// layer at a time. Any failure partway through rolls back every child
// already created in this call; it never rolls back a partially
// written tail's own descendants twice, because createStoredBlock and
// createDirectBlock are each responsible for their own failures.
func createIndirectBlock(ctx context.Context, reg *Registry, data []byte, start int) (BlockType, error) {
	fanout := reg.DirectFanout()
	var children []BlockType
	offset := 0

	rollback := func(cause error) (BlockType, error) {
		errs := []error{cause}
		for _, c := range children {
			if err := c.Delete(ctx, reg); err != nil {
				errs = append(errs, err)
			}
		}
		return BlockType{}, aggregate("indirect block create rollback", errs)
	}

	for len(children) < fanout && offset < len(data) {
		chunk, err := pickChunk(reg, data[offset:])
		if err != nil {
			return rollback(err)
		}
		direct, err := createDirectBlock(ctx, reg, chunk, start+offset)
		if err != nil {
			return rollback(err)
		}
		children = append(children, directBlockType(direct))
		offset += len(chunk)
	}

	if offset < len(data) {
		tail, err := createStoredBlock(ctx, reg, data[offset:], start+offset)
		if err != nil {
			return rollback(err)
		}
		children = append(children, storedBlockType(tail))
	}

	return indirectBlockType(&IndirectBlock{Blocks: children}), nil
}

// pickChunk bounds the next Direct child to whatever capacity a
// currently admissible bucket offers, so a single oversized write
// degrades into several Direct children instead of failing placement
// outright. The bucket used to measure capacity here is not reserved;
// createDirectBlock performs its own independent placement immediately
// after.
func pickChunk(reg *Registry, remaining []byte) ([]byte, error) {
	name := reg.PickBucket(1, nil)
	if name == "" {
		return nil, fmt.Errorf("%w: no bucket accepts any data", ErrPlacement)
	}
	max := reg.GetBucket(name).MaxSize()
	if max <= 0 {
		return nil, fmt.Errorf("%w: bucket %q has no usable capacity", ErrPlacement, name)
	}
	if len(remaining) <= max {
		return remaining, nil
	}
	return remaining[:max], nil
}

func (ib *IndirectBlock) Range(ctx context.Context, reg *Registry) (Range, error) {
	if len(ib.Blocks) == 0 {
		return Range{0, 0}, nil
	}
	first, err := ib.Blocks[0].Range(ctx, reg)
	if err != nil {
		return Range{}, err
	}
	last, err := ib.Blocks[len(ib.Blocks)-1].Range(ctx, reg)
	if err != nil {
		return Range{}, err
	}
	return Range{Start: first.Start, End: last.End}, nil
}

func (ib *IndirectBlock) Get(ctx context.Context, reg *Registry, rng Range) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for _, child := range ib.Blocks {
			for chunk, err := range child.Get(ctx, reg, rng) {
				if !yield(chunk, err) {
					return
				}
				if err != nil {
					return
				}
			}
		}
	}
}

// Put only supports replacing the block's entire span in one call: rng
// must equal the block's own current range and data must be exactly
// that long. A full-span write discards the old child set (best-effort;
// any delete failures are aggregated but do not block the write) and
// rebuilds a fresh subtree in its place.
func (ib *IndirectBlock) Put(ctx context.Context, reg *Registry, data []byte, rng Range) error {
	own, err := ib.Range(ctx, reg)
	if err != nil {
		return err
	}
	if rng != own {
		return fmt.Errorf("%w: indirect block put only supports a full-span overwrite (got %v, have %v)", ErrInvariant, rng, own)
	}
	if len(data) != rng.Len() {
		return fmt.Errorf("%w: put data length %d does not match range length %d", ErrInvariant, len(data), rng.Len())
	}

	rebuilt, err := createIndirectBlock(ctx, reg, data, rng.Start)
	if err != nil {
		return err
	}

	var errs []error
	for _, child := range ib.Blocks {
		if err := child.Delete(ctx, reg); err != nil {
			errs = append(errs, err)
		}
	}
	ib.Blocks = rebuilt.Indirect.Blocks

	return aggregate("indirect block put cleanup", errs)
}

func (ib *IndirectBlock) Delete(ctx context.Context, reg *Registry) error {
	var errs []error
	for _, child := range ib.Blocks {
		if err := child.Delete(ctx, reg); err != nil {
			errs = append(errs, err)
		}
	}
	return aggregate("indirect block delete", errs)
}
