package blockstore

import (
	"context"
	"iter"
)

// StoredBlock is a block-tree indirection node: it holds no children
// in memory, only a Stored handle whose blob deserializes into another
// BlockType. It exists so a deeply nested subtree can be paged out of
// memory and only faulted back in (one blob fetch) when actually read,
// and so an Indirect block's fanout can overflow into recursion instead
// of growing an unbounded children slice.
type StoredBlock struct {
	Stored Stored `msgpack:"s"`
}

func createStoredBlock(ctx context.Context, reg *Registry, data []byte, start int) (*StoredBlock, error) {
	inner, err := CreateBlock(ctx, reg, data, start)
	if err != nil {
		return nil, err
	}
	stored, err := StoredCreate(ctx, reg, inner)
	if err != nil {
		if delErr := inner.Delete(ctx, reg); delErr != nil {
			return nil, aggregate("stored block create rollback", []error{err, delErr})
		}
		return nil, err
	}
	return &StoredBlock{Stored: stored}, nil
}

func (s *StoredBlock) load(ctx context.Context, reg *Registry) (BlockType, error) {
	return StoredGet[BlockType](ctx, reg, s.Stored)
}

func (s *StoredBlock) Range(ctx context.Context, reg *Registry) (Range, error) {
	inner, err := s.load(ctx, reg)
	if err != nil {
		return Range{}, err
	}
	return inner.Range(ctx, reg)
}

func (s *StoredBlock) Get(ctx context.Context, reg *Registry, rng Range) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		inner, err := s.load(ctx, reg)
		if err != nil {
			yield(nil, err)
			return
		}
		for chunk, err := range inner.Get(ctx, reg, rng) {
			if !yield(chunk, err) {
				return
			}
			if err != nil {
				return
			}
		}
	}
}

func (s *StoredBlock) Put(ctx context.Context, reg *Registry, data []byte, rng Range) error {
	inner, err := s.load(ctx, reg)
	if err != nil {
		return err
	}
	if err := inner.Put(ctx, reg, data, rng); err != nil {
		return err
	}
	return StoredPut(ctx, reg, s.Stored, inner)
}

// Delete removes both the inner subtree and this node's own blob. The
// original panicked if the inner blob could not be read back; here a
// decode or fetch failure on the inner subtree is folded into the
// aggregate instead, and the outer blob is still deleted best-effort.
func (s *StoredBlock) Delete(ctx context.Context, reg *Registry) error {
	var errs []error
	inner, err := s.load(ctx, reg)
	if err != nil {
		errs = append(errs, err)
	} else if err := inner.Delete(ctx, reg); err != nil {
		errs = append(errs, err)
	}
	if err := s.Stored.Delete(ctx, reg); err != nil {
		errs = append(errs, err)
	}
	return aggregate("stored block delete", errs)
}
