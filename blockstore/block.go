package blockstore

import (
	"bytes"
	"context"
	"fmt"
	"iter"

	"github.com/vmihailenco/msgpack/v5"
)

// Range is a half-open logical byte range [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns End-Start.
func (r Range) Len() int { return r.End - r.Start }

// MarshalMsgpack encodes r as the two-element array [start, end].
func (r Range) MarshalMsgpack() ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := enc.EncodeArrayLen(2); err != nil {
		return nil, err
	}
	if err := enc.EncodeInt(int64(r.Start)); err != nil {
		return nil, err
	}
	if err := enc.EncodeInt(int64(r.End)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalMsgpack decodes the two-element [start, end] array form.
func (r *Range) UnmarshalMsgpack(data []byte) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return fmt.Errorf("%w: decode Range header: %v", ErrCodec, err)
	}
	if n != 2 {
		return fmt.Errorf("%w: Range array must have exactly 2 elements, got %d", ErrCodec, n)
	}
	start, err := dec.DecodeInt()
	if err != nil {
		return fmt.Errorf("%w: decode Range start: %v", ErrCodec, err)
	}
	end, err := dec.DecodeInt()
	if err != nil {
		return fmt.Errorf("%w: decode Range end: %v", ErrCodec, err)
	}
	r.Start, r.End = start, end
	return nil
}

// Block is the operation set every block-tree node variant implements.
// Range is context-aware because a StoredBlock must fetch its inner
// blob to report its span; a Direct or Indirect block answers from
// memory but still takes the same shape so callers never need to know
// which variant they are holding.
//
// Get returns the subtree's entire stored contents as a lazy, ordered
// sequence of chunks; rng is advisory and passed through to children —
// current leaves ignore it and yield their whole blob, so trimming to an
// exact sub-range is the caller's responsibility.
//
// Create is deliberately not part of this interface: it is a type-level
// factory (which concrete variant to build), not a virtual method, so
// each variant exposes its own Create and the package-level CreateBlock
// picks the default (Indirect).
type Block interface {
	Range(ctx context.Context, reg *Registry) (Range, error)
	Get(ctx context.Context, reg *Registry, rng Range) iter.Seq2[[]byte, error]
	Put(ctx context.Context, reg *Registry, data []byte, rng Range) error
	Delete(ctx context.Context, reg *Registry) error
}

// block tag bytes on the wire: a single letter per variant, keeping
// encoded blocks compact.
const (
	tagDirect   = "d"
	tagIndirect = "i"
	tagStored   = "s"
)

// BlockType is the tagged union of the three block variants. Exactly one
// field is non-nil; the zero value is not a valid BlockType. It
// implements Block itself by dispatching to whichever variant is set,
// so callers can hold a BlockType without a type switch.
type BlockType struct {
	Direct   *DirectBlock
	Indirect *IndirectBlock
	Stored   *StoredBlock
}

func directBlockType(b *DirectBlock) BlockType     { return BlockType{Direct: b} }
func indirectBlockType(b *IndirectBlock) BlockType { return BlockType{Indirect: b} }
func storedBlockType(b *StoredBlock) BlockType     { return BlockType{Stored: b} }

// inner returns the one set variant as a Block.
func (b BlockType) inner() Block {
	switch {
	case b.Direct != nil:
		return b.Direct
	case b.Indirect != nil:
		return b.Indirect
	case b.Stored != nil:
		return b.Stored
	default:
		panic("blockstore: BlockType has no variant set")
	}
}

func (b BlockType) Range(ctx context.Context, reg *Registry) (Range, error) { return b.inner().Range(ctx, reg) }

func (b BlockType) Get(ctx context.Context, reg *Registry, rng Range) iter.Seq2[[]byte, error] {
	return b.inner().Get(ctx, reg, rng)
}

func (b BlockType) Put(ctx context.Context, reg *Registry, data []byte, rng Range) error {
	return b.inner().Put(ctx, reg, data, rng)
}

func (b BlockType) Delete(ctx context.Context, reg *Registry) error {
	return b.inner().Delete(ctx, reg)
}

// CreateBlock is the default block factory: it always builds an
// Indirect subtree, because an Indirect can hold arbitrary sizes via
// recursive StoredBlock tails.
func CreateBlock(ctx context.Context, reg *Registry, data []byte, start int) (BlockType, error) {
	return createIndirectBlock(ctx, reg, data, start)
}

// MarshalMsgpack encodes b as a single-key map, {"d": ...}, {"i": ...}
// or {"s": ...}.
func (b BlockType) MarshalMsgpack() ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseArrayEncodedStructs(false)
	if err := enc.EncodeMapLen(1); err != nil {
		return nil, err
	}
	switch {
	case b.Direct != nil:
		if err := enc.EncodeString(tagDirect); err != nil {
			return nil, err
		}
		if err := enc.Encode(b.Direct); err != nil {
			return nil, err
		}
	case b.Indirect != nil:
		if err := enc.EncodeString(tagIndirect); err != nil {
			return nil, err
		}
		if err := enc.Encode(b.Indirect); err != nil {
			return nil, err
		}
	case b.Stored != nil:
		if err := enc.EncodeString(tagStored); err != nil {
			return nil, err
		}
		if err := enc.Encode(b.Stored); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: encode BlockType with no variant set", ErrInvariant)
	}
	return buf.Bytes(), nil
}

// UnmarshalMsgpack decodes the single-key tagged map back into the
// matching variant.
func (b *BlockType) UnmarshalMsgpack(data []byte) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseArrayEncodedStructs(false)
	n, err := dec.DecodeMapLen()
	if err != nil {
		return fmt.Errorf("%w: decode BlockType header: %v", ErrCodec, err)
	}
	if n != 1 {
		return fmt.Errorf("%w: BlockType map must have exactly one key, got %d", ErrCodec, n)
	}
	tag, err := dec.DecodeString()
	if err != nil {
		return fmt.Errorf("%w: decode BlockType tag: %v", ErrCodec, err)
	}
	switch tag {
	case tagDirect:
		var d DirectBlock
		if err := dec.Decode(&d); err != nil {
			return fmt.Errorf("%w: decode DirectBlock: %v", ErrCodec, err)
		}
		*b = directBlockType(&d)
	case tagIndirect:
		var ib IndirectBlock
		if err := dec.Decode(&ib); err != nil {
			return fmt.Errorf("%w: decode IndirectBlock: %v", ErrCodec, err)
		}
		*b = indirectBlockType(&ib)
	case tagStored:
		var sb StoredBlock
		if err := dec.Decode(&sb); err != nil {
			return fmt.Errorf("%w: decode StoredBlock: %v", ErrCodec, err)
		}
		*b = storedBlockType(&sb)
	default:
		return fmt.Errorf("%w: unknown BlockType tag %q", ErrCodec, tag)
	}
	return nil
}
