package blockstore_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vaultgrid/vaultgrid/blockstore"
	"github.com/vaultgrid/vaultgrid/source/local"
	"github.com/vaultgrid/vaultgrid/source/memory"
)

func newMemoryRegistry(t *testing.T, maxSize, fanout int) (*blockstore.Registry, *memory.Source) {
	t.Helper()
	src := memory.New(maxSize)
	bucket := blockstore.NewBucket("b0", src, nil)
	reg := blockstore.NewRegistry(map[string]*blockstore.Bucket{"b0": bucket}, fanout)
	return reg, src
}

func collect(t *testing.T, ctx context.Context, reg *blockstore.Registry, b blockstore.BlockType, rng blockstore.Range) []byte {
	t.Helper()
	var out bytes.Buffer
	for chunk, err := range b.Get(ctx, reg, rng) {
		require.NoError(t, err)
		out.Write(chunk)
	}
	return out.Bytes()
}

func repeatingBytes(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i % 256)
	}
	return out
}

// property 1: round-trip
func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	reg, _ := newMemoryRegistry(t, 1024, 10)
	data := repeatingBytes(300)

	root, err := blockstore.CreateBlock(ctx, reg, data, 0)
	require.NoError(t, err)

	rng, err := root.Range(ctx, reg)
	require.NoError(t, err)
	require.Equal(t, blockstore.Range{Start: 0, End: len(data)}, rng)

	got := collect(t, ctx, reg, root, rng)
	require.Equal(t, data, got)
}

// property 2: range consistency, plaintext case
func TestRangeConsistencyPlaintext(t *testing.T) {
	ctx := context.Background()
	reg, _ := newMemoryRegistry(t, 1024, 10)
	data := repeatingBytes(40)

	root, err := blockstore.CreateBlock(ctx, reg, data, 7)
	require.NoError(t, err)

	rng, err := root.Range(ctx, reg)
	require.NoError(t, err)
	require.Equal(t, blockstore.Range{Start: 7, End: 7 + len(data)}, rng)
}

// property 2: range consistency, encrypted case — the range reflects the
// logical plaintext length, not the ciphertext-expanded size.
func TestRangeConsistencyEncrypted(t *testing.T) {
	ctx := context.Background()
	src := memory.New(1024)
	key := bytes.Repeat([]byte{0x42}, 32)
	enc, err := blockstore.NewChaCha20Poly1305(key)
	require.NoError(t, err)
	bucket := blockstore.NewBucket("b0", src, enc)
	reg := blockstore.NewRegistry(map[string]*blockstore.Bucket{"b0": bucket}, 10)

	data := repeatingBytes(15)
	root, err := blockstore.CreateBlock(ctx, reg, data, 0)
	require.NoError(t, err)

	rng, err := root.Range(ctx, reg)
	require.NoError(t, err)
	require.Equal(t, blockstore.Range{Start: 0, End: len(data)}, rng)

	got := collect(t, ctx, reg, root, rng)
	require.Equal(t, data, got)
}

// property 3: overwrite idempotence
func TestOverwriteIdempotence(t *testing.T) {
	ctx := context.Background()
	reg, _ := newMemoryRegistry(t, 1024, 10)
	data := repeatingBytes(25)

	root, err := blockstore.CreateBlock(ctx, reg, data, 0)
	require.NoError(t, err)

	shifted := make([]byte, len(data))
	for i, b := range data {
		shifted[i] = byte((int(b) + 5) % 256)
	}

	rng, err := root.Range(ctx, reg)
	require.NoError(t, err)
	require.NoError(t, root.Put(ctx, reg, shifted, rng))

	got := collect(t, ctx, reg, root, rng)
	require.Equal(t, shifted, got)
}

// property 4: fanout law — F+1 chunks' worth of data, each chunk as large
// as the bucket's max, overflows the F Direct children and forces at
// least one StoredBlock tail. The bucket must still be large enough to
// hold the tail's own serialized inner block (a few dozen bytes).
func TestFanoutLaw(t *testing.T) {
	ctx := context.Background()
	const fanout = 10
	reg, _ := newMemoryRegistry(t, 100, fanout)
	data := repeatingBytes(100 * (fanout + 1))

	root, err := blockstore.CreateBlock(ctx, reg, data, 0)
	require.NoError(t, err)
	require.NotNil(t, root.Indirect)
	require.Len(t, root.Indirect.Blocks, fanout+1)

	for i, child := range root.Indirect.Blocks[:fanout] {
		require.NotNilf(t, child.Direct, "child %d should be Direct", i)
	}
	require.NotNil(t, root.Indirect.Blocks[fanout].Stored, "overflow child should be a StoredBlock tail")

	got := collect(t, ctx, reg, root, blockstore.Range{Start: 0, End: len(data)})
	require.Equal(t, data, got)
}

// property 5: cleanup law — delete asks every referenced blob to delete.
func TestCleanupLaw(t *testing.T) {
	ctx := context.Background()
	reg, src := newMemoryRegistry(t, 20, 10)
	data := repeatingBytes(200)

	root, err := blockstore.CreateBlock(ctx, reg, data, 0)
	require.NoError(t, err)
	require.Greater(t, src.Len(), 0)

	require.NoError(t, root.Delete(ctx, reg))
	require.Equal(t, 0, src.Len())
}

// property 6: rollback law — a fault in the k-th Direct child deletes
// every previously created sibling before the error surfaces.
type faultyAfterN struct {
	*memory.Source
	createCount int
	failAfter   int
}

func (f *faultyAfterN) Create(ctx context.Context) (blockstore.Descriptor, error) {
	f.createCount++
	if f.createCount > f.failAfter {
		return nil, fmt.Errorf("faultyAfterN: injected failure on create %d", f.createCount)
	}
	return f.Source.Create(ctx)
}

func TestRollbackLaw(t *testing.T) {
	ctx := context.Background()
	const fanout = 10
	const failAfter = 3 // fail on the 4th direct block's Stored creation
	inner := memory.New(10)
	faulty := &faultyAfterN{Source: inner, failAfter: failAfter}
	bucket := blockstore.NewBucket("b0", faulty, nil)
	reg := blockstore.NewRegistry(map[string]*blockstore.Bucket{"b0": bucket}, fanout)

	data := repeatingBytes(10 * fanout)
	_, err := blockstore.CreateBlock(ctx, reg, data, 0)
	require.Error(t, err)
	require.ErrorIs(t, err, blockstore.ErrBackend)

	require.Equal(t, 0, inner.Len(), "every direct block created before the fault must be rolled back")
}

// property 8: URL round-trip
func TestURLRoundTrip(t *testing.T) {
	cases := []blockstore.Stored{
		{Bucket: "plain", Descriptor: blockstore.Descriptor("abc123")},
		{Bucket: "has$dollar", Descriptor: blockstore.Descriptor("also$has$dollars")},
		{Bucket: "spaces and /slashes", Descriptor: blockstore.Descriptor([]byte{0, 1, 2, 255})},
		{Bucket: "", Descriptor: blockstore.Descriptor("")},
	}
	for _, s := range cases {
		url := s.AsURL()
		got, err := blockstore.ParseStoredURL(url)
		require.NoError(t, err)
		require.True(t, s.Equal(got), "round trip mismatch for %+v via %q -> %+v", s, url, got)
	}
}

// property 1, filesystem backend: the round-trip property must also
// hold against a real backend, not only the in-memory test double.
func TestRoundTripLocalBackend(t *testing.T) {
	ctx := context.Background()
	src, err := local.New(t.TempDir(), 1024)
	require.NoError(t, err)
	bucket := blockstore.NewBucket("b0", src, nil)
	reg := blockstore.NewRegistry(map[string]*blockstore.Bucket{"b0": bucket}, 10)

	data := repeatingBytes(500)
	root, err := blockstore.CreateBlock(ctx, reg, data, 0)
	require.NoError(t, err)

	rng, err := root.Range(ctx, reg)
	require.NoError(t, err)
	got := collect(t, ctx, reg, root, rng)
	require.Equal(t, data, got)

	require.NoError(t, root.Delete(ctx, reg))
}

// scenario a: unencrypted_fits_in_one_block
func TestScenarioUnencryptedFitsInOneBlock(t *testing.T) {
	ctx := context.Background()
	reg, _ := newMemoryRegistry(t, 30, 10)
	data := bytes.Repeat([]byte{1, 2, 3, 4, 5}, 5) // 25 bytes

	root, err := blockstore.CreateBlock(ctx, reg, data, 0)
	require.NoError(t, err)
	require.NotNil(t, root.Indirect)
	require.Len(t, root.Indirect.Blocks, 1)
	require.NotNil(t, root.Indirect.Blocks[0].Direct)

	rng, err := root.Range(ctx, reg)
	require.NoError(t, err)
	require.Equal(t, blockstore.Range{Start: 0, End: 25}, rng)

	got := collect(t, ctx, reg, root, rng)
	require.Equal(t, data, got)
}

// scenario b: encrypted_fits_in_one_block. The source's advertised max
// size must leave room for the AEAD's nonce+tag overhead (28 bytes for
// ChaCha20Poly1305) on top of the 15-byte payload.
func TestScenarioEncryptedFitsInOneBlock(t *testing.T) {
	ctx := context.Background()
	src := memory.New(100)
	key := bytes.Repeat([]byte{0x07}, 32)
	enc, err := blockstore.NewChaCha20Poly1305(key)
	require.NoError(t, err)
	bucket := blockstore.NewBucket("b0", src, enc)
	reg := blockstore.NewRegistry(map[string]*blockstore.Bucket{"b0": bucket}, 10)

	data := repeatingBytes(15)
	root, err := blockstore.CreateBlock(ctx, reg, data, 0)
	require.NoError(t, err)
	require.Len(t, root.Indirect.Blocks, 1)
	require.NotNil(t, root.Indirect.Blocks[0].Direct)

	rng, err := root.Range(ctx, reg)
	require.NoError(t, err)
	require.Equal(t, blockstore.Range{Start: 0, End: 15}, rng)

	got := collect(t, ctx, reg, root, rng)
	require.Equal(t, data, got)
}

// scenario c: unencrypted_fits_direct_blocks
func TestScenarioUnencryptedFitsDirectBlocks(t *testing.T) {
	ctx := context.Background()
	reg, _ := newMemoryRegistry(t, 30, 10)
	data := repeatingBytes(50)

	root, err := blockstore.CreateBlock(ctx, reg, data, 0)
	require.NoError(t, err)
	require.NotNil(t, root.Indirect)
	require.GreaterOrEqual(t, len(root.Indirect.Blocks), 2)

	offset := 0
	for _, child := range root.Indirect.Blocks {
		require.NotNil(t, child.Direct, "scenario c expects only Direct children")
		rng, err := child.Range(ctx, reg)
		require.NoError(t, err)
		require.Equal(t, offset, rng.Start)
		offset = rng.End
	}
	require.Equal(t, 50, offset)

	got := collect(t, ctx, reg, root, blockstore.Range{Start: 0, End: 50})
	require.Equal(t, data, got)
}

// scenario d: unencrypted_needs_indirect_blocks
func TestScenarioUnencryptedNeedsIndirectBlocks(t *testing.T) {
	ctx := context.Background()
	const fanout = 10
	reg, _ := newMemoryRegistry(t, 700, fanout)
	pattern := []byte{9, 8, 7, 6, 5}
	data := bytes.Repeat(pattern, 10000) // 50,000 bytes

	root, err := blockstore.CreateBlock(ctx, reg, data, 0)
	require.NoError(t, err)
	require.NotNil(t, root.Indirect)
	require.Len(t, root.Indirect.Blocks, fanout+1)
	for _, child := range root.Indirect.Blocks[:fanout] {
		require.NotNil(t, child.Direct)
	}
	require.NotNil(t, root.Indirect.Blocks[fanout].Stored)

	got := collect(t, ctx, reg, root, blockstore.Range{Start: 0, End: len(data)})
	require.Equal(t, data, got)
}

// scenario e: put-then-get with shifted values, continuing from scenario a
func TestScenarioPutThenGetShifted(t *testing.T) {
	ctx := context.Background()
	reg, _ := newMemoryRegistry(t, 30, 10)
	data := bytes.Repeat([]byte{1, 2, 3, 4, 5}, 5)

	root, err := blockstore.CreateBlock(ctx, reg, data, 0)
	require.NoError(t, err)

	shifted := make([]byte, len(data))
	for i, b := range data {
		shifted[i] = byte((int(b) + 5) % 256)
	}
	require.NoError(t, root.Put(ctx, reg, shifted, blockstore.Range{Start: 0, End: len(data)}))

	got := collect(t, ctx, reg, root, blockstore.Range{Start: 0, End: len(data)})
	require.Equal(t, shifted, got)
}
