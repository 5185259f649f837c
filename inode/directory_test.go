package inode_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vaultgrid/vaultgrid/blockstore"
	"github.com/vaultgrid/vaultgrid/inode"
	"github.com/vaultgrid/vaultgrid/source/memory"
)

func newMemoryRegistry(maxSize, fanout int) (*blockstore.Registry, *memory.Source) {
	src := memory.New(maxSize)
	bucket := blockstore.NewBucket("b0", src, nil)
	reg := blockstore.NewRegistry(map[string]*blockstore.Bucket{"b0": bucket}, fanout)
	return reg, src
}

// scenario (f): a directory holding two files, remove one by name, and
// confirm both the listing and the backing blobs reflect the removal.
func TestDirectoryRemoveLeavesSiblingIntact(t *testing.T) {
	ctx := context.Background()
	reg, src := newMemoryRegistry(1024, 10)

	dir := inode.NewDirectory(time.Now())

	fileA, err := inode.CreateFile(ctx, reg, []byte("hello from a"))
	require.NoError(t, err)
	_, err = dir.Add(ctx, reg, "a.txt", inode.FileInodeType(fileA))
	require.NoError(t, err)

	fileB, err := inode.CreateFile(ctx, reg, []byte("hello from b, a bit longer"))
	require.NoError(t, err)
	_, err = dir.Add(ctx, reg, "b.txt", inode.FileInodeType(fileB))
	require.NoError(t, err)

	require.Equal(t, []string{"a.txt", "b.txt"}, dir.List())
	blobsBeforeRemove := src.Len()

	require.NoError(t, dir.Remove(ctx, reg, "a.txt"))

	require.Equal(t, []string{"b.txt"}, dir.List())
	_, err = dir.Get("a.txt")
	require.ErrorIs(t, err, blockstore.ErrNotFound)

	require.Less(t, src.Len(), blobsBeforeRemove, "removing a.txt should have deleted its backing blobs")

	bStored, err := dir.Get("b.txt")
	require.NoError(t, err)
	bEntry, err := blockstore.StoredGet[inode.InodeType](ctx, reg, bStored)
	require.NoError(t, err)
	require.NotNil(t, bEntry.File)

	var out []byte
	for chunk, err := range bEntry.File.Get(ctx, reg) {
		require.NoError(t, err)
		out = append(out, chunk...)
	}
	require.Equal(t, []byte("hello from b, a bit longer"), out)
}

func TestDirectoryAddRejectsDuplicateName(t *testing.T) {
	ctx := context.Background()
	reg, _ := newMemoryRegistry(1024, 10)
	dir := inode.NewDirectory(time.Now())

	f1, err := inode.CreateFile(ctx, reg, []byte("one"))
	require.NoError(t, err)
	_, err = dir.Add(ctx, reg, "x", inode.FileInodeType(f1))
	require.NoError(t, err)

	f2, err := inode.CreateFile(ctx, reg, []byte("two"))
	require.NoError(t, err)
	_, err = dir.Add(ctx, reg, "x", inode.FileInodeType(f2))
	require.ErrorIs(t, err, blockstore.ErrInvariant)
}

func TestDirectoryUnlinkThenPutMovesEntryWithoutDeletingBlob(t *testing.T) {
	ctx := context.Background()
	reg, src := newMemoryRegistry(1024, 10)
	dir := inode.NewDirectory(time.Now())

	f, err := inode.CreateFile(ctx, reg, []byte("payload"))
	require.NoError(t, err)
	_, err = dir.Add(ctx, reg, "src.txt", inode.FileInodeType(f))
	require.NoError(t, err)
	blobsBefore := src.Len()

	stored, err := dir.Unlink("src.txt")
	require.NoError(t, err)
	_, err = dir.Get("src.txt")
	require.ErrorIs(t, err, blockstore.ErrNotFound)

	require.NoError(t, dir.Put("dst.txt", stored))
	require.Equal(t, []string{"dst.txt"}, dir.List())
	require.Equal(t, blobsBefore, src.Len(), "unlink+put should not touch backing blobs")

	require.NoError(t, dir.Remove(ctx, reg, "dst.txt"))
}

// a directory's own Delete must best-effort aggregate and remove every
// child's blobs, not just unlink the map entries.
func TestDirectoryDeleteRemovesAllChildBlobs(t *testing.T) {
	ctx := context.Background()
	reg, src := newMemoryRegistry(1024, 10)
	dir := inode.NewDirectory(time.Now())

	fileA, err := inode.CreateFile(ctx, reg, []byte("a"))
	require.NoError(t, err)
	_, err = dir.Add(ctx, reg, "a.txt", inode.FileInodeType(fileA))
	require.NoError(t, err)

	fileB, err := inode.CreateFile(ctx, reg, []byte("b"))
	require.NoError(t, err)
	_, err = dir.Add(ctx, reg, "b.txt", inode.FileInodeType(fileB))
	require.NoError(t, err)

	require.NoError(t, dir.Delete(ctx, reg))
	require.Equal(t, 0, src.Len())
}
