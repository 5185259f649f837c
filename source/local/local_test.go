package local_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vaultgrid/vaultgrid/source/local"
)

func TestSourcePutGetDelete(t *testing.T) {
	ctx := context.Background()
	src, err := local.New(t.TempDir(), 1024)
	require.NoError(t, err)

	descriptor, err := src.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, src.Put(ctx, descriptor, []byte("hello world")))

	got, err := src.Get(ctx, descriptor)
	require.NoError(t, err)
	require.Equal(t, []byte("hello world"), got)

	require.NoError(t, src.Delete(ctx, descriptor))
	_, err = src.Get(ctx, descriptor)
	require.Error(t, err)
}

func TestSourceRejectsOversizedPayload(t *testing.T) {
	ctx := context.Background()
	src, err := local.New(t.TempDir(), 4)
	require.NoError(t, err)

	descriptor, err := src.Create(ctx)
	require.NoError(t, err)
	err = src.Put(ctx, descriptor, []byte("too big"))
	require.Error(t, err)
}

func TestNewCreatesBaseDir(t *testing.T) {
	dir := t.TempDir() + "/nested/path"
	_, err := local.New(dir, 0)
	require.NoError(t, err)
	info, err := os.Stat(dir + "/blobs")
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
