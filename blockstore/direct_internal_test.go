package blockstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// property 7: empty-Direct rejection. This lives in the internal test
// package because createDirectBlock is deliberately not exported — a
// Direct block is only ever produced by the tree's own factories.
func TestCreateDirectBlockRejectsEmptyData(t *testing.T) {
	ctx := context.Background()
	_, err := createDirectBlock(ctx, nil, nil, 0)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvariant)
}
