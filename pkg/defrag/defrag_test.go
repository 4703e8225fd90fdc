package defrag

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/marmos91/blockfs/pkg/disk/memory"
	"github.com/marmos91/blockfs/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBlocks = 32

func newRegion(t *testing.T) *metadata.DataRegion {
	t.Helper()
	store, err := memory.NewMemoryStore(context.Background(), metadata.MetadataSize+testBlocks*metadata.BlockSize)
	require.NoError(t, err)
	return metadata.NewDataRegion(store)
}

func place(t *testing.T, region *metadata.DataRegion, md *metadata.Metadata, slot int, name string, start int64, data []byte) {
	t.Helper()
	require.NoError(t, region.Write(context.Background(), start, 0, data))
	md.Entries[slot] = metadata.FileEntry{Name: name, StartBlock: start, Size: int64(len(data)), Used: true}
	md.FileCount++
}

func TestRun_CompactsGapsPreservingOrder(t *testing.T) {
	ctx := context.Background()
	region := newRegion(t)
	md := &metadata.Metadata{}

	big := bytes.Repeat([]byte("B"), 2*metadata.BlockSize+7)
	place(t, region, md, 0, "c", 20, []byte("third"))
	place(t, region, md, 1, "a", 2, []byte("first"))
	place(t, region, md, 2, "b", 5, big)

	result, err := Run(ctx, md, region)
	require.NoError(t, err)

	assert.Equal(t, int64(0), md.Entries[1].StartBlock)
	assert.Equal(t, int64(1), md.Entries[2].StartBlock)
	assert.Equal(t, int64(4), md.Entries[0].StartBlock)
	assert.Equal(t, int64(5), result.EndBlock)
	assert.Equal(t, []string{"a", "b", "c"}, movedNames(result))

	for _, want := range []struct {
		slot int
		data []byte
	}{{1, []byte("first")}, {2, big}, {0, []byte("third")}} {
		e := md.Entries[want.slot]
		got, err := region.Read(ctx, e.StartBlock, 0, int(e.Size))
		require.NoError(t, err)
		assert.Equal(t, want.data, got, e.Name)
	}
}

func TestRun_AlreadyCompact(t *testing.T) {
	region := newRegion(t)
	md := &metadata.Metadata{}
	place(t, region, md, 0, "a", 0, []byte("x"))
	place(t, region, md, 1, "b", 1, bytes.Repeat([]byte("y"), 600))

	result, err := Run(context.Background(), md, region)
	require.NoError(t, err)
	assert.False(t, result.Moved())
	assert.Equal(t, int64(3), result.EndBlock)
}

func TestRun_EmptyFilesMoveToCursor(t *testing.T) {
	region := newRegion(t)
	md := &metadata.Metadata{}
	place(t, region, md, 0, "empty", 9, nil)
	place(t, region, md, 1, "a", 3, []byte("a"))

	_, err := Run(context.Background(), md, region)
	require.NoError(t, err)
	assert.Equal(t, int64(0), md.Entries[1].StartBlock)
	assert.Equal(t, int64(1), md.Entries[0].StartBlock)
}

type failingRegion struct {
	*metadata.DataRegion
}

func (f failingRegion) Write(context.Context, int64, int64, []byte) error {
	return metadata.WrapError(metadata.ErrStoreUnavailable, errors.New("disk gone"), "write failed")
}

func TestRun_WriteFailure(t *testing.T) {
	region := newRegion(t)
	md := &metadata.Metadata{}
	place(t, region, md, 0, "a", 4, []byte("a"))

	_, err := Run(context.Background(), md, failingRegion{region})
	assert.True(t, metadata.IsCode(err, metadata.ErrStoreUnavailable))
	assert.Equal(t, int64(4), md.Entries[0].StartBlock, "a failed move leaves the entry untouched")
}

func movedNames(r Result) []string {
	names := make([]string, 0, len(r.Moves))
	for _, m := range r.Moves {
		names = append(names, m.Name)
	}
	return names
}
