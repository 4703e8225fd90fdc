package allocator

import (
	"math/rand"
	"testing"

	"github.com/marmos91/blockfs/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableWith(extents ...[2]int64) *metadata.Metadata {
	md := &metadata.Metadata{}
	for i, ext := range extents {
		md.Entries[i] = metadata.FileEntry{
			Name:       string(rune('a' + i)),
			StartBlock: ext[0],
			Size:       ext[1],
			Used:       true,
		}
	}
	md.FileCount = len(extents)
	return md
}

func TestAllocate_EmptyTable(t *testing.T) {
	start, err := Allocate(&metadata.Metadata{}, 0, 10, NoExclude)
	require.NoError(t, err)
	assert.Equal(t, int64(0), start)
}

func TestAllocate_FirstFitUsesGap(t *testing.T) {
	// [0,1) used, [1,3) free, [3,4) used
	md := tableWith([2]int64{0, 100}, [2]int64{3, 512})

	start, err := Allocate(md, 1024, 10, NoExclude)
	require.NoError(t, err)
	assert.Equal(t, int64(1), start)

	// Three blocks do not fit in the gap.
	start, err = Allocate(md, 1025, 10, NoExclude)
	require.NoError(t, err)
	assert.Equal(t, int64(4), start)
}

func TestAllocate_FullExtentNotJustStartBlock(t *testing.T) {
	// A 3-block file at block 0. A start-block-only check would hand out
	// block 1, which lies inside it.
	md := tableWith([2]int64{0, 3 * metadata.BlockSize})

	start, err := Allocate(md, 1, 10, NoExclude)
	require.NoError(t, err)
	assert.Equal(t, int64(3), start)
}

func TestAllocate_EmptyFilesDoNotOccupy(t *testing.T) {
	md := tableWith([2]int64{0, 0}, [2]int64{0, 0})

	start, err := Allocate(md, 10, 10, NoExclude)
	require.NoError(t, err)
	assert.Equal(t, int64(0), start)
}

func TestAllocate_NoSpace(t *testing.T) {
	md := tableWith([2]int64{0, 4 * metadata.BlockSize}, [2]int64{6, 4 * metadata.BlockSize})

	_, err := Allocate(md, 3*metadata.BlockSize, 10, NoExclude)
	assert.True(t, metadata.IsCode(err, metadata.ErrNoSpace))

	_, err = Allocate(md, 0, 10, NoExclude)
	require.NoError(t, err, "an empty file fits in the 2-block gap")

	full := tableWith([2]int64{0, 10 * metadata.BlockSize})
	_, err = Allocate(full, 0, 10, NoExclude)
	assert.True(t, metadata.IsCode(err, metadata.ErrNoSpace))
}

func TestAllocate_Exclude(t *testing.T) {
	md := tableWith([2]int64{0, 2 * metadata.BlockSize}, [2]int64{2, metadata.BlockSize})

	start, err := Allocate(md, 2*metadata.BlockSize, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), start, "the excluded file's own blocks are reusable")
}

func TestFits(t *testing.T) {
	md := tableWith([2]int64{0, metadata.BlockSize}, [2]int64{3, metadata.BlockSize})

	assert.True(t, Fits(md, 1, 2*metadata.BlockSize, 10, NoExclude))
	assert.False(t, Fits(md, 1, 2*metadata.BlockSize+1, 10, NoExclude))
	assert.True(t, Fits(md, 0, 3*metadata.BlockSize, 10, 0))
	assert.False(t, Fits(md, 9, 2*metadata.BlockSize, 10, NoExclude))
}

func TestFreeBlocks(t *testing.T) {
	md := tableWith([2]int64{0, 1}, [2]int64{5, 1025})
	assert.Equal(t, int64(6), FreeBlocks(md, 10))
}

// TestAllocate_MatchesLinearScan checks the gap-jumping scan against the
// straightforward block-by-block search on random tables.
func TestAllocate_MatchesLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const total = 64

	for iter := 0; iter < 500; iter++ {
		md := &metadata.Metadata{}
		for i := 0; i < 6; i++ {
			size := rng.Int63n(6 * metadata.BlockSize)
			start, err := Allocate(md, size, total, NoExclude)
			if err != nil {
				break
			}
			md.Entries[i] = metadata.FileEntry{Name: string(rune('a' + i)), StartBlock: start, Size: size, Used: true}
			md.FileCount++
		}

		size := rng.Int63n(10 * metadata.BlockSize)
		got, err := Allocate(md, size, total, NoExclude)
		want := linearScan(md, size, total)

		if want < 0 {
			assert.True(t, metadata.IsCode(err, metadata.ErrNoSpace))
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func linearScan(md *metadata.Metadata, size, total int64) int64 {
	need := max(1, metadata.BlocksFor(size))
	for c := int64(0); c+need <= total; c++ {
		if Fits(md, c, need*metadata.BlockSize, total, NoExclude) {
			return c
		}
	}
	return -1
}
