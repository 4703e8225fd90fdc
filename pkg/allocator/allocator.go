// Package allocator places file extents in the data region.
//
// The policy is first-fit: candidate start blocks are scanned from block 0
// upward and the first one whose whole requested range is free wins. Every
// used entry contributes its full extent to the occupied set; comparing only
// start blocks would let a new file land inside a neighbor's range.
package allocator

import (
	"sort"

	"github.com/marmos91/blockfs/internal/logger"
	"github.com/marmos91/blockfs/pkg/metadata"
)

// NoExclude tells Allocate to consider every used entry occupied.
const NoExclude = -1

// Allocate returns the lowest start block where size bytes fit without
// intersecting any used entry's extent.
//
// Parameters:
//   - md: current table
//   - size: requested length in bytes; an empty file still needs one free
//     block to sit on
//   - totalBlocks: number of blocks in the data region
//   - exclude: slot whose own extent is ignored (the file being relocated),
//     or NoExclude
//
// Returns:
//   - int64: start block
//   - error: ErrNoSpace StoreError if no contiguous run fits
func Allocate(md *metadata.Metadata, size, totalBlocks int64, exclude int) (int64, error) {
	need := max(1, metadata.BlocksFor(size))
	occupied := Occupied(md, exclude)

	// Extents are sorted by start, so a single pass can jump the candidate
	// past each conflicting extent instead of stepping one block at a time.
	// The result is the same block the one-at-a-time scan would find.
	candidate := int64(0)
	for _, ext := range occupied {
		if candidate+need <= ext.Start {
			break
		}
		if metadata.ExtentFor(candidate, need*metadata.BlockSize).Overlaps(ext) {
			candidate = ext.End
		}
	}

	if candidate+need > totalBlocks {
		return 0, metadata.NewError(metadata.ErrNoSpace, "",
			"no run of %d free blocks (data region has %d)", need, totalBlocks)
	}

	logger.Debug("allocated blocks [%d,%d) for %d bytes", candidate, candidate+need, size)
	return candidate, nil
}

// Fits reports whether size bytes can sit at start without leaving the data
// region or touching another used entry's extent.
func Fits(md *metadata.Metadata, start, size, totalBlocks int64, exclude int) bool {
	want := metadata.ExtentFor(start, size)
	if want.End > totalBlocks {
		return false
	}
	for _, ext := range Occupied(md, exclude) {
		if want.Overlaps(ext) {
			return false
		}
	}
	return true
}

// Occupied returns the non-empty extents of used entries (except exclude),
// sorted by start block.
func Occupied(md *metadata.Metadata, exclude int) []metadata.Extent {
	extents := make([]metadata.Extent, 0, md.FileCount)
	for i := range md.Entries {
		e := &md.Entries[i]
		if !e.Used || i == exclude {
			continue
		}
		if ext := e.Extent(); ext.Len() > 0 {
			extents = append(extents, ext)
		}
	}

	sort.Slice(extents, func(i, j int) bool {
		return extents[i].Start < extents[j].Start
	})
	return extents
}

// FreeBlocks returns the number of blocks not covered by any used extent.
func FreeBlocks(md *metadata.Metadata, totalBlocks int64) int64 {
	used := int64(0)
	for _, ext := range Occupied(md, NoExclude) {
		used += ext.Len()
	}
	return max(0, totalBlocks-used)
}
