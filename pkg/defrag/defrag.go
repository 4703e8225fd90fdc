// Package defrag compacts file extents toward the front of the data region.
package defrag

import (
	"context"
	"sort"

	"github.com/marmos91/blockfs/internal/logger"
	"github.com/marmos91/blockfs/pkg/metadata"
)

// Region is the block-addressed data area the defragmenter moves content in.
// *metadata.DataRegion satisfies it.
type Region interface {
	Read(ctx context.Context, start, offset int64, length int) ([]byte, error)
	Write(ctx context.Context, start, offset int64, data []byte) error
}

// Move records one relocation.
type Move struct {
	Name string
	From int64
	To   int64
	Size int64
}

// Result summarizes a defragmentation pass.
type Result struct {
	// Moves lists relocated files in the order they were moved
	Moves []Move

	// EndBlock is the first block after the last used extent
	EndBlock int64
}

// Moved reports whether any file changed place.
func (r Result) Moved() bool {
	return len(r.Moves) > 0
}

// Run compacts md's used extents toward block 0.
//
// Files are visited in ascending start block order (slot index breaks ties),
// so relative order is preserved. A file that starts beyond the cursor has
// its whole content copied to the cursor and its StartBlock updated; any
// other file just pushes the cursor past its extent.
//
// Run mutates md in place and writes to region, but never persists md. The
// caller saves the table once after Run returns; if Run fails part way the
// persisted table is the old one and md must be discarded.
func Run(ctx context.Context, md *metadata.Metadata, region Region) (Result, error) {
	order := make([]int, 0, md.FileCount)
	for i := range md.Entries {
		if md.Entries[i].Used {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return md.Entries[order[a]].StartBlock < md.Entries[order[b]].StartBlock
	})

	var result Result
	cursor := int64(0)

	for _, slot := range order {
		entry := &md.Entries[slot]

		if entry.StartBlock <= cursor {
			cursor = max(cursor, entry.Extent().End)
			continue
		}

		// Empty files have nothing to copy; they still move so that they
		// sit on the compacted prefix.
		if entry.Size > 0 {
			data, err := region.Read(ctx, entry.StartBlock, 0, int(entry.Size))
			if err != nil {
				return result, err
			}
			if err := region.Write(ctx, cursor, 0, data); err != nil {
				return result, err
			}
		}

		logger.Debug("defrag: %s blocks %d -> %d (%d bytes)", entry.Name, entry.StartBlock, cursor, entry.Size)
		result.Moves = append(result.Moves, Move{
			Name: entry.Name,
			From: entry.StartBlock,
			To:   cursor,
			Size: entry.Size,
		})

		entry.StartBlock = cursor
		cursor += metadata.BlocksFor(entry.Size)
	}

	result.EndBlock = cursor
	return result, nil
}
