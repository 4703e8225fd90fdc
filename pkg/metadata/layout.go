package metadata

import (
	"context"
	"fmt"

	"github.com/marmos91/blockfs/pkg/disk"
)

// Container layout constants.
//
//	[0, MetadataSize)          metadata record (see codec.go)
//	[MetadataSize, capacity)   data region, BlockSize-byte blocks
//
// Block 0 starts immediately after the metadata region.
const (
	// DefaultCapacity is the size of a freshly formatted container (1 MiB)
	DefaultCapacity = 1024 * 1024

	// MetadataSize is the reserved region holding the metadata record
	MetadataSize = 4096

	// MaxFiles is the number of file slots in the table
	MaxFiles = 48

	// NameFieldLen is the on-disk name field; names must be shorter so the
	// field always holds a NUL terminator
	NameFieldLen = 32

	// BlockSize is the allocation unit of the data region
	BlockSize = 512
)

// BlocksFor returns ceil(size / BlockSize).
func BlocksFor(size int64) int64 {
	if size <= 0 {
		return 0
	}
	return (size + BlockSize - 1) / BlockSize
}

// DataBlocks returns how many whole blocks fit in a container of the given
// capacity after the metadata region.
func DataBlocks(capacity int64) int64 {
	if capacity <= MetadataSize {
		return 0
	}
	return (capacity - MetadataSize) / BlockSize
}

// BlockOffset returns the container offset of a data block.
func BlockOffset(block int64) int64 {
	return MetadataSize + block*BlockSize
}

// DataRegion reads and writes file content addressed by block, on top of a
// disk.Store. It knows the layout but nothing about files.
type DataRegion struct {
	store disk.Store
}

// NewDataRegion wraps store.
func NewDataRegion(store disk.Store) *DataRegion {
	return &DataRegion{store: store}
}

// Blocks returns the number of data blocks in the container.
func (r *DataRegion) Blocks() int64 {
	return DataBlocks(r.store.Capacity())
}

// Read returns length bytes starting offset bytes into block start.
func (r *DataRegion) Read(ctx context.Context, start, offset int64, length int) ([]byte, error) {
	if length == 0 {
		return []byte{}, nil
	}
	data, err := r.store.ReadRegion(ctx, BlockOffset(start)+offset, length)
	if err != nil {
		return nil, WrapError(ErrStoreUnavailable, err,
			"failed to read %d bytes at block %d+%d", length, start, offset)
	}
	return data, nil
}

// Write stores data starting offset bytes into block start.
func (r *DataRegion) Write(ctx context.Context, start, offset int64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := r.store.WriteRegion(ctx, BlockOffset(start)+offset, data); err != nil {
		return WrapError(ErrStoreUnavailable, err,
			"failed to write %d bytes at block %d+%d", len(data), start, offset)
	}
	return nil
}

// String describes the geometry, e.g. for log lines.
func (r *DataRegion) String() string {
	return fmt.Sprintf("%d blocks x %d bytes", r.Blocks(), BlockSize)
}
