package metadata

import (
	"context"
	"errors"

	"github.com/marmos91/blockfs/internal/logger"
	"github.com/marmos91/blockfs/pkg/disk"
)

// Table persists the metadata record at offset 0 of a disk.Store.
//
// Every Load reads the whole record and every Save rewrites it in a single
// WriteRegion call. Save is not crash-atomic: a failure mid-write can leave
// a partially updated record, which the checksum turns into ErrCorrupt on
// the next Load.
type Table struct {
	store disk.Store
}

// NewTable creates a table over store.
func NewTable(store disk.Store) *Table {
	return &Table{store: store}
}

// Store returns the backing store.
func (t *Table) Store() disk.Store {
	return t.store
}

// Format initializes the container to capacity bytes and writes an empty
// table.
func (t *Table) Format(ctx context.Context, capacity int64) error {
	if capacity <= MetadataSize {
		return NewError(ErrInvalidSize, "", "capacity %d leaves no room for data blocks", capacity)
	}
	if err := t.store.Initialize(ctx, capacity); err != nil {
		return WrapError(ErrStoreUnavailable, err, "failed to initialize container")
	}

	logger.Debug("formatted container: %d bytes, %d data blocks", capacity, DataBlocks(capacity))
	return t.Save(ctx, &Metadata{})
}

// Load reads and validates the metadata record.
//
// Returns:
//   - *Metadata: the decoded table
//   - error: ErrStoreUnavailable if the region cannot be read (including a
//     container smaller than the record), ErrCorrupt for a bad record
func (t *Table) Load(ctx context.Context) (*Metadata, error) {
	data, err := t.store.ReadRegion(ctx, 0, MetadataSize)
	if err != nil {
		if errors.Is(err, disk.ErrOutOfBounds) {
			return nil, WrapError(ErrCorrupt, err, "container too small for metadata (not formatted?)")
		}
		return nil, WrapError(ErrStoreUnavailable, err, "failed to read metadata")
	}

	md, err := Decode(data)
	if err != nil {
		return nil, err
	}

	if err := md.Validate(DataBlocks(t.store.Capacity())); err != nil {
		return nil, err
	}
	return md, nil
}

// Save encodes md and overwrites the record.
func (t *Table) Save(ctx context.Context, md *Metadata) error {
	data, err := Encode(md)
	if err != nil {
		return err
	}
	if err := t.store.WriteRegion(ctx, 0, data); err != nil {
		return WrapError(ErrStoreUnavailable, err, "failed to write metadata")
	}
	return nil
}
