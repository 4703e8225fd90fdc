package filesystem

import (
	"bytes"
	"context"
	"time"

	"github.com/marmos91/blockfs/internal/logger"
	"github.com/marmos91/blockfs/pkg/allocator"
	"github.com/marmos91/blockfs/pkg/metadata"
)

// Create adds an empty file.
//
// Returns:
//   - error: ErrInvalidName / ErrNameTooLong for a bad name, ErrNameExists,
//     ErrTableFull when all slots are used, ErrNoSpace when no free block is
//     left to place the file on
func (fs *FileSystem) Create(ctx context.Context, name string) error {
	return fs.update(ctx, "CREATE "+name, func(ctx context.Context, tx *txn) error {
		if err := metadata.ValidateName(name); err != nil {
			return err
		}
		if tx.md.FindByName(name) >= 0 {
			return metadata.NewError(metadata.ErrNameExists, name, "file already exists")
		}
		slot := tx.md.FindFreeSlot()
		if slot < 0 {
			return metadata.NewError(metadata.ErrTableFull, name, "file table full (%d files)", metadata.MaxFiles)
		}

		start, err := allocator.Allocate(tx.md, 0, fs.region.Blocks(), allocator.NoExclude)
		if err != nil {
			return err
		}

		tx.md.Entries[slot] = metadata.FileEntry{
			Name:       name,
			StartBlock: start,
			Created:    fs.now().Truncate(time.Second),
			Used:       true,
		}
		tx.md.FileCount++
		tx.markDirty()
		return nil
	})
}

// Delete frees name's slot. Its blocks become free; content is not erased.
func (fs *FileSystem) Delete(ctx context.Context, name string) error {
	return fs.update(ctx, "DELETE "+name, func(ctx context.Context, tx *txn) error {
		idx, err := lookup(tx.md, name)
		if err != nil {
			return err
		}

		tx.md.Entries[idx] = metadata.FileEntry{}
		tx.md.FileCount--
		tx.markDirty()
		return nil
	})
}

// placeFor returns where size bytes of the file in slot idx can live: its
// current start block if the grown extent is still free, otherwise the
// first-fit position with the file's own extent ignored.
func (fs *FileSystem) placeFor(md *metadata.Metadata, idx int, size int64) (int64, error) {
	entry := &md.Entries[idx]
	total := fs.region.Blocks()

	if allocator.Fits(md, entry.StartBlock, size, total, idx) {
		return entry.StartBlock, nil
	}

	start, err := allocator.Allocate(md, size, total, idx)
	if err != nil {
		return 0, metadata.WrapError(metadata.ErrNoSpace, err,
			"cannot grow %s to %d bytes", entry.Name, size)
	}
	logger.Debug("relocating %s: block %d -> %d (%d bytes)", entry.Name, entry.StartBlock, start, size)
	fs.metrics.RecordRelocation()
	return start, nil
}

// Write replaces name's content with data.
func (fs *FileSystem) Write(ctx context.Context, name string, data []byte) error {
	return fs.update(ctx, "WRITE "+name, func(ctx context.Context, tx *txn) error {
		idx, err := lookup(tx.md, name)
		if err != nil {
			return err
		}

		size := int64(len(data))
		start, err := fs.placeFor(tx.md, idx, size)
		if err != nil {
			return err
		}
		if err := fs.region.Write(ctx, start, 0, data); err != nil {
			return err
		}
		fs.metrics.RecordBytes("write", len(data))

		entry := &tx.md.Entries[idx]
		entry.StartBlock = start
		entry.Size = size
		tx.markDirty()
		return nil
	})
}

// Append adds data at the end of name.
//
// When the file cannot grow in place it is relocated: the existing bytes are
// read first and written together with data at the new position, which may
// overlap the old extent.
func (fs *FileSystem) Append(ctx context.Context, name string, data []byte) error {
	return fs.update(ctx, "APPEND "+name, func(ctx context.Context, tx *txn) error {
		idx, err := lookup(tx.md, name)
		if err != nil {
			return err
		}

		entry := &tx.md.Entries[idx]
		newSize := entry.Size + int64(len(data))

		start, err := fs.placeFor(tx.md, idx, newSize)
		if err != nil {
			return err
		}

		if start == entry.StartBlock {
			if err := fs.region.Write(ctx, start, entry.Size, data); err != nil {
				return err
			}
			fs.metrics.RecordBytes("write", len(data))
		} else {
			existing, err := fs.region.Read(ctx, entry.StartBlock, 0, int(entry.Size))
			if err != nil {
				return err
			}
			moved := append(existing, data...)
			if err := fs.region.Write(ctx, start, 0, moved); err != nil {
				return err
			}
			fs.metrics.RecordBytes("read", len(existing))
			fs.metrics.RecordBytes("write", len(moved))
		}

		entry.StartBlock = start
		entry.Size = newSize
		tx.markDirty()
		return nil
	})
}

// Read returns length bytes of name starting at offset.
//
// Returns:
//   - error: ErrNotFound, or ErrOutOfRange when offset or length is negative
//     or the range ends past the file size
func (fs *FileSystem) Read(ctx context.Context, name string, offset, length int64) ([]byte, error) {
	var out []byte
	err := fs.view(ctx, "READ "+name, func(ctx context.Context, md *metadata.Metadata) error {
		idx, err := lookup(md, name)
		if err != nil {
			return err
		}

		entry := &md.Entries[idx]
		// offset+length may overflow, so compare against the remainder
		if offset < 0 || length < 0 || offset > entry.Size || length > entry.Size-offset {
			return metadata.NewError(metadata.ErrOutOfRange, name,
				"range [%d,+%d) outside file of %d bytes", offset, length, entry.Size)
		}

		if out, err = fs.region.Read(ctx, entry.StartBlock, offset, int(length)); err != nil {
			return err
		}
		fs.metrics.RecordBytes("read", len(out))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Cat returns the whole content of name.
func (fs *FileSystem) Cat(ctx context.Context, name string) ([]byte, error) {
	var out []byte
	err := fs.view(ctx, "CAT "+name, func(ctx context.Context, md *metadata.Metadata) error {
		idx, err := lookup(md, name)
		if err != nil {
			return err
		}
		entry := &md.Entries[idx]
		if out, err = fs.region.Read(ctx, entry.StartBlock, 0, int(entry.Size)); err != nil {
			return err
		}
		fs.metrics.RecordBytes("read", len(out))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Truncate shrinks name to size bytes. Blocks past the new end are released
// and their content is left as is.
//
// Returns:
//   - error: ErrNotFound, or ErrInvalidSize unless 0 <= size < current size
func (fs *FileSystem) Truncate(ctx context.Context, name string, size int64) error {
	return fs.update(ctx, "TRUNCATE "+name, func(ctx context.Context, tx *txn) error {
		idx, err := lookup(tx.md, name)
		if err != nil {
			return err
		}

		entry := &tx.md.Entries[idx]
		if size < 0 || size >= entry.Size {
			return metadata.NewError(metadata.ErrInvalidSize, name,
				"truncate to %d bytes does not shrink file of %d bytes", size, entry.Size)
		}

		entry.Size = size
		tx.markDirty()
		return nil
	})
}

// Rename changes oldName to newName. Content and placement are unchanged.
func (fs *FileSystem) Rename(ctx context.Context, oldName, newName string) error {
	return fs.update(ctx, "RENAME "+oldName+" "+newName, func(ctx context.Context, tx *txn) error {
		idx, err := lookup(tx.md, oldName)
		if err != nil {
			return err
		}
		if err := metadata.ValidateName(newName); err != nil {
			return err
		}
		if tx.md.FindByName(newName) >= 0 {
			return metadata.NewError(metadata.ErrNameExists, newName, "file already exists")
		}

		tx.md.Entries[idx].Name = newName
		tx.markDirty()
		return nil
	})
}

// Move is Rename: the namespace is flat.
func (fs *FileSystem) Move(ctx context.Context, oldName, newName string) error {
	return fs.Rename(ctx, oldName, newName)
}

// Copy creates dst with the content of src.
//
// The new entry only exists in the in-memory table until its content has
// been written, and the table is saved once at the end, so a failed copy
// never leaves a partial dst behind.
func (fs *FileSystem) Copy(ctx context.Context, src, dst string) error {
	return fs.update(ctx, "COPY "+src+" to "+dst, func(ctx context.Context, tx *txn) error {
		srcIdx, err := lookup(tx.md, src)
		if err != nil {
			return err
		}
		if err := metadata.ValidateName(dst); err != nil {
			return err
		}
		if tx.md.FindByName(dst) >= 0 {
			return metadata.NewError(metadata.ErrNameExists, dst, "file already exists")
		}
		slot := tx.md.FindFreeSlot()
		if slot < 0 {
			return metadata.NewError(metadata.ErrTableFull, dst, "file table full (%d files)", metadata.MaxFiles)
		}

		source := tx.md.Entries[srcIdx]
		data, err := fs.region.Read(ctx, source.StartBlock, 0, int(source.Size))
		if err != nil {
			return err
		}

		start, err := allocator.Allocate(tx.md, source.Size, fs.region.Blocks(), allocator.NoExclude)
		if err != nil {
			return err
		}
		if err := fs.region.Write(ctx, start, 0, data); err != nil {
			return err
		}
		fs.metrics.RecordBytes("read", len(data))
		fs.metrics.RecordBytes("write", len(data))

		tx.md.Entries[slot] = metadata.FileEntry{
			Name:       dst,
			Size:       source.Size,
			StartBlock: start,
			Created:    fs.now().Truncate(time.Second),
			Used:       true,
		}
		tx.md.FileCount++
		tx.markDirty()
		return nil
	})
}

// Diff reports whether a and b have the same size and bytes.
func (fs *FileSystem) Diff(ctx context.Context, a, b string) (bool, error) {
	var same bool
	err := fs.view(ctx, "DIFF "+a+" "+b, func(ctx context.Context, md *metadata.Metadata) error {
		ia, err := lookup(md, a)
		if err != nil {
			return err
		}
		ib, err := lookup(md, b)
		if err != nil {
			return err
		}

		ea, eb := &md.Entries[ia], &md.Entries[ib]
		if ea.Size != eb.Size {
			return nil
		}

		da, err := fs.region.Read(ctx, ea.StartBlock, 0, int(ea.Size))
		if err != nil {
			return err
		}
		db, err := fs.region.Read(ctx, eb.StartBlock, 0, int(eb.Size))
		if err != nil {
			return err
		}
		fs.metrics.RecordBytes("read", len(da)+len(db))
		same = bytes.Equal(da, db)
		return nil
	})
	return same, err
}
