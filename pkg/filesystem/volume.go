package filesystem

import (
	"context"

	"github.com/marmos91/blockfs/internal/logger"
	"github.com/marmos91/blockfs/pkg/allocator"
	"github.com/marmos91/blockfs/pkg/defrag"
	"github.com/marmos91/blockfs/pkg/integrity"
	"github.com/marmos91/blockfs/pkg/metadata"
)

// Exists reports whether name is a used entry. Any failure to load the
// table counts as absent.
func (fs *FileSystem) Exists(ctx context.Context, name string) bool {
	found := false
	err := fs.view(ctx, "", func(_ context.Context, md *metadata.Metadata) error {
		found = md.FindByName(name) >= 0
		return nil
	})
	return err == nil && found
}

// Size returns the size of name in bytes, or -1 if it does not exist or the
// table cannot be read.
func (fs *FileSystem) Size(ctx context.Context, name string) int64 {
	info, err := fs.Stat(ctx, name)
	if err != nil {
		return -1
	}
	return info.Size
}

// Stat describes name.
func (fs *FileSystem) Stat(ctx context.Context, name string) (FileInfo, error) {
	var info FileInfo
	err := fs.view(ctx, "", func(_ context.Context, md *metadata.Metadata) error {
		idx, err := lookup(md, name)
		if err != nil {
			return err
		}
		info = infoFor(&md.Entries[idx])
		return nil
	})
	return info, err
}

// List returns the used entries in slot order.
func (fs *FileSystem) List(ctx context.Context) ([]FileInfo, error) {
	var files []FileInfo
	err := fs.view(ctx, "LS", func(_ context.Context, md *metadata.Metadata) error {
		files = make([]FileInfo, 0, md.FileCount)
		for i := range md.Entries {
			if md.Entries[i].Used {
				files = append(files, infoFor(&md.Entries[i]))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Usage reports slot and block occupancy.
func (fs *FileSystem) Usage(ctx context.Context) (Usage, error) {
	var usage Usage
	err := fs.view(ctx, "", func(_ context.Context, md *metadata.Metadata) error {
		total := fs.region.Blocks()
		usage = Usage{
			Files:       md.FileCount,
			MaxFiles:    metadata.MaxFiles,
			TotalBlocks: total,
			FreeBlocks:  allocator.FreeBlocks(md, total),
		}
		return nil
	})
	return usage, err
}

// Defragment compacts every file toward block 0, preserving content and
// relative order, then saves the table once.
//
// Moves only write into free blocks or the moving file's own old extent. If
// a move fails the table is not saved, so the persisted record still points
// the file being moved at its old extent, whose content the partial copy may
// have overwritten. Other files are never touched. Like every operation
// here it is not crash-atomic.
func (fs *FileSystem) Defragment(ctx context.Context) (defrag.Result, error) {
	var result defrag.Result
	err := fs.update(ctx, "DEFRAGMENT", func(ctx context.Context, tx *txn) error {
		res, err := defrag.Run(ctx, tx.md, fs.region)
		if err != nil {
			return err
		}
		result = res
		if res.Moved() {
			tx.markDirty()
		}
		return nil
	})
	if err != nil {
		return defrag.Result{}, err
	}

	logger.Debug("defragment: %d files moved, data ends at block %d", len(result.Moves), result.EndBlock)
	return result, nil
}

// CheckIntegrity scans the table for overlapping extents. It never modifies
// anything; a dirty report is not an error.
func (fs *FileSystem) CheckIntegrity(ctx context.Context) (integrity.Report, error) {
	var report integrity.Report
	err := fs.view(ctx, "CHECK_INTEGRITY", func(_ context.Context, md *metadata.Metadata) error {
		report = integrity.Check(md)
		return nil
	})
	if err != nil {
		return integrity.Report{}, err
	}

	if !report.Clean() {
		logger.Warn("integrity check found %d overlapping pairs", len(report.Conflicts))
	}
	return report, nil
}
