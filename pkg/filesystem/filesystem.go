// Package filesystem implements the file-level operations of a BlockFS
// volume on top of the metadata table, the allocator and a disk.Store.
//
// Every operation is one transaction: take the volume lock, load the
// metadata record, validate, mutate the in-memory copy, write file content,
// save the record at most once, record the operation. Content is always
// written before the record, so a failed call leaves the persisted table as
// it was.
package filesystem

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/blockfs/internal/logger"
	"github.com/marmos91/blockfs/pkg/allocator"
	"github.com/marmos91/blockfs/pkg/disk"
	"github.com/marmos91/blockfs/pkg/metadata"
	"github.com/marmos91/blockfs/pkg/metrics"
	"github.com/marmos91/blockfs/pkg/oplog"
)

// Options configures a FileSystem.
type Options struct {
	// Capacity is the container size used by Format. Zero keeps the store's
	// current capacity, or metadata.DefaultCapacity for an empty store.
	Capacity int64

	// Recorder receives one description per recorded operation.
	// Nil disables the operation log.
	Recorder oplog.Recorder

	// Metrics receives operation counts, durations and occupancy.
	// Nil disables collection.
	Metrics metrics.FileSystemMetrics
}

// FileSystem is a BlockFS volume.
//
// Thread safety: all methods are safe for concurrent use. A single mutex
// serializes whole transactions, so two writers never load the same record
// and overwrite each other's changes.
type FileSystem struct {
	mu sync.Mutex

	store    disk.Store
	table    *metadata.Table
	region   *metadata.DataRegion
	recorder oplog.Recorder
	metrics  metrics.FileSystemMetrics
	capacity int64

	now func() time.Time
}

// New opens a volume over store. The store is not formatted; call Format
// for a fresh container.
func New(store disk.Store, opts Options) *FileSystem {
	recorder := opts.Recorder
	if recorder == nil {
		recorder = oplog.Nop{}
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.NewNoopFileSystemMetrics()
	}
	return &FileSystem{
		store:    store,
		table:    metadata.NewTable(store),
		region:   metadata.NewDataRegion(store),
		recorder: recorder,
		metrics:  m,
		capacity: opts.Capacity,
		now:      time.Now,
	}
}

// FileInfo describes one used entry.
type FileInfo struct {
	Name       string
	Size       int64
	StartBlock int64
	Blocks     int64
	Created    time.Time
}

func infoFor(e *metadata.FileEntry) FileInfo {
	return FileInfo{
		Name:       e.Name,
		Size:       e.Size,
		StartBlock: e.StartBlock,
		Blocks:     metadata.BlocksFor(e.Size),
		Created:    e.Created,
	}
}

// Usage summarizes table and block occupancy.
type Usage struct {
	Files       int
	MaxFiles    int
	TotalBlocks int64
	FreeBlocks  int64
}

// txn is the state threaded through one operation: the table loaded at the
// start and whether the body changed it.
type txn struct {
	md    *metadata.Metadata
	dirty bool
}

func (tx *txn) markDirty() {
	tx.dirty = true
}

// update runs fn as a read-write transaction and saves the table once if fn
// marked it dirty. desc is recorded on success.
//
// ctx is checked once, before the lock. The body runs with a context that
// cannot be cancelled so a started transaction is never cut in half between
// its content writes and its metadata save.
func (fs *FileSystem) update(ctx context.Context, desc string, fn func(ctx context.Context, tx *txn) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	defer fs.observe(desc, time.Now(), &err)

	md, err := fs.table.Load(ctx)
	if err != nil {
		return err
	}

	tx := &txn{md: md}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	if tx.dirty {
		if err := fs.table.Save(ctx, tx.md); err != nil {
			return err
		}
		fs.setUsage(tx.md)
	}

	fs.record(desc)
	return nil
}

// view runs fn as a read-only transaction. desc is recorded on success
// unless empty.
func (fs *FileSystem) view(ctx context.Context, desc string, fn func(ctx context.Context, md *metadata.Metadata) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	defer fs.observe(desc, time.Now(), &err)

	md, err := fs.table.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(ctx, md); err != nil {
		return err
	}

	fs.record(desc)
	return nil
}

func (fs *FileSystem) record(desc string) {
	if desc != "" {
		fs.recorder.Record(desc)
	}
}

// observe reports a finished recorded operation to the metrics collector.
// The operation name is the first word of desc.
func (fs *FileSystem) observe(desc string, start time.Time, errp *error) {
	if desc == "" {
		return
	}
	op, _, _ := strings.Cut(desc, " ")

	code := ""
	if err := *errp; err != nil {
		code = "Other"
		if c := metadata.CodeOf(err); c != 0 {
			code = c.String()
		}
	}
	fs.metrics.RecordOperation(op, time.Since(start), code)
}

func (fs *FileSystem) setUsage(md *metadata.Metadata) {
	total := fs.region.Blocks()
	fs.metrics.SetUsage(md.FileCount, allocator.FreeBlocks(md, total), total)
}

// lookup returns the slot of name or a NotFound error.
func lookup(md *metadata.Metadata, name string) (int, error) {
	idx := md.FindByName(name)
	if idx < 0 {
		return -1, metadata.NewError(metadata.ErrNotFound, name, "file not found")
	}
	return idx, nil
}

// Format reinitializes the container and writes an empty table.
func (fs *FileSystem) Format(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	capacity := fs.capacity
	if capacity <= 0 {
		capacity = fs.store.Capacity()
	}
	if capacity <= 0 {
		capacity = metadata.DefaultCapacity
	}

	start := time.Now()
	err := fs.table.Format(ctx, capacity)
	fs.observe("FORMAT", start, &err)
	if err != nil {
		return err
	}

	logger.Info("formatted volume: %d bytes (%s)", capacity, fs.region)
	fs.setUsage(&metadata.Metadata{})
	fs.record("FORMAT")
	return nil
}

// Exclusive runs fn with the backing store while holding the volume lock.
func (fs *FileSystem) Exclusive(ctx context.Context, fn func(ctx context.Context, store disk.Store) error) error {
	return fs.ExclusiveRecorded(ctx, "", fn)
}

// ExclusiveRecorded is Exclusive for whole-container operations such as
// backup and restore: desc is recorded in the operation log when fn
// succeeds, unless empty.
func (fs *FileSystem) ExclusiveRecorded(ctx context.Context, desc string, fn func(ctx context.Context, store disk.Store) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	defer fs.observe(desc, time.Now(), &err)

	if err := fn(ctx, fs.store); err != nil {
		return err
	}

	fs.record(desc)
	return nil
}

// Close closes the backing store.
func (fs *FileSystem) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.store.Close()
}
