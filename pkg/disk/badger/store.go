package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/blockfs/pkg/disk"
)

// DefaultPageSize matches the BlockFS block size so that one data block
// maps to exactly one key.
const DefaultPageSize = 512

// BadgerStore implements disk.Store with the container persisted in BadgerDB.
//
// Each page of the container is one key (see keys.go). Reads assemble the
// covered pages, writes read-modify-write the partially covered edge pages,
// all inside a single Badger transaction so a region write is atomic.
//
// Thread Safety:
// Badger transactions are safe for concurrent use; mu guards the cached
// capacity.
type BadgerStore struct {
	db       *badger.DB
	pageSize int64

	mu       sync.RWMutex
	capacity int64
}

// BadgerStoreConfig contains configuration for creating a Badger-backed
// container.
type BadgerStoreConfig struct {
	// DBPath is the directory where BadgerDB keeps its files
	DBPath string `mapstructure:"db_path"`

	// InMemory runs Badger without touching disk (tests)
	InMemory bool `mapstructure:"in_memory"`

	// PageSize is the number of container bytes per key (default: 512)
	PageSize int64 `mapstructure:"page_size"`

	// BlockCacheSizeMB is Badger's block cache size in MB (default: 16)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_mb"`
}

// NewBadgerStore opens (or creates) a Badger-backed container.
//
// A previously initialized container is reopened with its stored capacity.
//
// Returns:
//   - *BadgerStore: store ready for use
//   - error: wraps disk.ErrUnavailable if the database cannot be opened
func NewBadgerStore(ctx context.Context, config BadgerStoreConfig) (*BadgerStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if config.DBPath == "" && !config.InMemory {
		return nil, fmt.Errorf("badger store: db_path is required")
	}

	pageSize := config.PageSize
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if pageSize < 0 {
		return nil, fmt.Errorf("badger store: invalid page size %d", pageSize)
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(config.DBPath)
	}

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 16 // Default: 16MB, containers are small
	}
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w: %w", config.DBPath, disk.ErrUnavailable, err)
	}

	store := &BadgerStore{
		db:       db,
		pageSize: pageSize,
	}

	if err := store.loadCapacity(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// loadCapacity reads the persisted capacity, leaving 0 for a new database.
func (s *BadgerStore) loadCapacity() error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyCapacity())
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read capacity: %w: %w", disk.ErrUnavailable, err)
		}

		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("capacity record has %d bytes: %w", len(val), disk.ErrUnavailable)
			}
			s.capacity = int64(binary.BigEndian.Uint64(val))
			return nil
		})
	})
}

func (s *BadgerStore) Initialize(ctx context.Context, capacity int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if capacity <= 0 {
		return fmt.Errorf("capacity %d: %w", capacity, disk.ErrInvalidCapacity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DropPrefix([]byte(prefixPage)); err != nil {
		return fmt.Errorf("failed to drop pages: %w: %w", disk.ErrUnavailable, err)
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(capacity))
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyCapacity(), buf[:])
	})
	if err != nil {
		return fmt.Errorf("failed to store capacity: %w: %w", disk.ErrUnavailable, err)
	}

	s.capacity = capacity
	return nil
}

func (s *BadgerStore) ReadRegion(ctx context.Context, offset int64, length int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := disk.CheckRegion(s.capacity, offset, length); err != nil {
		return nil, err
	}

	buf := make([]byte, length)
	if length == 0 {
		return buf, nil
	}

	err := s.db.View(func(txn *badger.Txn) error {
		end := offset + int64(length)
		for page := offset / s.pageSize; page*s.pageSize < end; page++ {
			data, err := s.getPage(txn, page)
			if err != nil {
				return err
			}
			copyPage(buf, offset, data, page*s.pageSize)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return buf, nil
}

func (s *BadgerStore) WriteRegion(ctx context.Context, offset int64, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := disk.CheckRegion(s.capacity, offset, len(data)); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	return s.db.Update(func(txn *badger.Txn) error {
		end := offset + int64(len(data))
		for page := offset / s.pageSize; page*s.pageSize < end; page++ {
			pageStart := page * s.pageSize

			// Only edge pages need their old bytes.
			var contents []byte
			if pageStart < offset || pageStart+s.pageSize > end {
				old, err := s.getPage(txn, page)
				if err != nil {
					return err
				}
				contents = old
			} else {
				contents = make([]byte, s.pageSize)
			}

			lo := max(offset, pageStart)
			hi := min(end, pageStart+s.pageSize)
			copy(contents[lo-pageStart:hi-pageStart], data[lo-offset:hi-offset])

			if err := txn.Set(keyPage(page), contents); err != nil {
				return fmt.Errorf("failed to write page %d: %w: %w", page, disk.ErrUnavailable, err)
			}
		}
		return nil
	})
}

// getPage returns a full page, zero-filled when the key is absent.
func (s *BadgerStore) getPage(txn *badger.Txn, page int64) ([]byte, error) {
	contents := make([]byte, s.pageSize)

	item, err := txn.Get(keyPage(page))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return contents, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read page %d: %w: %w", page, disk.ErrUnavailable, err)
	}

	err = item.Value(func(val []byte) error {
		copy(contents, val)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read page %d: %w: %w", page, disk.ErrUnavailable, err)
	}
	return contents, nil
}

// copyPage copies the part of a page (starting at pageStart) that overlaps
// the destination region (starting at offset) into dst.
func copyPage(dst []byte, offset int64, page []byte, pageStart int64) {
	end := offset + int64(len(dst))
	lo := max(offset, pageStart)
	hi := min(end, pageStart+int64(len(page)))
	if lo >= hi {
		return
	}
	copy(dst[lo-offset:hi-offset], page[lo-pageStart:hi-pageStart])
}

func (s *BadgerStore) Capacity() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capacity
}

// Close closes the BadgerDB database and flushes pending writes.
func (s *BadgerStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}
