package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/marmos91/blockfs/pkg/disk"
)

// FileStore implements disk.Store on top of a single OS file.
//
// The container file is opened read-write once and kept open for the life of
// the store. Its capacity is the file size: an existing container is reopened
// as-is, a new one starts at capacity 0 until Initialize sizes it.
//
// Thread Safety:
// ReadAt/WriteAt on *os.File are safe for concurrent use; mu only guards the
// capacity and the closed state.
type FileStore struct {
	mu       sync.RWMutex
	path     string
	file     *os.File
	capacity int64
}

// FileStoreConfig contains configuration for the file backend.
type FileStoreConfig struct {
	// Path is the container file (e.g. "disk.sim")
	Path string `mapstructure:"path"`
}

// NewFileStore opens (creating if needed) the container file at cfg.Path.
//
// Returns:
//   - *FileStore: store whose capacity is the current file size
//   - error: wraps disk.ErrUnavailable if the file cannot be opened or stat'ed
func NewFileStore(ctx context.Context, cfg FileStoreConfig) (*FileStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("file store: path is required")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create container directory: %w: %w", disk.ErrUnavailable, err)
		}
	}

	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return nil, fmt.Errorf("open container %s: %w: %w", cfg.Path, disk.ErrUnavailable, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat container %s: %w: %w", cfg.Path, disk.ErrUnavailable, err)
	}

	return &FileStore{
		path:     cfg.Path,
		file:     f,
		capacity: info.Size(),
	}, nil
}

// Path returns the container file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Initialize(ctx context.Context, capacity int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if capacity <= 0 {
		return fmt.Errorf("capacity %d: %w", capacity, disk.ErrInvalidCapacity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return disk.ErrClosed
	}

	// Truncate to zero first so stale bytes do not survive a re-format.
	if err := s.file.Truncate(0); err != nil {
		return fmt.Errorf("truncate container: %w: %w", disk.ErrUnavailable, err)
	}
	if err := s.file.Truncate(capacity); err != nil {
		return fmt.Errorf("size container to %d: %w: %w", capacity, disk.ErrUnavailable, err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("sync container: %w: %w", disk.ErrUnavailable, err)
	}

	s.capacity = capacity
	return nil
}

func (s *FileStore) ReadRegion(ctx context.Context, offset int64, length int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.file == nil {
		return nil, disk.ErrClosed
	}
	if err := disk.CheckRegion(s.capacity, offset, length); err != nil {
		return nil, err
	}

	buf := make([]byte, length)
	n, err := s.file.ReadAt(buf, offset)
	if n < length {
		return nil, fmt.Errorf("short read at %d (%d of %d bytes): %w: %w", offset, n, length, disk.ErrUnavailable, err)
	}
	return buf, nil
}

func (s *FileStore) WriteRegion(ctx context.Context, offset int64, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.file == nil {
		return disk.ErrClosed
	}
	if err := disk.CheckRegion(s.capacity, offset, len(data)); err != nil {
		return err
	}

	if _, err := s.file.WriteAt(data, offset); err != nil {
		return fmt.Errorf("write at %d: %w: %w", offset, disk.ErrUnavailable, err)
	}
	return nil
}

func (s *FileStore) Capacity() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capacity
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	if err != nil {
		return fmt.Errorf("close container: %w", err)
	}
	return nil
}
