package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/blockfs/pkg/disk"
)

// MemoryStore implements disk.Store with a single in-memory byte slice.
//
// It is designed for tests and ephemeral volumes: all data is lost when the
// process exits. Data is copied on every read and write so callers never
// alias the backing slice.
type MemoryStore struct {
	mu     sync.RWMutex
	data   []byte
	closed bool
}

// NewMemoryStore creates an uninitialized store. If capacity is positive the
// store is initialized to that many zero bytes.
func NewMemoryStore(ctx context.Context, capacity int64) (*MemoryStore, error) {
	s := &MemoryStore{}
	if capacity > 0 {
		if err := s.Initialize(ctx, capacity); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *MemoryStore) Initialize(ctx context.Context, capacity int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if capacity <= 0 {
		return fmt.Errorf("capacity %d: %w", capacity, disk.ErrInvalidCapacity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return disk.ErrClosed
	}
	s.data = make([]byte, capacity)
	return nil
}

func (s *MemoryStore) ReadRegion(ctx context.Context, offset int64, length int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, disk.ErrClosed
	}
	if err := disk.CheckRegion(int64(len(s.data)), offset, length); err != nil {
		return nil, err
	}

	buf := make([]byte, length)
	copy(buf, s.data[offset:])
	return buf, nil
}

func (s *MemoryStore) WriteRegion(ctx context.Context, offset int64, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return disk.ErrClosed
	}
	if err := disk.CheckRegion(int64(len(s.data)), offset, len(data)); err != nil {
		return err
	}

	copy(s.data[offset:], data)
	return nil
}

func (s *MemoryStore) Capacity() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.data))
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.data = nil
	return nil
}
