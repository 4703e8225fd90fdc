package disk

import (
	"context"
	"fmt"
)

// Store is the backing container of a BlockFS volume: a fixed-capacity,
// random-access byte sequence simulating a physical disk.
//
// The leading region of the container holds the metadata record and the
// remainder holds fixed-size data blocks, but a Store knows nothing about
// that layout. It only moves bytes.
//
// Thread Safety:
// Implementations are safe for concurrent use, but callers that need
// read-modify-write consistency (the filesystem layer) serialize access
// themselves.
type Store interface {
	// Initialize creates or truncates the container to exactly capacity
	// bytes, all logically zero.
	//
	// Returns ErrInvalidCapacity for unusable capacities and wraps
	// ErrUnavailable when the container cannot be created or sized.
	Initialize(ctx context.Context, capacity int64) error

	// ReadRegion returns length bytes starting at offset.
	//
	// The returned slice is owned by the caller. Requests that fall outside
	// [0, Capacity()) return ErrOutOfBounds.
	ReadRegion(ctx context.Context, offset int64, length int) ([]byte, error)

	// WriteRegion writes data starting at offset.
	//
	// Requests that fall outside [0, Capacity()) return ErrOutOfBounds and
	// leave the container unchanged.
	WriteRegion(ctx context.Context, offset int64, data []byte) error

	// Capacity returns the container size in bytes (0 before Initialize).
	Capacity() int64

	// Close releases the resources held by the store.
	Close() error
}

// CheckRegion validates a region request against a capacity.
//
// Backends call this before touching their storage so that all of them
// report out-of-range requests the same way.
func CheckRegion(capacity, offset int64, length int) error {
	if offset < 0 || length < 0 {
		return fmt.Errorf("region [%d,+%d): %w", offset, length, ErrOutOfBounds)
	}
	if offset > capacity || int64(length) > capacity-offset {
		return fmt.Errorf("region [%d,+%d) exceeds capacity %d: %w", offset, length, capacity, ErrOutOfBounds)
	}
	return nil
}
