package disk

import "errors"

// ============================================================================
// Standard Backing Store Errors
// ============================================================================

// These errors let callers distinguish infrastructure failures of a backing
// store from domain failures of the layers above it. Implementations wrap
// them with context:
//
//	if off+int64(len(data)) > s.capacity {
//	    return fmt.Errorf("write %d bytes at %d: %w", len(data), off, disk.ErrOutOfBounds)
//	}

var (
	// ErrUnavailable indicates the container could not be opened, sized,
	// read or written.
	//
	// The metadata and filesystem layers map this to the StoreUnavailable
	// error kind.
	ErrUnavailable = errors.New("backing store unavailable")

	// ErrOutOfBounds indicates a region request falls outside [0, capacity).
	ErrOutOfBounds = errors.New("region out of bounds")

	// ErrInvalidCapacity indicates Initialize was called with a capacity the
	// backend cannot represent (zero or negative).
	ErrInvalidCapacity = errors.New("invalid capacity")

	// ErrClosed indicates the store was used after Close.
	ErrClosed = errors.New("backing store closed")
)
