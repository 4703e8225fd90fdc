// Package backup copies a whole container image to and from a destination.
//
// An image is the raw byte content of a disk.Store: the metadata record
// followed by the data region. Backup and Restore treat it as opaque except
// for a sanity check that the record decodes before a restore overwrites
// anything.
package backup

import (
	"context"
	"fmt"

	"github.com/marmos91/blockfs/internal/logger"
	"github.com/marmos91/blockfs/pkg/disk"
	"github.com/marmos91/blockfs/pkg/metadata"
)

// Destination stores one container image.
type Destination interface {
	// Put replaces the stored image.
	Put(ctx context.Context, image []byte) error

	// Get returns the stored image or an error wrapping ErrNotFound.
	Get(ctx context.Context) ([]byte, error)

	// String names the destination for log lines.
	String() string
}

// Backup copies the full content of store to dst and returns the number of
// bytes written.
//
// The caller must keep the store quiescent for the duration, e.g. by running
// Backup inside FileSystem.Exclusive.
func Backup(ctx context.Context, store disk.Store, dst Destination) (int64, error) {
	capacity := store.Capacity()
	if capacity <= 0 {
		return 0, fmt.Errorf("backup: container is not initialized: %w", disk.ErrUnavailable)
	}

	image, err := store.ReadRegion(ctx, 0, int(capacity))
	if err != nil {
		return 0, fmt.Errorf("backup: failed to read container: %w", err)
	}

	if err := dst.Put(ctx, image); err != nil {
		return 0, fmt.Errorf("backup to %s: %w", dst, err)
	}

	logger.Info("backed up %d bytes to %s", len(image), dst)
	return int64(len(image)), nil
}

// Restore overwrites store with the image held by src and returns the number
// of bytes restored.
//
// An initialized store only accepts an image of exactly its capacity. An
// uninitialized store (capacity 0) is sized to the image. Images whose
// metadata record does not decode are rejected before anything is written.
func Restore(ctx context.Context, store disk.Store, src Destination) (int64, error) {
	image, err := src.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore from %s: %w", src, err)
	}

	size := int64(len(image))
	if err := checkImage(image); err != nil {
		return 0, fmt.Errorf("restore from %s: %w", src, err)
	}

	switch capacity := store.Capacity(); {
	case capacity == 0:
		if err := store.Initialize(ctx, size); err != nil {
			return 0, fmt.Errorf("restore: failed to size container: %w", err)
		}
	case capacity != size:
		return 0, fmt.Errorf("restore from %s: image %d bytes, container %d bytes: %w",
			src, size, capacity, ErrSizeMismatch)
	}

	if err := store.WriteRegion(ctx, 0, image); err != nil {
		return 0, fmt.Errorf("restore: failed to write container: %w", err)
	}

	logger.Info("restored %d bytes from %s", size, src)
	return size, nil
}

func checkImage(image []byte) error {
	if len(image) <= metadata.MetadataSize {
		return fmt.Errorf("%d bytes is smaller than a container: %w", len(image), ErrInvalidImage)
	}

	md, err := metadata.Decode(image[:metadata.MetadataSize])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	if err := md.Validate(metadata.DataBlocks(int64(len(image)))); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	return nil
}
