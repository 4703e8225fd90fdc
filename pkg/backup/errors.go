package backup

import "errors"

// Errors shared by all destinations. Implementations wrap them with context:
//
//	return fmt.Errorf("backup %s: %w", path, backup.ErrNotFound)
var (
	// ErrNotFound indicates the destination holds no image.
	ErrNotFound = errors.New("backup image not found")

	// ErrSizeMismatch indicates an image whose length differs from the
	// capacity of the container it would be restored into.
	ErrSizeMismatch = errors.New("backup image size does not match container capacity")

	// ErrInvalidImage indicates an image whose metadata record does not decode.
	ErrInvalidImage = errors.New("backup image has no valid metadata record")
)
