package metadata

import (
	"fmt"
	"strings"
	"time"
)

// FileEntry is one slot of the metadata table.
//
// Slots are never removed: Delete clears Used and the slot is recycled by a
// later Create.
type FileEntry struct {
	// Name is unique among used entries and shorter than NameFieldLen bytes
	Name string

	// Size is the file length in bytes
	Size int64

	// StartBlock is the first data block of the file's extent
	StartBlock int64

	// Created is the creation time (second resolution on disk)
	Created time.Time

	// Used marks the slot as occupied
	Used bool
}

// Extent is a half-open block range [Start, End).
type Extent struct {
	Start int64
	End   int64
}

// Len returns the number of blocks in the extent.
func (e Extent) Len() int64 {
	return e.End - e.Start
}

// Overlaps reports whether two extents share at least one block.
// Empty extents never overlap anything.
func (e Extent) Overlaps(other Extent) bool {
	return max(e.Start, other.Start) < min(e.End, other.End)
}

func (e Extent) String() string {
	return fmt.Sprintf("[%d,%d)", e.Start, e.End)
}

// Extent returns the blocks the entry's content occupies.
func (f *FileEntry) Extent() Extent {
	return ExtentFor(f.StartBlock, f.Size)
}

// ExtentFor returns the extent of size bytes placed at start.
func ExtentFor(start, size int64) Extent {
	return Extent{Start: start, End: start + BlocksFor(size)}
}

// ValidateName checks a candidate file name against the on-disk name field.
func ValidateName(name string) error {
	if name == "" {
		return NewError(ErrInvalidName, name, "file name is empty")
	}
	if strings.IndexByte(name, 0) >= 0 {
		return NewError(ErrInvalidName, name, "file name contains NUL")
	}
	if len(name) >= NameFieldLen {
		return NewError(ErrNameTooLong, name, "file name longer than %d bytes", NameFieldLen-1)
	}
	return nil
}
