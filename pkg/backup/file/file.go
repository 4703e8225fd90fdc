// Package file stores container images as local files.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/marmos91/blockfs/pkg/backup"
	"golang.org/x/exp/mmap"
)

// FileDestinationConfig configures a FileDestination.
type FileDestinationConfig struct {
	// Path is the image file (default disk.bak)
	Path string `mapstructure:"path"`
}

// FileDestination keeps the image in one local file.
//
// Put writes a temporary file next to Path and renames it into place, so a
// failed backup never clobbers the previous image. Get maps the file into
// memory and copies it out.
type FileDestination struct {
	path string
}

// NewFileDestination validates cfg and returns a destination.
func NewFileDestination(cfg FileDestinationConfig) (*FileDestination, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("file backup destination: path is required")
	}
	return &FileDestination{path: cfg.Path}, nil
}

// Path returns the image path.
func (d *FileDestination) Path() string {
	return d.path
}

func (d *FileDestination) String() string {
	return "file " + d.path
}

func (d *FileDestination) Put(ctx context.Context, image []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(d.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary image: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(image); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write image: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close image: %w", err)
	}

	if err := os.Rename(tmpPath, d.path); err != nil {
		return fmt.Errorf("failed to move image into place: %w", err)
	}
	return nil
}

func (d *FileDestination) Get(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := mmap.Open(d.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", d.path, backup.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to map image %s: %w", d.path, err)
	}
	defer func() { _ = reader.Close() }()

	if reader.Len() == 0 {
		return []byte{}, nil
	}

	image := make([]byte, reader.Len())
	if _, err := reader.ReadAt(image, 0); err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", d.path, err)
	}
	return image, nil
}
