package backup

import (
	"context"
	"sync"
)

// MemoryDestination keeps the image in memory.
type MemoryDestination struct {
	mu    sync.Mutex
	image []byte
}

func (d *MemoryDestination) Put(ctx context.Context, image []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.image = append([]byte(nil), image...)
	return nil
}

func (d *MemoryDestination) Get(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.image == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), d.image...), nil
}

func (d *MemoryDestination) String() string {
	return "memory"
}
