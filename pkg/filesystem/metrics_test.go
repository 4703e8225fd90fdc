package filesystem

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/blockfs/pkg/disk/memory"
	"github.com/marmos91/blockfs/pkg/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingMetrics keeps everything reported to it.
type recordingMetrics struct {
	ops         []string
	bytes       map[string]int
	relocations int
	files       int
	freeBlocks  int64
	totalBlocks int64
}

func (m *recordingMetrics) RecordOperation(operation string, _ time.Duration, errorCode string) {
	if errorCode != "" {
		operation += ":" + errorCode
	}
	m.ops = append(m.ops, operation)
}

func (m *recordingMetrics) RecordBytes(direction string, n int) {
	m.bytes[direction] += n
}

func (m *recordingMetrics) RecordRelocation() {
	m.relocations++
}

func (m *recordingMetrics) SetUsage(files int, freeBlocks, totalBlocks int64) {
	m.files, m.freeBlocks, m.totalBlocks = files, freeBlocks, totalBlocks
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	store, err := memory.NewMemoryStore(ctx, 0)
	require.NoError(t, err)

	m := &recordingMetrics{bytes: map[string]int{}}
	fs := New(store, Options{Capacity: capacityFor(8), Metrics: m})
	require.NoError(t, fs.Format(ctx))
	assert.Equal(t, int64(8), m.totalBlocks)
	assert.Equal(t, int64(8), m.freeBlocks)

	require.NoError(t, fs.Create(ctx, "a"))
	require.NoError(t, fs.Create(ctx, "b"))
	require.NoError(t, fs.Write(ctx, "a", []byte("hello")))
	require.NoError(t, fs.Write(ctx, "b", []byte("x")))
	requireCode(t, fs.Create(ctx, "a"), metadata.ErrNameExists)

	// a cannot grow past b at block 1
	require.NoError(t, fs.Append(ctx, "a", make([]byte, metadata.BlockSize)))
	assert.Equal(t, 1, m.relocations)

	_, err = fs.Cat(ctx, "b")
	require.NoError(t, err)
	assert.True(t, fs.Exists(ctx, "b"))

	assert.Equal(t, []string{
		"FORMAT", "CREATE", "CREATE", "WRITE", "WRITE",
		"CREATE:NameExists", "APPEND", "CAT",
	}, m.ops)
	assert.Equal(t, 5+1+5+metadata.BlockSize, m.bytes["write"])
	assert.Equal(t, 5+1, m.bytes["read"])
	assert.Equal(t, 2, m.files)
	assert.Equal(t, int64(8-1-2), m.freeBlocks)
}
