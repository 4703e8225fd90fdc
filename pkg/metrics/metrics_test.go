package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileSystemMetrics_NilRegistry(t *testing.T) {
	m := NewFileSystemMetrics(nil)
	assert.IsType(t, noopFileSystemMetrics{}, m)

	// Must not panic
	m.RecordOperation("CREATE", time.Millisecond, "")
	m.RecordBytes("write", 10)
	m.RecordRelocation()
	m.SetUsage(1, 2, 3)
}

func TestFileSystemMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewFileSystemMetrics(reg).(*fileSystemMetrics)

	m.RecordOperation("WRITE", 2*time.Millisecond, "")
	m.RecordOperation("WRITE", time.Millisecond, "NoSpace")
	m.RecordOperation("CREATE", time.Millisecond, "")
	m.RecordBytes("write", 512)
	m.RecordBytes("write", 100)
	m.RecordBytes("read", 7)
	m.RecordRelocation()
	m.SetUsage(2, 10, 24)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("WRITE", "success", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("WRITE", "error", "NoSpace")))
	assert.Equal(t, 612.0, testutil.ToFloat64(m.bytesTotal.WithLabelValues("write")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.bytesTotal.WithLabelValues("read")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.relocationsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.files))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.freeBlocks))
	assert.Equal(t, 24.0, testutil.ToFloat64(m.totalBlocks))
	assert.Equal(t, 2, testutil.CollectAndCount(m.operationDuration))
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewFileSystemMetrics(reg)
	m.RecordOperation("LS", time.Millisecond, "")
	m.SetUsage(0, 8, 8)

	path := filepath.Join(t.TempDir(), "blockfs.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `blockfs_operations_total{error_code="",operation="LS",status="success"} 1`)
	assert.Contains(t, string(data), "blockfs_free_blocks 8")
}

func TestWriteTextfile_BadPath(t *testing.T) {
	reg := prometheus.NewRegistry()
	err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "blockfs.prom"), reg)
	assert.ErrorContains(t, err, "failed to write metrics")
}
