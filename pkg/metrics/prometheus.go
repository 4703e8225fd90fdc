package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// fileSystemMetrics is the Prometheus implementation of FileSystemMetrics.
type fileSystemMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesTotal        *prometheus.CounterVec
	relocationsTotal  prometheus.Counter
	files             prometheus.Gauge
	freeBlocks        prometheus.Gauge
	totalBlocks       prometheus.Gauge
}

// NewFileSystemMetrics creates a Prometheus-backed FileSystemMetrics whose
// collectors are registered on reg.
//
// Returns a no-op implementation if reg is nil.
func NewFileSystemMetrics(reg *prometheus.Registry) FileSystemMetrics {
	if reg == nil {
		return NewNoopFileSystemMetrics()
	}

	factory := promauto.With(reg)

	return &fileSystemMetrics{
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blockfs_operations_total",
				Help: "Total number of volume operations by operation and status",
			},
			[]string{"operation", "status", "error_code"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "blockfs_operation_duration_milliseconds",
				Help: "Duration of volume operations in milliseconds",
				Buckets: []float64{
					0.1,  // 100us
					1,    // 1ms
					10,   // 10ms
					100,  // 100ms
					1000, // 1s
				},
			},
			[]string{"operation"},
		),
		bytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blockfs_content_bytes_total",
				Help: "Total file content bytes read or written",
			},
			[]string{"direction"},
		),
		relocationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "blockfs_relocations_total",
				Help: "Total number of files moved because they could not grow in place",
			},
		),
		files: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "blockfs_files",
				Help: "Number of used file table slots",
			},
		),
		freeBlocks: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "blockfs_free_blocks",
				Help: "Number of data blocks not covered by any file",
			},
		),
		totalBlocks: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "blockfs_total_blocks",
				Help: "Number of data blocks in the container",
			},
		),
	}
}

func (m *fileSystemMetrics) RecordOperation(operation string, duration time.Duration, errorCode string) {
	status := "success"
	if errorCode != "" {
		status = "error"
	}

	m.operationsTotal.WithLabelValues(operation, status, errorCode).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(float64(duration.Microseconds()) / 1000) // Convert to milliseconds
}

func (m *fileSystemMetrics) RecordBytes(direction string, n int) {
	m.bytesTotal.WithLabelValues(direction).Add(float64(n))
}

func (m *fileSystemMetrics) RecordRelocation() {
	m.relocationsTotal.Inc()
}

func (m *fileSystemMetrics) SetUsage(files int, freeBlocks, totalBlocks int64) {
	m.files.Set(float64(files))
	m.freeBlocks.Set(float64(freeBlocks))
	m.totalBlocks.Set(float64(totalBlocks))
}
