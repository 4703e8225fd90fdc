// Package metrics provides Prometheus metrics collection for BlockFS volumes.
//
// Metrics are optional - a nil registry yields a no-op implementation with
// zero overhead, so a volume runs the same with or without collection.
//
// Usage:
//
//	reg := prometheus.NewRegistry()
//	fs := filesystem.New(store, filesystem.Options{
//	    Metrics: metrics.NewFileSystemMetrics(reg),
//	})
//	...
//	metrics.WriteTextfile("blockfs.prom", reg)
package metrics

import (
	"time"
)

// FileSystemMetrics provides observability for volume operations.
type FileSystemMetrics interface {
	// RecordOperation records a completed operation.
	//
	// Parameters:
	//   - operation: Operation name (e.g., "CREATE", "WRITE", "DEFRAGMENT")
	//   - duration: Time spent inside the transaction
	//   - errorCode: Error kind, or "" if the operation succeeded
	RecordOperation(operation string, duration time.Duration, errorCode string)

	// RecordBytes records file content moved by an operation.
	//
	// Parameters:
	//   - direction: "read" or "write"
	//   - n: Number of content bytes
	RecordBytes(direction string, n int)

	// RecordRelocation records a file moved to a new start block because it
	// could not grow in place.
	RecordRelocation()

	// SetUsage updates the occupancy gauges.
	SetUsage(files int, freeBlocks, totalBlocks int64)
}

// noopFileSystemMetrics is a no-op implementation of FileSystemMetrics.
type noopFileSystemMetrics struct{}

func (noopFileSystemMetrics) RecordOperation(string, time.Duration, string) {}
func (noopFileSystemMetrics) RecordBytes(string, int)                        {}
func (noopFileSystemMetrics) RecordRelocation()                              {}
func (noopFileSystemMetrics) SetUsage(int, int64, int64)                     {}

// NewNoopFileSystemMetrics returns a FileSystemMetrics that discards
// everything.
func NewNoopFileSystemMetrics() FileSystemMetrics {
	return noopFileSystemMetrics{}
}
