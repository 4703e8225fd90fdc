package config

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	backupFile "github.com/marmos91/blockfs/pkg/backup/file"
	diskFile "github.com/marmos91/blockfs/pkg/disk/file"
	"github.com/marmos91/blockfs/pkg/oplog"
)

func TestCreateStore_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "disk.sim")
	cfg := &DiskConfig{
		Type: "file",
		File: map[string]any{"path": path},
	}

	store, err := CreateStore(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create file store: %v", err)
	}
	defer func() { _ = store.Close() }()

	fileStore, ok := store.(*diskFile.FileStore)
	if !ok {
		t.Fatalf("Expected *file.FileStore, got %T", store)
	}
	if fileStore.Path() != path {
		t.Errorf("Expected path %q, got %q", path, fileStore.Path())
	}
	if store.Capacity() != 0 {
		t.Errorf("Expected a new container to be empty, got capacity %d", store.Capacity())
	}
}

func TestCreateStore_FileMissingPath(t *testing.T) {
	_, err := CreateStore(context.Background(), &DiskConfig{Type: "file", File: map[string]any{}})
	if err == nil {
		t.Fatal("Expected error for missing path")
	}
	if !strings.Contains(err.Error(), "path is required") {
		t.Errorf("Expected 'path is required' error, got: %v", err)
	}
}

func TestCreateStore_Memory(t *testing.T) {
	store, err := CreateStore(context.Background(), &DiskConfig{Type: "memory", Capacity: 8192})
	if err != nil {
		t.Fatalf("Failed to create memory store: %v", err)
	}
	if store.Capacity() != 8192 {
		t.Errorf("Expected capacity 8192, got %d", store.Capacity())
	}
}

func TestCreateStore_Badger(t *testing.T) {
	cfg := &DiskConfig{
		Type: "badger",
		Badger: map[string]any{
			"db_path":   filepath.Join(t.TempDir(), "db"),
			"page_size": "1024",
		},
	}

	store, err := CreateStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create badger store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Failed to close badger store: %v", err)
	}
}

func TestCreateStore_UnknownType(t *testing.T) {
	_, err := CreateStore(context.Background(), &DiskConfig{Type: "tape"})
	if err == nil {
		t.Fatal("Expected error for unknown store type")
	}
	if !strings.Contains(err.Error(), "unknown disk type") {
		t.Errorf("Expected 'unknown disk type' error, got: %v", err)
	}
}

func TestCreateStore_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, cfg := range []*DiskConfig{
		{Type: "file", File: map[string]any{"path": filepath.Join(t.TempDir(), "disk.sim")}},
		{Type: "badger", Badger: map[string]any{"db_path": t.TempDir()}},
		{Type: "memory", Capacity: 8192},
	} {
		_, err := CreateStore(ctx, cfg)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("%s: expected context.Canceled, got: %v", cfg.Type, err)
		}
	}
}

func TestCreateRecorder(t *testing.T) {
	if _, ok := CreateRecorder(&OpLogConfig{Enabled: false, Path: "fs.log"}).(oplog.Nop); !ok {
		t.Error("Expected Nop recorder when disabled")
	}

	rec, ok := CreateRecorder(&OpLogConfig{Enabled: true, Path: "fs.log"}).(*oplog.FileLog)
	if !ok {
		t.Fatal("Expected *oplog.FileLog when enabled")
	}
	if rec.Path() != "fs.log" {
		t.Errorf("Expected path 'fs.log', got %q", rec.Path())
	}
}

func TestCreateMetrics(t *testing.T) {
	m, reg := CreateMetrics(&MetricsConfig{Enabled: false})
	if reg != nil {
		t.Error("Expected nil registry when disabled")
	}
	if m == nil {
		t.Fatal("Expected no-op metrics when disabled")
	}

	m, reg = CreateMetrics(&MetricsConfig{Enabled: true, Textfile: "blockfs.prom"})
	if reg == nil {
		t.Fatal("Expected registry when enabled")
	}
	m.SetUsage(1, 2, 3)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	if len(families) == 0 {
		t.Error("Expected registered metric families")
	}
}

func TestCreateBackupDestination_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.bak")
	dst, err := CreateBackupDestination(context.Background(), &BackupConfig{
		Type: "file",
		File: map[string]any{"path": path},
	})
	if err != nil {
		t.Fatalf("Failed to create file destination: %v", err)
	}

	fileDst, ok := dst.(*backupFile.FileDestination)
	if !ok {
		t.Fatalf("Expected *file.FileDestination, got %T", dst)
	}
	if fileDst.Path() != path {
		t.Errorf("Expected path %q, got %q", path, fileDst.Path())
	}
}

func TestCreateBackupDestination_S3MissingFields(t *testing.T) {
	ctx := context.Background()

	_, err := CreateBackupDestination(ctx, &BackupConfig{Type: "s3", S3: map[string]any{"region": "us-east-1"}})
	if err == nil || !strings.Contains(err.Error(), "bucket is required") {
		t.Errorf("Expected 'bucket is required' error, got: %v", err)
	}

	_, err = CreateBackupDestination(ctx, &BackupConfig{Type: "s3", S3: map[string]any{"bucket": "images"}})
	if err == nil || !strings.Contains(err.Error(), "region is required") {
		t.Errorf("Expected 'region is required' error, got: %v", err)
	}
}

func TestCreateBackupDestination_UnknownType(t *testing.T) {
	_, err := CreateBackupDestination(context.Background(), &BackupConfig{Type: "tape"})
	if err == nil || !strings.Contains(err.Error(), "unknown backup type") {
		t.Errorf("Expected 'unknown backup type' error, got: %v", err)
	}
}
