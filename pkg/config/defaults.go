package config

import (
	"strings"

	"github.com/marmos91/blockfs/pkg/metadata"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
//   - Backend-specific defaults are filled for every backend so generated
//     sample files show all options
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyDiskDefaults(&cfg.Disk)
	applyOpLogDefaults(&cfg.OpLog)
	applyBackupDefaults(&cfg.Backup)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyDiskDefaults sets backing store defaults.
func applyDiskDefaults(cfg *DiskConfig) {
	if cfg.Type == "" {
		cfg.Type = "file"
	}
	if cfg.Capacity == 0 {
		cfg.Capacity = metadata.DefaultCapacity
	}

	if cfg.File == nil {
		cfg.File = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	if _, ok := cfg.File["path"]; !ok {
		cfg.File["path"] = "disk.sim"
	}
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = "blockfs.db"
	}
}

// applyOpLogDefaults sets operation log defaults.
//
// Enabled is defaulted in setupViper: after unmarshalling, false cannot be
// told apart from unset.
func applyOpLogDefaults(cfg *OpLogConfig) {
	if cfg.Path == "" {
		cfg.Path = "fs.log"
	}
}

// applyBackupDefaults sets backup destination defaults.
func applyBackupDefaults(cfg *BackupConfig) {
	if cfg.Type == "" {
		cfg.Type = "file"
	}

	if cfg.File == nil {
		cfg.File = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	if _, ok := cfg.File["path"]; !ok {
		cfg.File["path"] = "disk.bak"
	}
	if _, ok := cfg.S3["key"]; !ok {
		cfg.S3["key"] = "disk.bak"
	}
}

// applyMetricsDefaults sets metrics defaults. Collection stays off unless
// enabled explicitly.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Textfile == "" {
		cfg.Textfile = "blockfs.prom"
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		OpLog: OpLogConfig{
			Enabled: true,
		},
		Backup: BackupConfig{
			S3: map[string]any{
				"region":   "us-east-1",
				"bucket":   "",
				"endpoint": "",
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
