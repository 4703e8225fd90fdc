package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete BlockFS configuration.
//
// This structure captures all configurable aspects of a BlockFS volume:
//   - Logging configuration
//   - Backing store selection and configuration (store-specific)
//   - Operation log settings
//   - Backup destination selection and configuration (destination-specific)
//   - Prometheus metrics export
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (BLOCKFS_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Backend Configuration Pattern:
// Each backend defines its own configuration type and factory function.
// The Config struct contains type-specific sections (e.g., disk.file,
// disk.badger) and only the section matching the selected type is used.
type Config struct {
	// Logging controls diagnostic log output
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Disk specifies the backing store type and its configuration
	Disk DiskConfig `mapstructure:"disk" yaml:"disk"`

	// OpLog controls the operation log
	OpLog OpLogConfig `mapstructure:"oplog" yaml:"oplog"`

	// Backup specifies where backup images are stored
	Backup BackupConfig `mapstructure:"backup" yaml:"backup"`

	// Metrics controls Prometheus metrics export
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// DiskConfig specifies the backing store.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type DiskConfig struct {
	// Type specifies which backing store implementation to use
	// Valid values: file, memory, badger
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=file memory badger"`

	// Capacity is the container size in bytes used when formatting
	// Must leave room for at least one data block after the metadata region
	Capacity int64 `mapstructure:"capacity" yaml:"capacity" validate:"required,gt=4096,lte=1073741824"`

	// File contains file-specific configuration
	// Only used when Type = "file"
	File map[string]any `mapstructure:"file" yaml:"file"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`
}

// OpLogConfig controls the append-only operation log.
type OpLogConfig struct {
	// Enabled turns the operation log on
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Path is the log file
	Path string `mapstructure:"path" yaml:"path"`
}

// BackupConfig specifies the backup destination.
type BackupConfig struct {
	// Type specifies which destination implementation to use
	// Valid values: file, s3
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=file s3"`

	// File contains local file configuration
	// Only used when Type = "file"
	File map[string]any `mapstructure:"file" yaml:"file"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3"`
}

// MetricsConfig controls Prometheus metrics collection.
//
// Metrics are written to Textfile after each command, in the format read by
// node_exporter's textfile collector.
type MetricsConfig struct {
	// Enabled turns metrics collection on
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Textfile is the .prom file the metrics are written to
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (BLOCKFS_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the BLOCKFS_ prefix and underscores
	// Example: BLOCKFS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("BLOCKFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Scalar keys are bound explicitly so env overrides work without a
	// config file mentioning them.
	for _, key := range []string{
		"logging.level", "logging.format", "logging.output",
		"disk.type", "disk.capacity",
		"oplog.enabled", "oplog.path",
		"backup.type",
		"metrics.enabled", "metrics.textfile",
	} {
		_ = v.BindEnv(key)
	}
	v.SetDefault("oplog.enabled", true)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/blockfs/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			// Config file not found is acceptable - use defaults
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "blockfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "blockfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
