package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/blockfs/internal/logger"
	"github.com/marmos91/blockfs/pkg/backup"
	backupFile "github.com/marmos91/blockfs/pkg/backup/file"
	backupS3 "github.com/marmos91/blockfs/pkg/backup/s3"
	"github.com/marmos91/blockfs/pkg/disk"
	diskBadger "github.com/marmos91/blockfs/pkg/disk/badger"
	diskFile "github.com/marmos91/blockfs/pkg/disk/file"
	diskMemory "github.com/marmos91/blockfs/pkg/disk/memory"
	"github.com/marmos91/blockfs/pkg/metrics"
	"github.com/marmos91/blockfs/pkg/oplog"
	"github.com/mitchellh/mapstructure"
	"github.com/prometheus/client_golang/prometheus"
)

// CreateStore creates a backing store based on configuration.
//
// This factory function uses the Type field to determine which store
// implementation to create, then decodes the type-specific configuration from
// the corresponding map and passes it to the store's constructor.
//
// Supported types:
//   - "file": Uses pkg/disk/file (one OS file, default disk.sim)
//   - "memory": Uses pkg/disk/memory (ephemeral, sized to disk.capacity)
//   - "badger": Uses pkg/disk/badger (BadgerDB, one key per page)
//
// The returned store may be uninitialized (capacity 0) if its container does
// not exist yet; the caller formats it.
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Disk configuration
//
// Returns:
//   - disk.Store: Opened backing store
//   - error: Configuration or initialization error
func CreateStore(ctx context.Context, cfg *DiskConfig) (disk.Store, error) {
	switch cfg.Type {
	case "file":
		return createFileStore(ctx, cfg.File)
	case "memory":
		return diskMemory.NewMemoryStore(ctx, cfg.Capacity)
	case "badger":
		return createBadgerStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown disk type: %q (supported: file, memory, badger)", cfg.Type)
	}
}

// createFileStore creates a file-backed store.
func createFileStore(ctx context.Context, options map[string]any) (disk.Store, error) {
	var storeCfg diskFile.FileStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode file disk config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("file disk: path is required")
	}

	store, err := diskFile.NewFileStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open file disk: %w", err)
	}
	return store, nil
}

// createBadgerStore creates a BadgerDB-backed store.
func createBadgerStore(ctx context.Context, options map[string]any) (disk.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var storeCfg diskBadger.BadgerStoreConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &storeCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode badger disk config: %w", err)
	}

	if storeCfg.DBPath == "" && !storeCfg.InMemory {
		return nil, fmt.Errorf("badger disk: db_path is required")
	}

	store, err := diskBadger.NewBadgerStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger disk: %w", err)
	}
	return store, nil
}

// CreateRecorder returns the operation log described by cfg.
func CreateRecorder(cfg *OpLogConfig) oplog.Recorder {
	if !cfg.Enabled {
		return oplog.Nop{}
	}
	return oplog.NewFileLog(cfg.Path)
}

// CreateMetrics returns the metrics collector described by cfg and the
// registry it reports to. The registry is nil when metrics are disabled.
func CreateMetrics(cfg *MetricsConfig) (metrics.FileSystemMetrics, *prometheus.Registry) {
	if !cfg.Enabled {
		return metrics.NewNoopFileSystemMetrics(), nil
	}
	reg := prometheus.NewRegistry()
	return metrics.NewFileSystemMetrics(reg), reg
}

// CreateBackupDestination creates a backup destination based on configuration.
//
// Supported types:
//   - "file": Uses pkg/backup/file (local image file)
//   - "s3": Uses pkg/backup/s3 (Amazon S3 or compatible storage)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Backup configuration
//
// Returns:
//   - backup.Destination: Ready destination
//   - error: Configuration or initialization error
func CreateBackupDestination(ctx context.Context, cfg *BackupConfig) (backup.Destination, error) {
	switch cfg.Type {
	case "file":
		return createFileDestination(cfg.File)
	case "s3":
		return createS3Destination(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown backup type: %q (supported: file, s3)", cfg.Type)
	}
}

// createFileDestination creates a local file destination.
func createFileDestination(options map[string]any) (backup.Destination, error) {
	var dstCfg backupFile.FileDestinationConfig
	if err := mapstructure.Decode(options, &dstCfg); err != nil {
		return nil, fmt.Errorf("failed to decode file backup config: %w", err)
	}
	return backupFile.NewFileDestination(dstCfg)
}

// createS3Destination creates an S3-based destination.
func createS3Destination(ctx context.Context, options map[string]any) (backup.Destination, error) {
	type S3DestinationConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		Key             string `mapstructure:"key"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var dstCfg S3DestinationConfig
	if err := mapstructure.Decode(options, &dstCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 backup config: %w", err)
	}

	if dstCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 backup: bucket is required")
	}
	if dstCfg.Region == "" {
		return nil, fmt.Errorf("S3 backup: region is required")
	}

	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(dstCfg.Region))

	// Set custom endpoint if provided (for MinIO, Localstack, etc.)
	if dstCfg.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               dstCfg.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Static credentials if provided, otherwise the default credential chain
	if dstCfg.AccessKeyID != "" && dstCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			dstCfg.AccessKeyID,
			dstCfg.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := dstCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 5
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client and destination
	// ========================================================================

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Force path-style addressing for compatibility with MinIO/Localstack
		if dstCfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	dst, err := backupS3.NewS3Destination(ctx, backupS3.S3DestinationConfig{
		Client: client,
		Bucket: dstCfg.Bucket,
		Key:    dstCfg.Key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 backup destination: %w", err)
	}

	logger.Info("S3 backup destination initialized: %s (region=%s)", dst, dstCfg.Region)
	return dst, nil
}
