package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/blockfs/pkg/metadata"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for rules that depend
// on the container layout or on which backend is selected.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if metadata.DataBlocks(cfg.Disk.Capacity) < 1 {
		return fmt.Errorf("disk.capacity: %d bytes leaves no %d-byte data block after the %d-byte metadata region",
			cfg.Disk.Capacity, metadata.BlockSize, metadata.MetadataSize)
	}

	if cfg.OpLog.Enabled && cfg.OpLog.Path == "" {
		return fmt.Errorf("oplog: path is required when the operation log is enabled")
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Textfile == "" {
		return fmt.Errorf("metrics: textfile is required when metrics are enabled")
	}

	if cfg.Disk.Type == "file" && isEmpty(cfg.Disk.File["path"]) {
		return fmt.Errorf("disk.file.path: required when disk.type is file")
	}
	if cfg.Disk.Type == "badger" && isEmpty(cfg.Disk.Badger["db_path"]) {
		return fmt.Errorf("disk.badger.db_path: required when disk.type is badger")
	}

	if cfg.Backup.Type == "s3" {
		if isEmpty(cfg.Backup.S3["bucket"]) {
			return fmt.Errorf("backup.s3.bucket: required when backup.type is s3")
		}
		if isEmpty(cfg.Backup.S3["region"]) {
			return fmt.Errorf("backup.s3.region: required when backup.type is s3")
		}
	}

	return nil
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		// Return the first validation error with context
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
