// Package s3 stores container images as objects in Amazon S3 or an
// S3-compatible service (MinIO, Localstack).
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/blockfs/pkg/backup"
)

// Client is the subset of *s3.Client the destination uses.
type Client interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3DestinationConfig contains configuration for an S3 destination.
type S3DestinationConfig struct {
	// Client is the configured S3 client
	Client Client

	// Bucket is the S3 bucket name; it must already exist
	Bucket string

	// Key is the object key of the image (default "disk.bak")
	Key string
}

// S3Destination keeps the image as a single object.
//
// Put uploads the whole image with one PutObject; S3 replaces objects
// atomically, so readers see either the old or the new image.
type S3Destination struct {
	client Client
	bucket string
	key    string
}

// NewS3Destination verifies bucket access and returns a destination.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: S3 configuration
//
// Returns:
//   - *S3Destination: Ready destination
//   - error: Missing client or bucket, or HeadBucket failure
func NewS3Destination(ctx context.Context, cfg S3DestinationConfig) (*S3Destination, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	key := cfg.Key
	if key == "" {
		key = "disk.bak"
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3Destination{
		client: cfg.Client,
		bucket: cfg.Bucket,
		key:    key,
	}, nil
}

func (d *S3Destination) String() string {
	return fmt.Sprintf("s3://%s/%s", d.bucket, d.key)
}

func (d *S3Destination) Put(ctx context.Context, image []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(d.bucket),
		Key:           aws.String(d.key),
		Body:          bytes.NewReader(image),
		ContentLength: aws.Int64(int64(len(image))),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload image: %w", err)
	}
	return nil
}

func (d *S3Destination) Get(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%s: %w", d, backup.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer func() { _ = result.Body.Close() }()

	image, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	return image, nil
}
