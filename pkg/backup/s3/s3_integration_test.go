//go:build integration

package s3

import (
	"context"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/blockfs/pkg/backup"
	"github.com/marmos91/blockfs/pkg/disk/memory"
	"github.com/marmos91/blockfs/pkg/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestS3Destination_Integration backs a volume up to Localstack and restores
// it into a fresh container.
//
// Prerequisites:
//   - Localstack running on localhost:4566 (or LOCALSTACK_ENDPOINT)
//   - Run with: go test -tags=integration ./pkg/backup/s3/...
//
// To start Localstack:
//
//	docker run --rm -p 4566:4566 localstack/localstack
func TestS3Destination_Integration(t *testing.T) {
	ctx := context.Background()

	endpoint := os.Getenv("LOCALSTACK_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	require.NoError(t, err)

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	bucketName := "blockfs-backup-test"
	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucketName)})
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucketName),
			Key:    aws.String("it/disk.bak"),
		})
		_, _ = client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucketName)})
	})

	dst, err := NewS3Destination(ctx, S3DestinationConfig{Client: client, Bucket: bucketName, Key: "it/disk.bak"})
	require.NoError(t, err)

	store, err := memory.NewMemoryStore(ctx, 0)
	require.NoError(t, err)
	fs := filesystem.New(store, filesystem.Options{})
	require.NoError(t, fs.Format(ctx))
	require.NoError(t, fs.Create(ctx, "remote.txt"))
	require.NoError(t, fs.Write(ctx, "remote.txt", []byte("via s3")))

	_, err = backup.Backup(ctx, store, dst)
	require.NoError(t, err)

	fresh, err := memory.NewMemoryStore(ctx, 0)
	require.NoError(t, err)
	_, err = backup.Restore(ctx, fresh, dst)
	require.NoError(t, err)

	got, err := filesystem.New(fresh, filesystem.Options{}).Cat(ctx, "remote.txt")
	require.NoError(t, err)
	assert.Equal(t, "via s3", string(got))
}
