package s3util

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// PutBytes uploads data under key with the project tag and returns the
// object's version id, empty when the bucket is not versioned.
func PutBytes(ctx context.Context, client ObjectAPI, bucket, key, contentType string, data []byte) (string, error) {
	log.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Int("size", len(data)).
		Msg("Uploading object to S3")

	out, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &bucket,
		Key:           &key,
		Body:          bytes.NewReader(data),
		ContentType:   &contentType,
		ContentLength: aws.Int64(int64(len(data))),
		Tagging:       ProjectTagging(),
	})
	if err != nil {
		return "", fmt.Errorf("S3 PutObject %s: %w", key, err)
	}

	return aws.ToString(out.VersionId), nil
}

// DeleteObject removes key from bucket. Deleting a missing key succeeds.
func DeleteObject(ctx context.Context, client ObjectAPI, bucket, key string) error {
	_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("S3 DeleteObject %s: %w", key, err)
	}
	log.Debug().Str("bucket", bucket).Str("key", key).Msg("Deleted object from S3")
	return nil
}
