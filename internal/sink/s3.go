package sink

import (
	"context"
	"fmt"
	"path"

	"github.com/fpang/media-map/internal/filehandler"
	"github.com/fpang/media-map/internal/s3util"
	"github.com/google/uuid"
)

// S3 stores thumbnails as objects under a key prefix.
type S3 struct {
	client s3util.ObjectAPI
	bucket string
	prefix string
}

// NewS3 creates an S3 sink.
func NewS3(client s3util.ObjectAPI, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: prefix}
}

var (
	_ Sink    = (*S3)(nil)
	_ Remover = (*S3)(nil)
)

// Kind implements Sink.
func (s *S3) Kind() string { return KindS3 }

// Store implements Sink. The object version id is the handle version when
// the bucket is versioned; otherwise the version is "1".
func (s *S3) Store(ctx context.Context, data []byte) (Handle, error) {
	ext := "." + filehandler.ThumbnailFormat
	contentType, err := filehandler.GetMIMEType(ext)
	if err != nil {
		return Handle{}, fmt.Errorf("s3 store: %w", err)
	}
	key := path.Join(s.prefix, uuid.NewString()+ext)

	version, err := s3util.PutBytes(ctx, s.client, s.bucket, key, contentType, data)
	if err != nil {
		return Handle{}, fmt.Errorf("s3 store: %w", err)
	}
	if version == "" {
		version = localVersion
	}

	return Handle{PublicID: key, Format: filehandler.ThumbnailFormat, Version: version}, nil
}

// Remove implements Remover.
func (s *S3) Remove(ctx context.Context, publicID string) error {
	return s3util.DeleteObject(ctx, s.client, s.bucket, publicID)
}
