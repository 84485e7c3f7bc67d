package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/fpang/media-map/internal/cloudinary"
)

// uploader is the subset of *cloudinary.Client used by Cloud.
type uploader interface {
	Upload(ctx context.Context, r io.Reader, folder string) (*cloudinary.UploadResult, error)
	Destroy(ctx context.Context, publicID string) error
}

// Cloud streams thumbnails to Cloudinary under a fixed folder.
type Cloud struct {
	client uploader
	folder string
}

// NewCloud creates a Cloudinary sink. An empty folder uses
// cloudinary.DefaultFolder.
func NewCloud(client uploader, folder string) *Cloud {
	if folder == "" {
		folder = cloudinary.DefaultFolder
	}
	return &Cloud{client: client, folder: folder}
}

var (
	_ Sink    = (*Cloud)(nil)
	_ Remover = (*Cloud)(nil)
)

// Kind implements Sink.
func (c *Cloud) Kind() string { return KindCloud }

// Store implements Sink; the handle is provider-assigned.
func (c *Cloud) Store(ctx context.Context, data []byte) (Handle, error) {
	res, err := c.client.Upload(ctx, bytes.NewReader(data), c.folder)
	if err != nil {
		return Handle{}, fmt.Errorf("cloud store: %w", err)
	}
	return Handle{
		PublicID: res.PublicID,
		Format:   res.Format,
		Version:  strconv.FormatInt(res.Version, 10),
	}, nil
}

// Remove implements Remover.
func (c *Cloud) Remove(ctx context.Context, publicID string) error {
	return c.client.Destroy(ctx, publicID)
}
