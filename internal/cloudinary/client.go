// Package cloudinary wraps the Cloudinary Go SDK for the seeding pipeline:
// image uploads into a folder, asset destruction, and delivery URL
// composition.
package cloudinary

import (
	"context"
	"fmt"
	"io"
	"time"

	cld "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog/log"
)

const (
	defaultDeliveryURL = "https://res.cloudinary.com"

	// DefaultFolder is the logical folder thumbnails are uploaded into.
	DefaultFolder = "yanns-media"
)

// uploadAPI is the subset of the SDK's *uploader.API used by Client.
type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// Client uploads to a single Cloudinary cloud with API key credentials.
type Client struct {
	api uploadAPI
}

// NewClient creates a Cloudinary client for cloudName.
func NewClient(cloudName, apiKey, apiSecret string) (*Client, error) {
	c, err := cld.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config: %w", err)
	}
	return &Client{api: &c.Upload}, nil
}

// UploadResult is the subset of the upload response the pipeline keeps.
type UploadResult struct {
	PublicID  string
	Format    string
	Version   int64
	SecureURL string
	Bytes     int64
}

// APIError is returned when Cloudinary answers with an error payload.
type APIError struct {
	Op      string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cloudinary %s: %s", e.Op, e.Message)
}

// Upload sends r as an image upload into folder and returns the
// provider-assigned handle.
func (c *Client) Upload(ctx context.Context, r io.Reader, folder string) (*UploadResult, error) {
	startTime := time.Now()
	res, err := c.api.Upload(ctx, r, uploader.UploadParams{Folder: folder})
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	if res.Error.Message != "" {
		return nil, &APIError{Op: "upload", Message: res.Error.Message}
	}
	if res.PublicID == "" {
		return nil, fmt.Errorf("upload: response carried no public_id")
	}

	log.Debug().
		Str("publicId", res.PublicID).
		Str("format", res.Format).
		Int("version", res.Version).
		Dur("duration", time.Since(startTime)).
		Msg("Cloudinary upload complete")

	return &UploadResult{
		PublicID:  res.PublicID,
		Format:    res.Format,
		Version:   int64(res.Version),
		SecureURL: res.SecureURL,
		Bytes:     int64(res.Bytes),
	}, nil
}

// Destroy deletes an uploaded image by public id. A "not found" result is
// not an error.
func (c *Client) Destroy(ctx context.Context, publicID string) error {
	res, err := c.api.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("destroy %s: %w", publicID, err)
	}
	if res.Error.Message != "" {
		return &APIError{Op: "destroy", Message: res.Error.Message}
	}
	if res.Result != "ok" && res.Result != "not found" {
		return fmt.Errorf("destroy %s: unexpected result %q", publicID, res.Result)
	}
	return nil
}

// DeliveryURL composes the public URL of an uploaded image.
func DeliveryURL(cloudName, publicID, format string, version int64) string {
	return fmt.Sprintf("%s/%s/image/upload/v%d/%s.%s", defaultDeliveryURL, cloudName, version, publicID, format)
}
