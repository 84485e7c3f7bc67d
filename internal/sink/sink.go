// Package sink stores generated thumbnails and returns the opaque handle
// the record store keeps for each image.
package sink

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/fpang/media-map/internal/cloudinary"
)

// Kinds accepted by configuration.
const (
	KindCloud     = "cloud"
	KindLocalDisk = "local-disk"
	KindS3        = "s3"
)

// Handle identifies a stored thumbnail. Together the three fields are
// enough to rebuild a retrievable URL or path.
type Handle struct {
	PublicID string
	Format   string
	Version  string
}

// Sink accepts a thumbnail buffer and returns its handle.
type Sink interface {
	Kind() string
	Store(ctx context.Context, data []byte) (Handle, error)
}

// Purger is implemented by sinks that can drop every stored thumbnail
// (used by reset runs).
type Purger interface {
	Purge(ctx context.Context) error
}

// Remover is implemented by sinks that can delete a single thumbnail.
type Remover interface {
	Remove(ctx context.Context, publicID string) error
}

// NormalizeKind maps configuration aliases onto a sink kind.
func NormalizeKind(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindCloud, "cloudinary":
		return KindCloud, nil
	case KindLocalDisk, "local", "local_disk":
		return KindLocalDisk, nil
	case KindS3:
		return KindS3, nil
	}
	return "", fmt.Errorf("unknown storage kind %q", kind)
}

// URLOptions carries the deployment details URL needs per kind.
type URLOptions struct {
	CloudName string
	Bucket    string
}

// URL composes the retrieval location of a stored thumbnail:
//   - local-disk: the site-relative path, segment-escaped
//   - cloud: the Cloudinary delivery URL
//   - s3: an s3:// URI
func URL(kind string, h Handle, opts URLOptions) (string, error) {
	kind, err := NormalizeKind(kind)
	if err != nil {
		return "", err
	}

	switch kind {
	case KindLocalDisk:
		segments := strings.Split(strings.TrimPrefix(h.PublicID, "/"), "/")
		for i, s := range segments {
			segments[i] = url.PathEscape(s)
		}
		return "/" + strings.Join(segments, "/"), nil
	case KindS3:
		return fmt.Sprintf("s3://%s/%s", opts.Bucket, h.PublicID), nil
	default:
		version, err := strconv.ParseInt(h.Version, 10, 64)
		if err != nil {
			return "", fmt.Errorf("invalid version %q: %w", h.Version, err)
		}
		return cloudinary.DeliveryURL(opts.CloudName, h.PublicID, h.Format, version), nil
	}
}
