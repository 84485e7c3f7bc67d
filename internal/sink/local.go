package sink

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/fpang/media-map/internal/filehandler"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// localNameLayout renders the UTC store time with millisecond precision.
	localNameLayout = "2006-01-02T15:04:05.000Z"
	localNameSuffix = "-image." + filehandler.ThumbnailFormat
	localVersion    = "1"
)

// LocalDisk writes thumbnails into a directory served by the web front end.
// Names are "<UTC store time>-<uuid>-image.png": the time keeps them in
// store order, the uuid keeps concurrent stores apart.
type LocalDisk struct {
	dir    string
	prefix string
	now    func() time.Time
	newID  func() string
}

// NewLocalDisk creates a sink writing into dir; handles are published as
// "<prefix>/<name>".
func NewLocalDisk(dir, prefix string) *LocalDisk {
	return &LocalDisk{dir: dir, prefix: prefix, now: time.Now, newID: uuid.NewString}
}

var (
	_ Sink    = (*LocalDisk)(nil)
	_ Purger  = (*LocalDisk)(nil)
	_ Remover = (*LocalDisk)(nil)
)

// Kind implements Sink.
func (l *LocalDisk) Kind() string { return KindLocalDisk }

// Dir returns the thumbnail directory.
func (l *LocalDisk) Dir() string { return l.dir }

// Store implements Sink.
func (l *LocalDisk) Store(ctx context.Context, data []byte) (Handle, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return Handle{}, fmt.Errorf("create thumbnail dir: %w", err)
	}

	name := l.now().UTC().Format(localNameLayout) + "-" + l.newID() + localNameSuffix
	f, err := os.OpenFile(filepath.Join(l.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Handle{}, fmt.Errorf("create thumbnail: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return Handle{}, fmt.Errorf("write thumbnail: %w", err)
	}
	if err := f.Close(); err != nil {
		return Handle{}, fmt.Errorf("write thumbnail: %w", err)
	}

	return Handle{
		PublicID: path.Join("/", l.prefix, name),
		Format:   filehandler.ThumbnailFormat,
		Version:  localVersion,
	}, nil
}

// Purge implements Purger by deleting every entry of the thumbnail
// directory. A missing directory is already empty.
func (l *LocalDisk) Purge(ctx context.Context) error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read thumbnail dir: %w", err)
	}

	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(l.dir, e.Name())); err != nil {
			return fmt.Errorf("purge %s: %w", e.Name(), err)
		}
	}
	log.Info().Str("dir", l.dir).Int("removed", len(entries)).Msg("Purged local thumbnails")
	return nil
}

// Remove implements Remover. Only the base name of publicID is used, so a
// handle can never address a file outside the thumbnail directory.
func (l *LocalDisk) Remove(ctx context.Context, publicID string) error {
	name := path.Base(publicID)
	if name == "/" || name == "." {
		return fmt.Errorf("invalid public id %q", publicID)
	}
	err := os.Remove(filepath.Join(l.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove thumbnail %s: %w", name, err)
	}
	return nil
}
