package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fpang/media-map/internal/filehandler"
)

// Local reads the archive from a directory tree laid out as
// <root>/<year>/<event>/...
type Local struct {
	root string
	now  func() time.Time
}

// NewLocal creates a filesystem-backed source rooted at root.
func NewLocal(root string) *Local {
	return &Local{root: root, now: time.Now}
}

var _ Source = (*Local)(nil)

// Kind implements Source.
func (l *Local) Kind() string { return KindLocal }

// ListPartitions implements Source.
func (l *Local) ListPartitions(ctx context.Context) ([]string, error) {
	return filehandler.ListSubdirectories(l.root)
}

// ListEvents implements Source.
func (l *Local) ListEvents(ctx context.Context, year string) ([]Event, error) {
	yearDir := filepath.Join(l.root, year)
	names, err := filehandler.ListSubdirectories(yearDir)
	if err != nil {
		return nil, fmt.Errorf("list events of %s: %w", year, err)
	}

	events := make([]Event, 0, len(names))
	for _, name := range names {
		events = append(events, Event{Year: year, Name: name, Path: filepath.Join(yearDir, name)})
	}
	return events, nil
}

// ListFiles implements Source. The walk returns paths relative to the
// event folder; they are joined back onto it here.
func (l *Local) ListFiles(ctx context.Context, ev Event) ([]File, error) {
	rels, err := filehandler.ListFilesRecursive(ev.Path)
	if err != nil {
		return nil, fmt.Errorf("list files of %q: %w", ev.Path, err)
	}

	files := make([]File, 0, len(rels))
	for _, rel := range rels {
		full := filepath.Join(ev.Path, rel)
		files = append(files, File{ID: full, Name: filepath.Base(rel), Path: full, Event: ev})
	}
	return files, nil
}

// Metadata implements Source by parsing on-disk EXIF.
func (l *Local) Metadata(ctx context.Context, f File) (*filehandler.Metadata, error) {
	return filehandler.ExtractLocalMetadata(f.Path, l.now())
}

// ReadBytes implements Source.
func (l *Local) ReadBytes(ctx context.Context, f File) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}
	return data, nil
}
