package source

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/fpang/media-map/internal/dropbox"
	"github.com/fpang/media-map/internal/filehandler"
	"github.com/rs/zerolog/log"
)

// dropboxAPI is the subset of *dropbox.Client used by Remote.
type dropboxAPI interface {
	ListAll(ctx context.Context, path string, recursive bool) ([]dropbox.Entry, error)
	GetMetadata(ctx context.Context, path string) (*dropbox.FileMetadata, error)
	GetThumbnail(ctx context.Context, path string) ([]byte, error)
}

// Remote reads the archive from Dropbox under a root folder such as
// "/Photos", laid out as <root>/<year>/<event>/...
type Remote struct {
	api  dropboxAPI
	root string
}

// NewRemote creates a Dropbox-backed source.
func NewRemote(api dropboxAPI, root string) *Remote {
	return &Remote{api: api, root: normalizeRoot(root)}
}

var _ Source = (*Remote)(nil)

// Kind implements Source.
func (r *Remote) Kind() string { return KindRemote }

// ListPartitions implements Source.
func (r *Remote) ListPartitions(ctx context.Context) ([]string, error) {
	entries, err := r.api.ListAll(ctx, r.root, false)
	if err != nil {
		return nil, fmt.Errorf("list partitions under %q: %w", r.root, err)
	}

	var years []string
	for _, e := range entries {
		if e.IsFolder() {
			years = append(years, e.Name)
		}
	}
	return years, nil
}

// ListEvents implements Source.
func (r *Remote) ListEvents(ctx context.Context, year string) ([]Event, error) {
	yearPath := path.Join(r.root, year)
	entries, err := r.api.ListAll(ctx, yearPath, false)
	if err != nil {
		return nil, fmt.Errorf("list events of %s: %w", year, err)
	}

	var events []Event
	for _, e := range entries {
		if !e.IsFolder() {
			continue
		}
		p := e.PathDisplay
		if p == "" {
			p = path.Join(yearPath, e.Name)
		}
		events = append(events, Event{Year: year, Name: e.Name, Path: p})
	}
	return events, nil
}

// ListFiles implements Source. Only file-tagged entries are kept; folder
// entries are listing nodes. Entries repeated across pages are dropped.
func (r *Remote) ListFiles(ctx context.Context, ev Event) ([]File, error) {
	entries, err := r.api.ListAll(ctx, ev.Path, true)
	if err != nil {
		return nil, fmt.Errorf("list files of %q: %w", ev.Path, err)
	}

	seen := make(map[string]bool, len(entries))
	var files []File
	for _, e := range entries {
		if !e.IsFile() {
			continue
		}
		key := e.ID
		if key == "" {
			key = strings.ToLower(e.PathDisplay)
		}
		if seen[key] {
			log.Debug().Str("id", key).Msg("Skipping duplicate listing entry")
			continue
		}
		seen[key] = true
		files = append(files, File{ID: e.ID, Name: e.Name, Path: e.PathDisplay, Event: ev})
	}
	return files, nil
}

// Metadata implements Source using Dropbox's embedded media info. Unlike
// local extraction there is no capture-time fallback: a photo without
// time_taken keeps a nil CapturedAt.
func (r *Remote) Metadata(ctx context.Context, f File) (*filehandler.Metadata, error) {
	md, err := r.api.GetMetadata(ctx, f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", filehandler.ErrNoMetadata, err)
	}
	if md.MediaInfo == nil || md.MediaInfo.Metadata == nil {
		return nil, fmt.Errorf("%w: no media info for %s", filehandler.ErrNoMetadata, f.Path)
	}

	info := md.MediaInfo.Metadata
	meta := &filehandler.Metadata{CapturedAt: info.TimeTaken}
	if info.Location != nil {
		lat, long := info.Location.Latitude, info.Location.Longitude
		meta.Latitude = &lat
		meta.Longitude = &long
	}
	if info.Dimensions != nil {
		meta.Width = info.Dimensions.Width
		meta.Height = info.Dimensions.Height
	}
	return meta, nil
}

// ReadBytes implements Source by downloading a preview rendition.
func (r *Remote) ReadBytes(ctx context.Context, f File) ([]byte, error) {
	data, err := r.api.GetThumbnail(ctx, f.Path)
	if err != nil {
		return nil, fmt.Errorf("download preview of %s: %w", f.Path, err)
	}
	return data, nil
}

func normalizeRoot(root string) string {
	root = strings.TrimSpace(root)
	if root == "" || root == "/" {
		return ""
	}
	if !strings.HasPrefix(root, "/") {
		root = "/" + root
	}
	return strings.TrimSuffix(root, "/")
}
