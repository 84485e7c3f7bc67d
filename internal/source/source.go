// Package source enumerates a photo archive laid out as year -> event ->
// files and hands the pipeline each file's metadata and bytes.
//
// Two connectors implement Source: Remote (Dropbox) and Local (a
// directory tree). The pipeline picks one at startup and never branches on
// the kind again.
package source

import (
	"context"

	"github.com/fpang/media-map/internal/filehandler"
)

// Kinds accepted by New.
const (
	KindRemote = "remote"
	KindLocal  = "local"
)

// Event is a named folder of related photos under a year partition.
type Event struct {
	Year string
	// Name is the raw folder name, before normalization.
	Name string
	// Path locates the folder in the source (provider path or directory).
	Path string
}

// File is one leaf of an event folder.
type File struct {
	// ID is the source's identifier for the file: the Dropbox id for
	// remote files, the absolute path for local ones.
	ID    string
	Name  string
	Path  string
	Event Event
}

// Source is the capability both connectors provide.
type Source interface {
	// Kind returns KindRemote or KindLocal.
	Kind() string

	// ListPartitions returns the year folders directly under the root.
	ListPartitions(ctx context.Context) ([]string, error)

	// ListEvents returns the event folders of one year, in source order.
	ListEvents(ctx context.Context, year string) ([]Event, error)

	// ListFiles returns every file below an event folder, recursively,
	// without directory entries or duplicates, in source order.
	ListFiles(ctx context.Context, ev Event) ([]File, error)

	// Metadata extracts the normalized metadata of a file. A file with no
	// usable metadata yields an error wrapping filehandler.ErrNoMetadata.
	Metadata(ctx context.Context, f File) (*filehandler.Metadata, error)

	// ReadBytes returns the image bytes to transcode: a provider-rendered
	// preview for remote files, the full file for local ones.
	ReadBytes(ctx context.Context, f File) ([]byte, error)
}
