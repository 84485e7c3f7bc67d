// Package dropbox adapts the Dropbox SDK's files namespace to what the
// seeding pipeline needs: folder listing with cursor continuation, file
// metadata with embedded media info, and thumbnail download.
//
// The SDK calls take no context; ctx is checked between calls so a
// cancelled run stops paging.
package dropbox

import (
	"context"
	"fmt"
	"io"
	"time"

	dbx "github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	// DefaultTimeout is the HTTP client timeout for API calls.
	DefaultTimeout = 60 * time.Second

	// ThumbnailSize and ThumbnailFormat select the preview rendition
	// downloaded for each photo.
	ThumbnailSize   = files.ThumbnailSizeW640h480
	ThumbnailFormat = files.ThumbnailFormatPng
)

// Entry tags returned in listings.
const (
	TagFile    = "file"
	TagFolder  = "folder"
	TagDeleted = "deleted"
)

// Client calls the Dropbox API with a bearer access token.
type Client struct {
	files files.Client
}

// NewClient creates a Dropbox API client. A zero timeout uses DefaultTimeout.
func NewClient(accessToken string, timeout time.Duration) *Client {
	return newClient(accessToken, timeout, nil)
}

// newClient builds the SDK client. urlGen, when set, replaces the SDK's
// host routing.
func newClient(accessToken string, timeout time.Duration, urlGen func(hostType, namespace, route string) string) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	httpClient.Timeout = timeout

	return &Client{files: files.New(dbx.Config{
		Token:        accessToken,
		LogLevel:     dbx.LogOff,
		Client:       httpClient,
		URLGenerator: urlGen,
	})}
}

// --- API types ---

// Entry is one item of a folder listing.
type Entry struct {
	Tag         string
	Name        string
	PathDisplay string
	PathLower   string
	ID          string
}

// IsFile reports whether the entry is a file (not a folder or tombstone).
func (e Entry) IsFile() bool { return e.Tag == TagFile }

// IsFolder reports whether the entry is a folder.
func (e Entry) IsFolder() bool { return e.Tag == TagFolder }

// FileMetadata is the result of files/get_metadata for a file.
type FileMetadata struct {
	Entry
	MediaInfo *MediaInfo
}

// MediaInfo wraps photo metadata; Tag is "pending" while Dropbox is still
// indexing the file, in which case Metadata is nil.
type MediaInfo struct {
	Tag      string
	Metadata *MediaMetadata
}

// MediaMetadata is the embedded EXIF summary Dropbox exposes for photos.
type MediaMetadata struct {
	Dimensions *Dimensions
	Location   *GPSCoordinates
	TimeTaken  *time.Time
}

// Dimensions are pixel dimensions.
type Dimensions struct {
	Width  int
	Height int
}

// GPSCoordinates are decimal degrees.
type GPSCoordinates struct {
	Latitude  float64
	Longitude float64
}

// APIError wraps any error the SDK returns for an endpoint.
type APIError struct {
	Endpoint string
	Err      error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dropbox %s: %v", e.Endpoint, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// --- Listing ---

// ListAll lists a folder and follows the cursor until has_more is false,
// returning every entry of every page in order.
func (c *Client) ListAll(ctx context.Context, path string, recursive bool) ([]Entry, error) {
	arg := files.NewListFolderArg(path)
	arg.Recursive = recursive

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, err := c.files.ListFolder(arg)
	if err != nil {
		return nil, &APIError{Endpoint: "files/list_folder", Err: err}
	}
	entries := toEntries(page.Entries)
	pages := 1

	for page.HasMore {
		if page.Cursor == "" {
			return nil, fmt.Errorf("dropbox list %s: has_more without cursor", path)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err = c.files.ListFolderContinue(files.NewListFolderContinueArg(page.Cursor))
		if err != nil {
			return nil, &APIError{Endpoint: "files/list_folder/continue", Err: err}
		}
		entries = append(entries, toEntries(page.Entries)...)
		pages++
	}

	log.Debug().Str("path", path).Int("entries", len(entries)).Int("pages", pages).Msg("Dropbox listing complete")
	return entries, nil
}

func toEntries(in []files.IsMetadata) []Entry {
	out := make([]Entry, 0, len(in))
	for _, m := range in {
		out = append(out, toEntry(m))
	}
	return out
}

func toEntry(m files.IsMetadata) Entry {
	switch v := m.(type) {
	case *files.FileMetadata:
		return Entry{Tag: TagFile, Name: v.Name, PathDisplay: v.PathDisplay, PathLower: v.PathLower, ID: v.Id}
	case *files.FolderMetadata:
		return Entry{Tag: TagFolder, Name: v.Name, PathDisplay: v.PathDisplay, PathLower: v.PathLower, ID: v.Id}
	case *files.DeletedMetadata:
		return Entry{Tag: TagDeleted, Name: v.Name, PathDisplay: v.PathDisplay, PathLower: v.PathLower}
	}
	return Entry{}
}

// --- Metadata and content ---

// GetMetadata fetches file metadata including embedded media info.
func (c *Client) GetMetadata(ctx context.Context, path string) (*FileMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	arg := files.NewGetMetadataArg(path)
	arg.IncludeMediaInfo = true
	res, err := c.files.GetMetadata(arg)
	if err != nil {
		return nil, &APIError{Endpoint: "files/get_metadata", Err: err}
	}

	file, ok := res.(*files.FileMetadata)
	if !ok {
		return nil, fmt.Errorf("dropbox get_metadata %s: not a file", path)
	}

	md := &FileMetadata{Entry: toEntry(file)}
	if file.MediaInfo != nil {
		md.MediaInfo = &MediaInfo{Tag: file.MediaInfo.Tag, Metadata: toMediaMetadata(file.MediaInfo.Metadata)}
	}
	return md, nil
}

func toMediaMetadata(m files.IsMediaMetadata) *MediaMetadata {
	var src files.MediaMetadata
	switch v := m.(type) {
	case *files.PhotoMetadata:
		src = v.MediaMetadata
	case *files.VideoMetadata:
		src = v.MediaMetadata
	default:
		return nil
	}

	out := &MediaMetadata{TimeTaken: src.TimeTaken}
	if src.Dimensions != nil {
		out.Dimensions = &Dimensions{Width: int(src.Dimensions.Width), Height: int(src.Dimensions.Height)}
	}
	if src.Location != nil {
		out.Location = &GPSCoordinates{Latitude: src.Location.Latitude, Longitude: src.Location.Longitude}
	}
	return out
}

// GetThumbnail downloads a ThumbnailSize rendition of a photo encoded as
// ThumbnailFormat.
func (c *Client) GetThumbnail(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	arg := files.NewThumbnailV2Arg(&files.PathOrLink{
		Tagged: dbx.Tagged{Tag: files.PathOrLinkPath},
		Path:   path,
	})
	arg.Format = &files.ThumbnailFormat{Tagged: dbx.Tagged{Tag: ThumbnailFormat}}
	arg.Size = &files.ThumbnailSize{Tagged: dbx.Tagged{Tag: ThumbnailSize}}

	startTime := time.Now()
	_, content, err := c.files.GetThumbnailV2(arg)
	if err != nil {
		return nil, &APIError{Endpoint: "files/get_thumbnail_v2", Err: err}
	}
	defer content.Close()

	data, err := io.ReadAll(content)
	if err != nil {
		return nil, fmt.Errorf("dropbox get_thumbnail_v2 %s: read: %w", path, err)
	}

	log.Debug().
		Str("path", path).
		Int("size", len(data)).
		Dur("duration", time.Since(startTime)).
		Msg("Dropbox thumbnail downloaded")
	return data, nil
}
