package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fpang/media-map/internal/filehandler"
	"github.com/fpang/media-map/internal/sink"
	"github.com/fpang/media-map/internal/source"
	"github.com/fpang/media-map/internal/store"
)

// fakeSource serves an in-memory year -> event -> file tree.
type fakeSource struct {
	mu sync.Mutex

	partitions []string
	events     map[string][]source.Event
	files      map[string][]source.File
	meta       map[string]*filehandler.Metadata
	data       map[string][]byte

	listEventsErr error
	listFilesErr  error
	metadataCalls int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		events: make(map[string][]source.Event),
		files:  make(map[string][]source.File),
		meta:   make(map[string]*filehandler.Metadata),
		data:   make(map[string][]byte),
	}
}

// addFile registers a file under year/event with the given metadata and
// bytes, creating the event on first use.
func (s *fakeSource) addFile(year, event, name string, meta *filehandler.Metadata, data []byte) source.File {
	evPath := path.Join("/Photos", year, event)
	var ev source.Event
	found := false
	for _, e := range s.events[year] {
		if e.Path == evPath {
			ev, found = e, true
		}
	}
	if !found {
		ev = source.Event{Year: year, Name: event, Path: evPath}
		s.events[year] = append(s.events[year], ev)
	}

	p := path.Join(evPath, name)
	f := source.File{ID: "id:" + p, Name: name, Path: p, Event: ev}
	s.files[evPath] = append(s.files[evPath], f)
	s.meta[f.ID] = meta
	s.data[f.ID] = data
	return f
}

func (s *fakeSource) Kind() string { return "fake" }

func (s *fakeSource) ListPartitions(ctx context.Context) ([]string, error) {
	return s.partitions, nil
}

func (s *fakeSource) ListEvents(ctx context.Context, year string) ([]source.Event, error) {
	if s.listEventsErr != nil {
		return nil, s.listEventsErr
	}
	return s.events[year], nil
}

func (s *fakeSource) ListFiles(ctx context.Context, ev source.Event) ([]source.File, error) {
	if s.listFilesErr != nil {
		return nil, s.listFilesErr
	}
	return s.files[ev.Path], nil
}

func (s *fakeSource) Metadata(ctx context.Context, f source.File) (*filehandler.Metadata, error) {
	s.mu.Lock()
	s.metadataCalls++
	s.mu.Unlock()

	meta := s.meta[f.ID]
	if meta == nil {
		return nil, filehandler.ErrNoMetadata
	}
	cp := *meta
	return &cp, nil
}

func (s *fakeSource) ReadBytes(ctx context.Context, f source.File) ([]byte, error) {
	data, ok := s.data[f.ID]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

// fakeSink records stored thumbnails in memory.
type fakeSink struct {
	mu      sync.Mutex
	stored  [][]byte
	removed []string
	err     error
}

func (s *fakeSink) Kind() string { return "fake" }

func (s *fakeSink) Store(ctx context.Context, data []byte) (sink.Handle, error) {
	if s.err != nil {
		return sink.Handle{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored = append(s.stored, data)
	return sink.Handle{PublicID: fmt.Sprintf("thumb-%d", len(s.stored)), Format: "png", Version: "1"}, nil
}

func (s *fakeSink) Remove(ctx context.Context, publicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, publicID)
	return nil
}

// failingStore fails every write.
type failingStore struct{}

func (failingStore) PersistMedia(ctx context.Context, m *store.Media, img *store.Image) error {
	return errors.New("connection reset")
}

func (failingStore) DeleteAllImages(ctx context.Context) (int64, error) {
	return 0, errors.New("connection reset")
}

func (failingStore) DeleteAllMedia(ctx context.Context) (int64, error) {
	return 0, errors.New("connection reset")
}

func openTestStore(t *testing.T) *store.RecordStore {
	t.Helper()
	s, err := store.Open(context.Background(), "sqlite:"+filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.AutoMigrate(context.Background()))
	return s
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func ptr[T any](v T) *T { return &v }

func geotagged(w, h int) *filehandler.Metadata {
	return &filehandler.Metadata{
		Latitude:  ptr(35.1030),
		Longitude: ptr(-120.5),
		Width:     w,
		Height:    h,
	}
}
