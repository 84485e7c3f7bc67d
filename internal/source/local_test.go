package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fpang/media-map/internal/filehandler"
)

func mkfile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLocalHierarchy(t *testing.T) {
	root := t.TempDir()
	mkfile(t, filepath.Join(root, "2019", "01 - Summer Trip", "a.jpg"), []byte("a"))
	mkfile(t, filepath.Join(root, "2019", "01 - Summer Trip", "day2", "b.png"), []byte("b"))
	mkfile(t, filepath.Join(root, "2019", "02 - Wedding", "c.jpg"), []byte("c"))
	mkfile(t, filepath.Join(root, "2019", "loose.jpg"), []byte("x"))
	mkfile(t, filepath.Join(root, "2020", "Ski", "d.jpg"), []byte("d"))

	src := NewLocal(root)
	ctx := context.Background()

	years, err := src.ListPartitions(ctx)
	if err != nil {
		t.Fatalf("ListPartitions() error: %v", err)
	}
	if len(years) != 2 {
		t.Errorf("ListPartitions() = %v, want 2 years", years)
	}

	events, err := src.ListEvents(ctx, "2019")
	if err != nil {
		t.Fatalf("ListEvents() error: %v", err)
	}
	if len(events) != 2 || events[0].Name != "01 - Summer Trip" || events[1].Name != "02 - Wedding" {
		t.Fatalf("ListEvents() = %+v", events)
	}

	files, err := src.ListFiles(ctx, events[0])
	if err != nil {
		t.Fatalf("ListFiles() error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("ListFiles() returned %d files, want 2", len(files))
	}
	want := filepath.Join(root, "2019", "01 - Summer Trip", "day2", "b.png")
	if files[1].Path != want || files[1].Name != "b.png" || files[1].ID != want {
		t.Errorf("files[1] = %+v, want path %s", files[1], want)
	}

	data, err := src.ReadBytes(ctx, files[0])
	if err != nil {
		t.Fatalf("ReadBytes() error: %v", err)
	}
	if string(data) != "a" {
		t.Errorf("ReadBytes() = %q, want %q", data, "a")
	}
}

func TestLocalMissingYear(t *testing.T) {
	if _, err := NewLocal(t.TempDir()).ListEvents(context.Background(), "1999"); err == nil {
		t.Error("ListEvents() on a missing year expected error, got nil")
	}
}

func TestLocalMetadataNoExif(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "2019", "Trip", "a.jpg")
	mkfile(t, path, []byte("not a jpeg"))

	_, err := NewLocal(root).Metadata(context.Background(), File{Path: path})
	if !errors.Is(err, filehandler.ErrNoMetadata) {
		t.Errorf("Metadata() error = %v, want ErrNoMetadata", err)
	}
}
