package dropbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// newTestClient creates a Client routing every SDK call to a test HTTP server.
func newTestClient(server *httptest.Server) *Client {
	return newClient("test-token", time.Second, func(hostType, namespace, route string) string {
		return server.URL + "/2/" + namespace + "/" + route
	})
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Errorf("decode request body: %v", err)
	}
	return body
}

func TestListAllFollowsCursor(t *testing.T) {
	var calls []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		body := decodeBody(t, r)
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/2/files/list_folder":
			if body["path"] != "/Photos/2019/01 - Summer Trip" || body["recursive"] != true {
				t.Errorf("unexpected list_folder body: %v", body)
			}
			io.WriteString(w, `{
				"entries": [
					{".tag": "folder", "name": "day1", "id": "id:f1", "path_display": "/Photos/2019/01 - Summer Trip/day1"},
					{".tag": "file", "name": "a.jpg", "id": "id:a", "path_display": "/Photos/2019/01 - Summer Trip/day1/a.jpg",
					 "client_modified": "2019-07-14T18:32:05Z", "server_modified": "2019-07-14T18:32:05Z", "rev": "0123456789a", "size": 10}
				],
				"cursor": "cursor-1",
				"has_more": true
			}`)
		case "/2/files/list_folder/continue":
			if body["cursor"] != "cursor-1" {
				t.Errorf("cursor = %v, want cursor-1", body["cursor"])
			}
			io.WriteString(w, `{
				"entries": [
					{".tag": "file", "name": "b.jpg", "id": "id:b", "path_display": "/Photos/2019/01 - Summer Trip/b.jpg",
					 "client_modified": "2019-07-14T18:32:05Z", "server_modified": "2019-07-14T18:32:05Z", "rev": "0123456789b", "size": 10},
					{".tag": "deleted", "name": "gone.jpg", "path_display": "/Photos/2019/01 - Summer Trip/gone.jpg"}
				],
				"cursor": "cursor-2",
				"has_more": false
			}`)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	entries, err := newTestClient(server).ListAll(context.Background(), "/Photos/2019/01 - Summer Trip", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}

	wantTags := []string{TagFolder, TagFile, TagFile, TagDeleted}
	for i, e := range entries {
		if e.Tag != wantTags[i] {
			t.Errorf("entries[%d].Tag = %q, want %q", i, e.Tag, wantTags[i])
		}
	}
	if entries[2].ID != "id:b" || !entries[2].IsFile() {
		t.Errorf("entries[2] = %+v, want file id:b", entries[2])
	}
	if len(calls) != 2 || calls[1] != "/2/files/list_folder/continue" {
		t.Errorf("calls = %v, want list_folder then continue", calls)
	}
}

func TestListAllAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"error_summary": "path/not_found/..", "error": {".tag": "path", "path": {".tag": "not_found"}}}`)
	}))
	defer server.Close()

	_, err := newTestClient(server).ListAll(context.Background(), "/missing", false)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Endpoint != "files/list_folder" {
		t.Errorf("Endpoint = %q, want files/list_folder", apiErr.Endpoint)
	}
	if !strings.Contains(err.Error(), "path/not_found") {
		t.Errorf("error = %q, want the error summary", err)
	}
}

func TestListAllContinueError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/2/files/list_folder/continue" {
			http.Error(w, "expired", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"entries": [], "cursor": "c", "has_more": true}`)
	}))
	defer server.Close()

	_, err := newTestClient(server).ListAll(context.Background(), "/Photos", false)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Endpoint != "files/list_folder/continue" {
		t.Errorf("expected continue *APIError, got %v", err)
	}
}

func TestListAllCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request: %s", r.URL.Path)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestClient(server).ListAll(ctx, "/Photos", false); !errors.Is(err, context.Canceled) {
		t.Errorf("ListAll() error = %v, want context.Canceled", err)
	}
}

func TestGetMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/files/get_metadata" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		body := decodeBody(t, r)
		if body["include_media_info"] != true {
			t.Errorf("include_media_info = %v, want true", body["include_media_info"])
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			".tag": "file",
			"name": "a.jpg",
			"id": "id:a",
			"path_display": "/Photos/2019/Trip/a.jpg",
			"client_modified": "2019-07-14T18:32:05Z",
			"server_modified": "2019-07-14T18:32:05Z",
			"rev": "0123456789a",
			"size": 10,
			"media_info": {
				".tag": "metadata",
				"metadata": {
					".tag": "photo",
					"dimensions": {"width": 4032, "height": 3024},
					"location": {"latitude": 35.103, "longitude": -120.5},
					"time_taken": "2019-07-14T18:32:05Z"
				}
			}
		}`)
	}))
	defer server.Close()

	md, err := newTestClient(server).GetMetadata(context.Background(), "/Photos/2019/Trip/a.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if md.ID != "id:a" || md.PathDisplay != "/Photos/2019/Trip/a.jpg" {
		t.Errorf("entry = %+v", md.Entry)
	}
	if md.MediaInfo == nil || md.MediaInfo.Metadata == nil {
		t.Fatal("expected media info metadata")
	}
	m := md.MediaInfo.Metadata
	if m.Location == nil || m.Location.Latitude != 35.103 || m.Location.Longitude != -120.5 {
		t.Errorf("Location = %+v", m.Location)
	}
	want := time.Date(2019, 7, 14, 18, 32, 5, 0, time.UTC)
	if m.TimeTaken == nil || !m.TimeTaken.Equal(want) {
		t.Errorf("TimeTaken = %v, want %v", m.TimeTaken, want)
	}
	if m.Dimensions == nil || m.Dimensions.Width != 4032 || m.Dimensions.Height != 3024 {
		t.Errorf("Dimensions = %+v", m.Dimensions)
	}
}

func TestGetMetadataPending(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			".tag": "file", "name": "a.jpg", "id": "id:a", "path_display": "/a.jpg",
			"client_modified": "2019-07-14T18:32:05Z", "server_modified": "2019-07-14T18:32:05Z", "rev": "0123456789a", "size": 10,
			"media_info": {".tag": "pending"}
		}`)
	}))
	defer server.Close()

	md, err := newTestClient(server).GetMetadata(context.Background(), "/a.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if md.MediaInfo == nil || md.MediaInfo.Tag != "pending" || md.MediaInfo.Metadata != nil {
		t.Errorf("MediaInfo = %+v, want pending without metadata", md.MediaInfo)
	}
}

func TestGetThumbnail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/files/get_thumbnail_v2" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		arg := r.Header.Get("Dropbox-API-Arg")
		if strings.ContainsFunc(arg, func(c rune) bool { return c > 0x7F }) {
			t.Errorf("Dropbox-API-Arg contains non-ASCII: %q", arg)
		}
		var parsed struct {
			Resource struct {
				Path string `json:"path"`
			} `json:"resource"`
			Format struct {
				Tag string `json:".tag"`
			} `json:"format"`
			Size struct {
				Tag string `json:".tag"`
			} `json:"size"`
		}
		if err := json.Unmarshal([]byte(arg), &parsed); err != nil {
			t.Errorf("parse Dropbox-API-Arg: %v", err)
		}
		if parsed.Resource.Path != "/Photos/2019/Été/café.jpg" {
			t.Errorf("path = %q", parsed.Resource.Path)
		}
		if parsed.Size.Tag != ThumbnailSize || parsed.Format.Tag != ThumbnailFormat {
			t.Errorf("size/format = %q/%q, want %q/%q", parsed.Size.Tag, parsed.Format.Tag, ThumbnailSize, ThumbnailFormat)
		}
		w.Header().Set("Dropbox-API-Result", `{}`)
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("PNGDATA"))
	}))
	defer server.Close()

	data, err := newTestClient(server).GetThumbnail(context.Background(), "/Photos/2019/Été/café.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "PNGDATA" {
		t.Errorf("data = %q", data)
	}
}
