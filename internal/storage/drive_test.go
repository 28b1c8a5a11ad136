package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tempolab/podtempo/internal/shared"
)

func newTestDrive(t *testing.T, handler http.Handler) (*DriveService, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	svc := NewDriveService(server.Client(), 0, WithBaseURLs(server.URL, server.URL))
	return svc, server
}

func TestDriveList(t *testing.T) {
	t.Run("returns files for matching query", func(t *testing.T) {
		var gotQuery string
		svc, _ := newTestDrive(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/files" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			gotQuery = r.URL.Query().Get("q")
			json.NewEncoder(w).Encode(map[string]any{
				"files": []File{
					{ID: "f1", Name: "mix.m3u", ModifiedTime: "2026-08-20T10:00:00Z"},
					{ID: "f2", Name: "run.m3u", ModifiedTime: "2026-08-21T10:00:00Z"},
				},
			})
		}))

		files, err := svc.List(context.Background(), "name contains '.m3u'")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if gotQuery != "name contains '.m3u'" {
			t.Errorf("query = %q", gotQuery)
		}
		if len(files) != 2 || files[0].ID != "f1" {
			t.Errorf("unexpected files %+v", files)
		}
	})

	t.Run("wraps non-200 responses", func(t *testing.T) {
		svc, _ := newTestDrive(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exceeded", http.StatusForbidden)
		}))

		_, err := svc.List(context.Background(), "q")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestDriveDownload(t *testing.T) {
	t.Run("returns content bytes", func(t *testing.T) {
		svc, _ := newTestDrive(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/files/f1" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Get("alt") != "media" {
				t.Errorf("alt = %q, want media", r.URL.Query().Get("alt"))
			}
			w.Write([]byte("#EXTM3U\n"))
		}))

		content, err := svc.Download(context.Background(), "f1")
		if err != nil {
			t.Fatalf("Download() error = %v", err)
		}
		if string(content) != "#EXTM3U\n" {
			t.Errorf("content = %q", content)
		}
	})

	t.Run("404 maps to ErrFileNotFound", func(t *testing.T) {
		svc, _ := newTestDrive(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))

		_, err := svc.Download(context.Background(), "missing")
		if !errors.Is(err, shared.ErrFileNotFound) {
			t.Errorf("expected ErrFileNotFound, got %v", err)
		}
	})
}

func TestDriveUpload(t *testing.T) {
	t.Run("sends multipart body and grants public read", func(t *testing.T) {
		var uploadedName, uploadedBody string
		var permissionGranted bool
		svc, _ := newTestDrive(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.URL.Path == "/files" && r.Method == http.MethodPost:
				mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
				if err != nil || mediaType != "multipart/related" {
					t.Errorf("Content-Type = %q (%v)", r.Header.Get("Content-Type"), err)
				}
				mr := multipart.NewReader(r.Body, params["boundary"])

				metaPart, err := mr.NextPart()
				if err != nil {
					t.Fatalf("missing metadata part: %v", err)
				}
				var meta struct {
					Name string `json:"name"`
				}
				if err := json.NewDecoder(metaPart).Decode(&meta); err != nil {
					t.Fatalf("failed to decode metadata: %v", err)
				}
				uploadedName = meta.Name

				mediaPart, err := mr.NextPart()
				if err != nil {
					t.Fatalf("missing media part: %v", err)
				}
				body, _ := io.ReadAll(mediaPart)
				uploadedBody = string(body)

				json.NewEncoder(w).Encode(map[string]string{"id": "new-id"})
			case strings.HasSuffix(r.URL.Path, "/permissions"):
				var perm map[string]string
				if err := json.NewDecoder(r.Body).Decode(&perm); err != nil {
					t.Fatalf("failed to decode permission: %v", err)
				}
				if perm["type"] != "anyone" || perm["role"] != "reader" {
					t.Errorf("permission = %v", perm)
				}
				permissionGranted = true
				w.Write([]byte("{}"))
			default:
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
		}))

		id, err := svc.Upload(context.Background(), bytes.NewReader([]byte("audio-bytes")), "ep.mp3", "audio/mpeg")
		if err != nil {
			t.Fatalf("Upload() error = %v", err)
		}
		if id != "new-id" {
			t.Errorf("id = %q, want new-id", id)
		}
		if uploadedName != "ep.mp3" {
			t.Errorf("uploaded name = %q", uploadedName)
		}
		if uploadedBody != "audio-bytes" {
			t.Errorf("uploaded body = %q", uploadedBody)
		}
		if !permissionGranted {
			t.Error("public-read permission was never granted")
		}
	})

	t.Run("permission failure fails the upload", func(t *testing.T) {
		svc, _ := newTestDrive(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/permissions") {
				http.Error(w, "nope", http.StatusForbidden)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"id": "x"})
		}))

		_, err := svc.Upload(context.Background(), strings.NewReader("c"), "n", "audio/mpeg")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestDriveWatch(t *testing.T) {
	var got WatchChannel
	svc, _ := newTestDrive(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/root/watch" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode channel: %v", err)
		}
		w.Write([]byte("{}"))
	}))

	channel := WatchChannel{ID: "chan-1", Address: "https://example.com/webhook", Token: "secret", Expiration: 1234}
	if err := svc.Watch(context.Background(), channel); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if got.ID != "chan-1" || got.Token != "secret" {
		t.Errorf("channel = %+v", got)
	}
	if got.Type != "web_hook" {
		t.Errorf("type = %q, want web_hook default", got.Type)
	}
}

func TestDownloadURL(t *testing.T) {
	svc := NewDriveService(nil, 0)
	got := svc.DownloadURL("abc123")
	want := "https://drive.usercontent.google.com/download?id=abc123&export=download&authuser=0&confirm=t"
	if got != want {
		t.Errorf("DownloadURL() = %q, want %q", got, want)
	}
}

func TestMostRecent(t *testing.T) {
	tests := []struct {
		name   string
		files  []File
		wantID string
		wantOK bool
	}{
		{"empty slice", nil, "", false},
		{"single file", []File{{ID: "a", ModifiedTime: "2026-01-01T00:00:00Z"}}, "a", true},
		{
			"picks latest timestamp",
			[]File{
				{ID: "old", ModifiedTime: "2026-01-01T00:00:00Z"},
				{ID: "new", ModifiedTime: "2026-08-01T00:00:00Z"},
				{ID: "mid", ModifiedTime: "2026-04-01T00:00:00Z"},
			},
			"new", true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MostRecent(tt.files)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.ID != tt.wantID {
				t.Errorf("id = %q, want %q", got.ID, tt.wantID)
			}
		})
	}
}
