package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/tempolab/podtempo/internal/models"
	"github.com/tempolab/podtempo/internal/shared"
	"github.com/tempolab/podtempo/internal/storage"
	mocks "github.com/tempolab/podtempo/internal/testing"
	"github.com/urfave/cli/v3"
)

func newTestRunner(t *testing.T, store storage.Storage) (*Runner, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	config := shared.DefaultConfig()
	config.Pipeline.WorkDir = t.TempDir()
	runner := NewRunner(RunnerOpts{
		Config:  config,
		Storage: store,
		Logger:  shared.NewLogger(nil),
		Output:  out,
	})
	return runner, out
}

func runCommand(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{Name: "podtempo", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"podtempo"}, args...))
}

func TestNewRunnerDefaults(t *testing.T) {
	r := NewRunner(RunnerOpts{})
	if r.config == nil || r.logger == nil || r.output == nil || r.httpClient == nil {
		t.Error("defaults not applied")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("reads the named file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := "[feed]\ntitle = \"Custom Title\"\n[pipeline]\nspeed = 2.0\nworkers = 8\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		r, out := newTestRunner(t, &mocks.MockStorage{})
		if err := runCommand(t, r, "feed", "show", "--config", path); err != nil {
			t.Fatalf("feed show error = %v", err)
		}
		if r.config.Pipeline.Speed != 2.0 || r.config.Pipeline.Workers != 8 {
			t.Errorf("config = %+v", r.config.Pipeline)
		}
		if !strings.Contains(out.String(), "# Custom Title") {
			t.Errorf("output = %q", out.String())
		}
	})

	t.Run("missing file is an error", func(t *testing.T) {
		r, _ := newTestRunner(t, &mocks.MockStorage{})
		err := runCommand(t, r, "feed", "show", "--config", filepath.Join(t.TempDir(), "absent.toml"))
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}

func TestWriteHelpers(t *testing.T) {
	t.Run("writeJSON renders indented output", func(t *testing.T) {
		r, out := newTestRunner(t, nil)
		if err := r.writeJSON(map[string]int{"jobs": 2}, true); err != nil {
			t.Fatalf("writeJSON() error = %v", err)
		}
		if !strings.Contains(out.String(), "\"jobs\": 2") {
			t.Errorf("output = %q", out.String())
		}
	})

	t.Run("write failures surface", func(t *testing.T) {
		r := NewRunner(RunnerOpts{Output: &mocks.FWriter{}, Logger: shared.NewLogger(nil)})
		if err := r.writePlain("x"); err == nil {
			t.Error("expected an error")
		}
		if err := r.writeJSON("x", false); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestServerURL(t *testing.T) {
	r, _ := newTestRunner(t, nil)
	r.config.Server.Host = "0.0.0.0"
	r.config.Server.Port = 8000
	if got := r.serverURL(); got != "http://localhost:8000" {
		t.Errorf("serverURL() = %q", got)
	}
	r.config.Server.Host = "10.1.2.3"
	if got := r.serverURL(); got != "http://10.1.2.3:8000" {
		t.Errorf("serverURL() = %q", got)
	}
}

func TestSetupCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	r, out := newTestRunner(t, nil)
	if err := runCommand(t, r, "setup", "--config", path); err != nil {
		t.Fatalf("setup error = %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file not written: %v", err)
	}
	if !strings.Contains(out.String(), "Wrote") {
		t.Errorf("output = %q", out.String())
	}

	if err := runCommand(t, r, "setup", "--config", path); err == nil {
		t.Error("overwriting an existing config must fail")
	}
}

func TestCheckCommand(t *testing.T) {
	// The audio source is served locally; the transform step fails (no
	// transcoder on PATH in tests), so the job finishes failed but the
	// command still reports it.
	audio := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("audio-bytes"))
	}))
	t.Cleanup(audio.Close)

	playlistText := "#EXTM3U\n#EXTINF:100,Track A\n" + audio.URL + "/a.mp3\n"
	store := &mocks.MockStorage{
		ListFunc: func(ctx context.Context, query string) ([]storage.File, error) {
			return []storage.File{{ID: "playlist-1", Name: "run.m3u"}}, nil
		},
		DownloadFunc: func(ctx context.Context, id string) ([]byte, error) {
			return []byte(playlistText), nil
		},
	}

	r, out := newTestRunner(t, store)
	r.config.Pipeline.FFmpegPath = filepath.Join(t.TempDir(), "missing-transcoder")

	if err := runCommand(t, r, "check"); err != nil {
		t.Fatalf("check error = %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "Job:") || !strings.Contains(text, "failed") {
		t.Errorf("output = %q", text)
	}
}

func TestJobsCommands(t *testing.T) {
	job := models.Job{
		ID:           "job-1",
		Status:       models.JobCompleted,
		PlaylistName: "run.m3u",
		CreatedAt:    time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
		Results:      []models.ProcessingResult{{Title: "Track A", NewDuration: 66, OriginalDuration: 100}},
	}

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/jobs":
			json.NewEncoder(w).Encode(map[string]any{"jobs": []models.Job{job}})
		case "/jobs/job-1":
			json.NewEncoder(w).Encode(job)
		default:
			http.NotFound(w, req)
		}
	}))
	t.Cleanup(api.Close)

	pointAtServer := func(t *testing.T, r *Runner) {
		t.Helper()
		u, err := url.Parse(api.URL)
		if err != nil {
			t.Fatalf("failed to parse server URL: %v", err)
		}
		port, err := strconv.Atoi(u.Port())
		if err != nil {
			t.Fatalf("failed to parse port: %v", err)
		}
		r.config.Server.Host = u.Hostname()
		r.config.Server.Port = port
	}

	t.Run("list renders a table", func(t *testing.T) {
		r, out := newTestRunner(t, nil)
		pointAtServer(t, r)
		if err := runCommand(t, r, "jobs", "list"); err != nil {
			t.Fatalf("jobs list error = %v", err)
		}
		if !strings.Contains(out.String(), "job-1") || !strings.Contains(out.String(), "run.m3u") {
			t.Errorf("output = %q", out.String())
		}
	})

	t.Run("show renders job detail", func(t *testing.T) {
		r, out := newTestRunner(t, nil)
		pointAtServer(t, r)
		if err := runCommand(t, r, "jobs", "show", "job-1"); err != nil {
			t.Fatalf("jobs show error = %v", err)
		}
		if !strings.Contains(out.String(), "Track A") {
			t.Errorf("output = %q", out.String())
		}
	})

	t.Run("show for an unknown id", func(t *testing.T) {
		r, _ := newTestRunner(t, nil)
		pointAtServer(t, r)
		err := runCommand(t, r, "jobs", "show", "nope")
		if !errors.Is(err, shared.ErrJobNotFound) {
			t.Errorf("expected ErrJobNotFound, got %v", err)
		}
	})

	t.Run("push publishes the job's episodes", func(t *testing.T) {
		var pushed int
		publishAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.URL.Path != "/api/playlist/subscribe" {
				http.NotFound(w, req)
				return
			}
			pushed++
			w.WriteHeader(http.StatusCreated)
		}))
		t.Cleanup(publishAPI.Close)

		tokenPath := filepath.Join(t.TempDir(), "token.json")
		if err := os.WriteFile(tokenPath, []byte(`{"token": "tok"}`), 0600); err != nil {
			t.Fatalf("failed to write token: %v", err)
		}

		r, out := newTestRunner(t, nil)
		pointAtServer(t, r)
		r.config.Publish.BaseURL = publishAPI.URL
		r.config.Publish.TokenFile = tokenPath

		if err := runCommand(t, r, "jobs", "push", "job-1"); err != nil {
			t.Fatalf("jobs push error = %v", err)
		}
		if pushed != 1 {
			t.Errorf("pushed = %d, want 1", pushed)
		}
		if !strings.Contains(out.String(), "Pushed 1 episodes.") {
			t.Errorf("output = %q", out.String())
		}
	})

	t.Run("unreachable server", func(t *testing.T) {
		r, _ := newTestRunner(t, nil)
		r.config.Server.Host = "127.0.0.1"
		r.config.Server.Port = 1 // nothing listens here
		err := runCommand(t, r, "jobs", "list")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestFeedShowCommand(t *testing.T) {
	store := &mocks.MockStorage{}
	r, out := newTestRunner(t, store)

	if err := runCommand(t, r, "feed", "show"); err != nil {
		t.Fatalf("feed show error = %v", err)
	}
	if !strings.Contains(out.String(), "# "+r.config.Feed.Title) {
		t.Errorf("output = %q", out.String())
	}
}

func TestFeedBuildCommand(t *testing.T) {
	store := &mocks.MockStorage{}
	r, out := newTestRunner(t, store)

	if err := runCommand(t, r, "feed", "build"); err != nil {
		t.Fatalf("feed build error = %v", err)
	}
	if !strings.Contains(out.String(), "Feed published") {
		t.Errorf("output = %q", out.String())
	}
	if uploads := store.Uploads(); len(uploads) != 1 || uploads[0].Name != r.config.Feed.FileName {
		t.Errorf("uploads = %+v", uploads)
	}
}
