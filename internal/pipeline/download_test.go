package pipeline

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/tempolab/podtempo/internal/shared"
)

func testPipelineConfig(dir string) shared.PipelineConfig {
	return shared.PipelineConfig{
		Speed:              1.5,
		Workers:            2,
		WorkDir:            dir,
		ConnectTimeoutSecs: 1,
		StallTimeoutSecs:   1,
	}
}

func TestDownloaderFetch(t *testing.T) {
	t.Run("writes body to transient file", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("audio-payload"))
		}))
		t.Cleanup(server.Close)

		dir := t.TempDir()
		d := NewDownloader(testPipelineConfig(dir), shared.NewLogger(nil))

		path, err := d.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		t.Cleanup(func() { os.Remove(path) })

		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read transient file: %v", err)
		}
		if string(content) != "audio-payload" {
			t.Errorf("content = %q", content)
		}
	})

	t.Run("non-200 response is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		t.Cleanup(server.Close)

		d := NewDownloader(testPipelineConfig(t.TempDir()), shared.NewLogger(nil))
		if _, err := d.Fetch(context.Background(), server.URL); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("mid-body stall maps to ErrReadStalled", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Length", "1024")
			w.Write([]byte("partial"))
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			<-release
		}))
		t.Cleanup(server.Close)
		// Cleanups run LIFO: release must close before server.Close waits on the handler.
		t.Cleanup(func() { close(release) })

		cfg := testPipelineConfig(t.TempDir())
		cfg.StallTimeoutSecs = 1
		d := NewDownloader(cfg, shared.NewLogger(nil))

		start := time.Now()
		_, err := d.Fetch(context.Background(), server.URL)
		if !errors.Is(err, shared.ErrReadStalled) {
			t.Fatalf("expected ErrReadStalled, got %v", err)
		}
		if elapsed := time.Since(start); elapsed > 5*time.Second {
			t.Errorf("stall detection took %s", elapsed)
		}
	})
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassifyDialError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "dial timeout",
			err: &url.Error{
				Op:  "Get",
				URL: "http://example.com/a.mp3",
				Err: &net.OpError{Op: "dial", Net: "tcp", Err: timeoutError{}},
			},
			want: shared.ErrConnectTimeout,
		},
		{
			name: "connection refused",
			err: &url.Error{
				Op:  "Get",
				URL: "http://example.com/a.mp3",
				Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
			},
			want: shared.ErrAPIRequest,
		},
		{
			name: "other transport error",
			err:  &url.Error{Op: "Get", URL: "http://example.com", Err: errors.New("EOF")},
			want: shared.ErrAPIRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyDialError("http://example.com/a.mp3", tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("classifyDialError() = %v, want %v", got, tt.want)
			}
		})
	}
}
