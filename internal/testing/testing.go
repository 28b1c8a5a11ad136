// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/tempolab/podtempo/internal/storage"
)

// MockStorage is a configurable test double for [storage.Storage].
//
// Each hook may be nil, in which case the call succeeds with zero values.
// Uploads are recorded and retrievable via [MockStorage.Uploads].
type MockStorage struct {
	ListFunc     func(ctx context.Context, query string) ([]storage.File, error)
	DownloadFunc func(ctx context.Context, id string) ([]byte, error)
	UploadFunc   func(ctx context.Context, content io.Reader, name, mimeType string) (string, error)
	WatchFunc    func(ctx context.Context, channel storage.WatchChannel) error

	mu      sync.Mutex
	uploads []UploadedFile
}

// UploadedFile records one Upload call observed by MockStorage.
type UploadedFile struct {
	Name     string
	MimeType string
	Content  []byte
}

func (m *MockStorage) List(ctx context.Context, query string) ([]storage.File, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, query)
	}
	return nil, nil
}

func (m *MockStorage) Download(ctx context.Context, id string) ([]byte, error) {
	if m.DownloadFunc != nil {
		return m.DownloadFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockStorage) Upload(ctx context.Context, content io.Reader, name, mimeType string) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.uploads = append(m.uploads, UploadedFile{Name: name, MimeType: mimeType, Content: data})
	m.mu.Unlock()
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, bytes.NewReader(data), name, mimeType)
	}
	return "mock-upload-id", nil
}

func (m *MockStorage) DownloadURL(id string) string {
	return "https://storage.example.com/" + id
}

func (m *MockStorage) Watch(ctx context.Context, channel storage.WatchChannel) error {
	if m.WatchFunc != nil {
		return m.WatchFunc(ctx, channel)
	}
	return nil
}

func (m *MockStorage) Name() string { return "mock" }

// Uploads returns a copy of the recorded uploads.
func (m *MockStorage) Uploads() []UploadedFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]UploadedFile, len(m.uploads))
	copy(out, m.uploads)
	return out
}

// MockTranscoder is a test double for [pipeline.Transcoder] that writes a
// fixed payload to the output path.
type MockTranscoder struct {
	Err    error
	Output []byte

	mu    sync.Mutex
	calls int
}

func (m *MockTranscoder) Transform(ctx context.Context, inputPath, outputPath string, speed float64) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	output := m.Output
	if output == nil {
		output = []byte("transcoded")
	}
	return os.WriteFile(outputPath, output, 0644)
}

// Calls returns how many times Transform ran.
func (m *MockTranscoder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockFetcher is a test double for [pipeline.Fetcher] that materializes a
// fixed payload as a transient file.
type MockFetcher struct {
	Err     error
	Content []byte
	Dir     string
}

func (m *MockFetcher) Fetch(ctx context.Context, sourceURL string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	dir := m.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, "mock-fetch-*")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(m.Content); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertFileAbsent(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("File still exists: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
