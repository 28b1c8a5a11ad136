// package storage defines interface Storage for remote object storage
//
// Google Drive is the only production implementation; tests use doubles.
package storage

import (
	"context"
	"io"
	"sort"
)

// Storage defines the operations the pipeline needs from remote object
// storage: playlist discovery, artifact download/upload, and change
// notification registration.
type Storage interface {
	// List retrieves file metadata matching the storage-native query string.
	List(ctx context.Context, query string) ([]File, error)

	// Download retrieves the raw bytes of a file by id.
	Download(ctx context.Context, id string) ([]byte, error)

	// Upload stores content under the given name and MIME type and grants
	// public-read access to the uploaded file. Returns the new file id.
	Upload(ctx context.Context, content io.Reader, name, mimeType string) (string, error)

	// DownloadURL converts a file id into a direct public download URL.
	DownloadURL(id string) string

	// Watch registers a webhook channel for change notifications.
	Watch(ctx context.Context, channel WatchChannel) error

	// Name returns the name of the storage backend (e.g., "Google Drive")
	Name() string
}

// File represents a storage object's listing metadata.
type File struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ModifiedTime string `json:"modifiedTime"` // RFC 3339, as reported by the backend
}

// WatchChannel describes a webhook registration for change notifications.
type WatchChannel struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	Expiration int64  `json:"expiration"` // Unix millis
}

// MostRecent returns the file with the latest ModifiedTime, or false when
// the slice is empty. RFC 3339 timestamps order lexicographically.
func MostRecent(files []File) (File, bool) {
	if len(files) == 0 {
		return File{}, false
	}
	sorted := make([]File, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ModifiedTime > sorted[j].ModifiedTime
	})
	return sorted[0], true
}
