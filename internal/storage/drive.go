// Google Drive REST implementation of [Storage]
//
// Endpoints based on https://developers.google.com/drive/api/reference/rest/v3
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"github.com/tempolab/podtempo/internal/shared"
	"golang.org/x/time/rate"
)

const (
	driveBaseURL   = "https://www.googleapis.com/drive/v3"
	driveUploadURL = "https://www.googleapis.com/upload/drive/v3"
	publicURLBase  = "https://drive.usercontent.google.com/download"
)

// DriveService implements the Storage interface against the Drive v3 REST API.
//
// The HTTP client is expected to carry OAuth2 credentials (see
// [Authenticator.Client]); all calls pass through a shared rate limiter.
type DriveService struct {
	baseURL    string
	uploadURL  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// DriveOption configures a DriveService.
type DriveOption func(*DriveService)

// WithBaseURLs overrides the API endpoints, primarily for tests.
func WithBaseURLs(baseURL, uploadURL string) DriveOption {
	return func(d *DriveService) {
		if baseURL != "" {
			d.baseURL = baseURL
		}
		if uploadURL != "" {
			d.uploadURL = uploadURL
		}
	}
}

// NewDriveService creates a Drive storage client.
//
// requestsPerSecond bounds the request rate; zero or negative disables
// limiting.
func NewDriveService(client *http.Client, requestsPerSecond float64, opts ...DriveOption) *DriveService {
	if client == nil {
		client = http.DefaultClient
	}

	d := &DriveService{
		baseURL:    driveBaseURL,
		uploadURL:  driveUploadURL,
		httpClient: client,
	}
	if requestsPerSecond > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Name returns the storage backend name.
func (d *DriveService) Name() string {
	return "Google Drive"
}

func (d *DriveService) wait(ctx context.Context) error {
	if d.limiter == nil {
		return nil
	}
	return d.limiter.Wait(ctx)
}

// List retrieves file metadata matching a Drive query string.
func (d *DriveService) List(ctx context.Context, query string) ([]File, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/files?q=%s&fields=%s", d.baseURL,
		url.QueryEscape(query), url.QueryEscape("files(id, name, modifiedTime)"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: list returned %d: %s", shared.ErrAPIRequest, resp.StatusCode, body)
	}

	var listing struct {
		Files []File `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}

	return listing.Files, nil
}

// Download retrieves the raw content of a file.
func (d *DriveService) Download(ctx context.Context, id string) ([]byte, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/files/%s?alt=media", d.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %v", shared.ErrAPIRequest, id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", shared.ErrFileNotFound, id)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: download %s returned %d: %s", shared.ErrAPIRequest, id, resp.StatusCode, body)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}

	return content, nil
}

// Upload stores content as a new file and grants public-read access.
func (d *DriveService) Upload(ctx context.Context, content io.Reader, name, mimeType string) (string, error) {
	if err := d.wait(ctx); err != nil {
		return "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := mw.CreatePart(metaHeader)
	if err != nil {
		return "", fmt.Errorf("failed to create metadata part: %w", err)
	}
	if err := json.NewEncoder(metaPart).Encode(map[string]any{"name": name}); err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}

	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", mimeType)
	mediaPart, err := mw.CreatePart(mediaHeader)
	if err != nil {
		return "", fmt.Errorf("failed to create media part: %w", err)
	}
	if _, err := io.Copy(mediaPart, content); err != nil {
		return "", fmt.Errorf("failed to copy media content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	u := fmt.Sprintf("%s/files?uploadType=multipart&fields=id", d.uploadURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: upload %s: %v", shared.ErrAPIRequest, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: upload %s returned %d: %s", shared.ErrAPIRequest, name, resp.StatusCode, respBody)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}

	if err := d.grantPublicRead(ctx, created.ID); err != nil {
		return "", err
	}

	return created.ID, nil
}

// grantPublicRead makes the uploaded file readable by anyone with the link.
func (d *DriveService) grantPublicRead(ctx context.Context, id string) error {
	if err := d.wait(ctx); err != nil {
		return err
	}

	permission, err := json.Marshal(map[string]string{"type": "anyone", "role": "reader"})
	if err != nil {
		return fmt.Errorf("failed to encode permission: %w", err)
	}

	u := fmt.Sprintf("%s/files/%s/permissions", d.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(permission))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: grant permission on %s: %v", shared.ErrAPIRequest, id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: grant permission on %s returned %d: %s", shared.ErrAPIRequest, id, resp.StatusCode, body)
	}

	return nil
}

// DownloadURL converts a file id into a direct public download URL.
func (d *DriveService) DownloadURL(id string) string {
	return fmt.Sprintf("%s?id=%s&export=download&authuser=0&confirm=t", publicURLBase, url.QueryEscape(id))
}

// Watch registers a webhook channel on the drive root.
func (d *DriveService) Watch(ctx context.Context, channel WatchChannel) error {
	if err := d.wait(ctx); err != nil {
		return err
	}

	if channel.Type == "" {
		channel.Type = "web_hook"
	}

	payload, err := json.Marshal(channel)
	if err != nil {
		return fmt.Errorf("failed to encode channel: %w", err)
	}

	u := fmt.Sprintf("%s/files/root/watch", d.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: watch: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: watch returned %d: %s", shared.ErrAPIRequest, resp.StatusCode, body)
	}

	return nil
}
