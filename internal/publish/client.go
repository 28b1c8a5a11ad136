// package publish implements the Playrun episode publish API client
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tempolab/podtempo/internal/models"
	"github.com/tempolab/podtempo/internal/shared"
)

// Episode is the publish API's episode payload.
type Episode struct {
	Title            string `json:"title"`
	URL              string `json:"url"`
	GUID             string `json:"guid"`
	Duration         int    `json:"duration"`          // Seconds of processed audio
	OriginalDuration int    `json:"original_duration"` // Seconds before the tempo change
}

// EpisodeFromResult converts a processing result into the API payload.
func EpisodeFromResult(r models.ProcessingResult) Episode {
	return Episode{
		Title:            r.Title,
		URL:              r.ArtifactURL,
		GUID:             r.ExternalID,
		Duration:         r.NewDuration,
		OriginalDuration: int(r.OriginalDuration),
	}
}

// Client talks to the Playrun publish API with a bearer token cached in a
// JSON file next to the other credentials.
type Client struct {
	baseURL    string
	tokenFile  string
	httpClient *http.Client
	logger     *log.Logger
}

// NewClient creates a publish API client. A nil httpClient gets a default
// with a 30s timeout.
func NewClient(cfg shared.PublishConfig, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		tokenFile:  cfg.TokenFile,
		httpClient: httpClient,
		logger:     logger,
	}
}

type tokenFile struct {
	Token string `json:"token"`
}

// Authenticate exchanges credentials for a bearer token and caches it.
func (c *Client) Authenticate(ctx context.Context, email, password string) error {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: auth: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: auth returned %d", shared.ErrAuthFailed, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: auth returned %d: %s", shared.ErrAPIRequest, resp.StatusCode, body)
	}

	var tf tokenFile
	if err := json.NewDecoder(resp.Body).Decode(&tf); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}
	if tf.Token == "" {
		return fmt.Errorf("%w: auth response held no token", shared.ErrAuthFailed)
	}

	data, err := json.Marshal(tf)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(c.tokenFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	c.logger.Info("publish API authenticated", "token_file", c.tokenFile)
	return nil
}

// Push publishes one episode. The caller must have authenticated before.
func (c *Client) Push(ctx context.Context, episode Episode) error {
	token, err := c.token()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(episode)
	if err != nil {
		return fmt.Errorf("failed to encode episode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/playlist/subscribe", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: push %s: %v", shared.ErrAPIRequest, episode.Title, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: push returned 401", shared.ErrTokenExpired)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: push %s returned %d: %s", shared.ErrAPIRequest, episode.Title, resp.StatusCode, body)
	}

	c.logger.Info("episode pushed", "title", episode.Title)
	return nil
}

// PushResults publishes every result, collecting per-episode failures.
func (c *Client) PushResults(ctx context.Context, results []models.ProcessingResult) error {
	var failed int
	for _, r := range results {
		if err := c.Push(ctx, EpisodeFromResult(r)); err != nil {
			c.logger.Warn("episode push failed", "title", r.Title, "err", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d episodes failed to push", shared.ErrAPIRequest, failed, len(results))
	}
	return nil
}

func (c *Client) token() (string, error) {
	data, err := os.ReadFile(c.tokenFile)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}
	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil || tf.Token == "" {
		return "", fmt.Errorf("%w: token file unreadable", shared.ErrNotAuthenticated)
	}
	return tf.Token, nil
}
