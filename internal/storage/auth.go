package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tempolab/podtempo/internal/shared"
	"golang.org/x/oauth2"
)

const (
	googleAuthURL       = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL      = "https://oauth2.googleapis.com/token"
	googleDeviceAuthURL = "https://oauth2.googleapis.com/device/code"

	driveScope = "https://www.googleapis.com/auth/drive"
)

// Authenticator performs the OAuth2 device-code grant against Google and
// caches the resulting token on disk, refreshing it transparently.
type Authenticator struct {
	credentialsFile string
	tokenFile       string
	logger          *log.Logger
}

// NewAuthenticator creates an Authenticator from storage configuration.
func NewAuthenticator(cfg shared.StorageConfig, logger *log.Logger) *Authenticator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Authenticator{
		credentialsFile: cfg.CredentialsFile,
		tokenFile:       cfg.TokenFile,
		logger:          logger,
	}
}

// Client returns an HTTP client carrying OAuth2 credentials.
//
// A cached token is reused and refreshed when possible; otherwise the
// device-code flow runs, printing the verification URL and user code and
// opening the browser as a convenience.
func (a *Authenticator) Client(ctx context.Context) (*http.Client, error) {
	conf, err := a.config()
	if err != nil {
		return nil, err
	}

	token, err := a.cachedToken()
	if err != nil || (!token.Valid() && token.RefreshToken == "") {
		if err != nil {
			a.logger.Debug("no usable cached token", "err", err)
		}
		token, err = a.deviceFlow(ctx, conf)
		if err != nil {
			return nil, err
		}
	}

	source := &cachingTokenSource{
		source: conf.TokenSource(ctx, token),
		path:   a.tokenFile,
		logger: a.logger,
		last:   token,
	}

	return oauth2.NewClient(ctx, source), nil
}

// deviceFlow runs the OAuth2 device-code grant interactively.
func (a *Authenticator) deviceFlow(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	da, err := conf.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: device authorization: %v", shared.ErrAuthFailed, err)
	}

	a.logger.Info("authorization required",
		"url", da.VerificationURI, "code", da.UserCode)
	fmt.Printf("\nVisit %s and enter code: %s\n\n", da.VerificationURI, da.UserCode)

	if err := shared.OpenBrowser(da.VerificationURI); err != nil {
		a.logger.Debug("could not open browser", "err", err)
	}

	token, err := conf.DeviceAccessToken(ctx, da)
	if err != nil {
		return nil, fmt.Errorf("%w: device token: %v", shared.ErrAuthFailed, err)
	}

	if err := saveToken(a.tokenFile, token); err != nil {
		a.logger.Warn("failed to cache token", "err", err)
	}

	return token, nil
}

// config loads the OAuth2 client configuration from the credentials file.
//
// Both the "installed" and "web" credential formats are accepted.
func (a *Authenticator) config() (*oauth2.Config, error) {
	data, err := os.ReadFile(a.credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMissingCredentials, err)
	}

	var wrapper map[string]struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
	}

	creds, ok := wrapper["installed"]
	if !ok {
		creds, ok = wrapper["web"]
	}
	if !ok || creds.ClientID == "" {
		return nil, fmt.Errorf("%w: expected an \"installed\" or \"web\" client entry", shared.ErrInvalidCredentials)
	}

	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Scopes:       []string{driveScope},
		Endpoint: oauth2.Endpoint{
			AuthURL:       googleAuthURL,
			TokenURL:      googleTokenURL,
			DeviceAuthURL: googleDeviceAuthURL,
		},
	}, nil
}

// cachedToken loads the previously saved token, if any.
func (a *Authenticator) cachedToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(a.tokenFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}

	return &token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// cachingTokenSource persists refreshed tokens back to disk so the device
// flow only has to run once.
type cachingTokenSource struct {
	source oauth2.TokenSource
	path   string
	logger *log.Logger

	mu   sync.Mutex
	last *oauth2.Token
}

func (c *cachingTokenSource) Token() (*oauth2.Token, error) {
	token, err := c.source.Token()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil || token.AccessToken != c.last.AccessToken {
		c.last = token
		if err := saveToken(c.path, token); err != nil {
			c.logger.Warn("failed to cache refreshed token", "err", err)
		}
	}

	return token, nil
}
