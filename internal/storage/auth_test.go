package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tempolab/podtempo/internal/shared"
	"golang.org/x/oauth2"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestAuthenticatorConfig(t *testing.T) {
	tests := []struct {
		name    string
		creds   string
		wantErr error
		wantID  string
	}{
		{
			name:   "installed client",
			creds:  `{"installed": {"client_id": "id-1", "client_secret": "sec-1"}}`,
			wantID: "id-1",
		},
		{
			name:   "web client",
			creds:  `{"web": {"client_id": "id-2", "client_secret": "sec-2"}}`,
			wantID: "id-2",
		},
		{
			name:    "unknown shape",
			creds:   `{"service_account": {"client_id": "id-3"}}`,
			wantErr: shared.ErrInvalidCredentials,
		},
		{
			name:    "invalid json",
			creds:   `{not json`,
			wantErr: shared.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			auth := NewAuthenticator(shared.StorageConfig{
				CredentialsFile: writeFile(t, dir, "credentials.json", tt.creds),
				TokenFile:       filepath.Join(dir, "token.json"),
			}, nil)

			conf, err := auth.config()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("config() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("config() error = %v", err)
			}
			if conf.ClientID != tt.wantID {
				t.Errorf("ClientID = %q, want %q", conf.ClientID, tt.wantID)
			}
			if conf.Endpoint.DeviceAuthURL == "" {
				t.Error("device auth endpoint not set")
			}
		})
	}

	t.Run("missing credentials file", func(t *testing.T) {
		auth := NewAuthenticator(shared.StorageConfig{
			CredentialsFile: filepath.Join(t.TempDir(), "absent.json"),
		}, nil)
		if _, err := auth.config(); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestCachedToken(t *testing.T) {
	t.Run("round trips a saved token", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "token.json")
		auth := NewAuthenticator(shared.StorageConfig{TokenFile: path}, nil)

		if err := saveToken(path, &oauth2.Token{AccessToken: "at", RefreshToken: "rt"}); err != nil {
			t.Fatalf("saveToken() error = %v", err)
		}

		token, err := auth.cachedToken()
		if err != nil {
			t.Fatalf("cachedToken() error = %v", err)
		}
		if token.AccessToken != "at" || token.RefreshToken != "rt" {
			t.Errorf("token = %+v", token)
		}
	})

	t.Run("missing token file", func(t *testing.T) {
		auth := NewAuthenticator(shared.StorageConfig{
			TokenFile: filepath.Join(t.TempDir(), "absent.json"),
		}, nil)
		if _, err := auth.cachedToken(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("token file permissions", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token.json")
		if err := saveToken(path, &oauth2.Token{AccessToken: "at"}); err != nil {
			t.Fatalf("saveToken() error = %v", err)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("token file mode = %v, want 0600", info.Mode().Perm())
		}
	})
}
