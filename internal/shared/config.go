package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Storage  StorageConfig  `toml:"storage"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Feed     FeedConfig     `toml:"feed"`
	Publish  PublishConfig  `toml:"publish"`
	Notify   NotifyConfig   `toml:"notify"`
	Server   ServerConfig   `toml:"server"`
}

// StorageConfig contains cloud storage credentials and query settings.
type StorageConfig struct {
	CredentialsFile string  `toml:"credentials_file"`
	TokenFile       string  `toml:"token_file"`
	PlaylistQuery   string  `toml:"playlist_query"`
	RateLimit       float64 `toml:"rate_limit"`
}

// PipelineConfig contains per-entry processing settings.
type PipelineConfig struct {
	Speed              float64 `toml:"speed"`
	Workers            int     `toml:"workers"`
	FFmpegPath         string  `toml:"ffmpeg_path"`
	WorkDir            string  `toml:"work_dir"`
	ConnectTimeoutSecs int     `toml:"connect_timeout_secs"`
	StallTimeoutSecs   int     `toml:"stall_timeout_secs"`
	JobTimeoutMins     int     `toml:"job_timeout_mins"`
}

// FeedConfig contains RSS feed synthesis settings.
type FeedConfig struct {
	FileName    string `toml:"file_name"`
	Title       string `toml:"title"`
	Description string `toml:"description"`
	Link        string `toml:"link"`
	PodcastName string `toml:"podcast_name"`
	BackupQuery string `toml:"backup_query"`
}

// PublishConfig contains settings for the episode publish API.
type PublishConfig struct {
	BaseURL   string `toml:"base_url"`
	TokenFile string `toml:"token_file"`
}

// NotifyConfig contains SMTP notification settings.
//
// Notification is best-effort: an incomplete section disables it.
type NotifyConfig struct {
	SMTPServer string `toml:"smtp_server"`
	SMTPPort   int    `toml:"smtp_port"`
	Username   string `toml:"username"`
	Password   string `toml:"password"`
	Recipient  string `toml:"recipient"`
}

// ServerConfig contains HTTP trigger server settings.
type ServerConfig struct {
	Host             string `toml:"host"`
	Port             int    `toml:"port"`
	WebhookURL       string `toml:"webhook_url"`
	WebhookSecret    string `toml:"webhook_secret"`
	PollIntervalSecs int    `toml:"poll_interval_secs"`
}

// ConnectTimeout returns the download connect timeout as a [time.Duration].
func (p PipelineConfig) ConnectTimeout() time.Duration {
	return time.Duration(p.ConnectTimeoutSecs) * time.Second
}

// StallTimeout returns the download read-stall timeout as a [time.Duration].
func (p PipelineConfig) StallTimeout() time.Duration {
	return time.Duration(p.StallTimeoutSecs) * time.Second
}

// JobTimeout returns the whole-job deadline as a [time.Duration]; zero means no deadline.
func (p PipelineConfig) JobTimeout() time.Duration {
	return time.Duration(p.JobTimeoutMins) * time.Minute
}

// PollInterval returns the storage poll interval as a [time.Duration].
func (s ServerConfig) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalSecs) * time.Second
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
