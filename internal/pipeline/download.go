// package pipeline implements per-entry audio processing: download, tempo
// transform, and artifact upload.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tempolab/podtempo/internal/shared"
)

// Downloader fetches remote audio into transient files under a work
// directory.
//
// Two failure modes are kept distinct: a connect timeout (the remote never
// accepted the connection) maps to [shared.ErrConnectTimeout], while a read
// stall (the connection opened but bytes stopped flowing mid-body) maps to
// [shared.ErrReadStalled].
type Downloader struct {
	client       *http.Client
	stallTimeout time.Duration
	workDir      string
	logger       *log.Logger
}

// NewDownloader creates a Downloader from pipeline configuration.
//
// An empty work directory falls back to the OS temp directory.
func NewDownloader(cfg shared.PipelineConfig, logger *log.Logger) *Downloader {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout()}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: cfg.ConnectTimeout(),
	}

	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}

	return &Downloader{
		client:       &http.Client{Transport: transport},
		stallTimeout: cfg.StallTimeout(),
		workDir:      workDir,
		logger:       logger,
	}
}

// Fetch downloads sourceURL into a new transient file and returns its path.
//
// The caller owns the file and must remove it when done.
func (d *Downloader) Fetch(ctx context.Context, sourceURL string) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", classifyDialError(sourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: download %s returned %d", shared.ErrAPIRequest, sourceURL, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(d.workDir, "podtempo-in-*.audio")
	if err != nil {
		return "", fmt.Errorf("failed to create transient file: %w", err)
	}

	body := newStallReader(resp.Body, d.stallTimeout, cancel)
	defer body.stop()

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		if body.stalled() {
			return "", fmt.Errorf("%w: no data from %s for %s", shared.ErrReadStalled, sourceURL, d.stallTimeout)
		}
		return "", fmt.Errorf("failed to read %s: %w", sourceURL, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close transient file: %w", err)
	}

	d.logger.Debug("fetched source", "url", sourceURL, "path", tmp.Name())
	return tmp.Name(), nil
}

// classifyDialError maps connection-phase timeouts to ErrConnectTimeout.
func classifyDialError(sourceURL string, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		var opErr *net.OpError
		if errors.As(urlErr.Err, &opErr) && opErr.Op == "dial" && opErr.Timeout() {
			return fmt.Errorf("%w: %s: %v", shared.ErrConnectTimeout, sourceURL, err)
		}
		if urlErr.Timeout() {
			return fmt.Errorf("%w: %s: %v", shared.ErrConnectTimeout, sourceURL, err)
		}
	}
	return fmt.Errorf("%w: download %s: %v", shared.ErrAPIRequest, sourceURL, err)
}

// stallReader cancels the request context when no Read completes within the
// stall timeout, turning a silent hang into a classified error.
type stallReader struct {
	r       io.Reader
	timeout time.Duration
	timer   *time.Timer
	fired   atomic.Bool
}

func newStallReader(r io.Reader, timeout time.Duration, cancel context.CancelFunc) *stallReader {
	s := &stallReader{r: r, timeout: timeout}
	if timeout > 0 {
		s.timer = time.AfterFunc(timeout, func() {
			s.fired.Store(true)
			cancel()
		})
	}
	return s
}

func (s *stallReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if s.timer != nil && !s.fired.Load() {
		s.timer.Reset(s.timeout)
	}
	return n, err
}

func (s *stallReader) stop() {
	if s.timer != nil {
		s.timer.Stop()
	}
}

func (s *stallReader) stalled() bool {
	return s.fired.Load()
}
