package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tempolab/podtempo/internal/shared"
)

// commandContext is swapped out in tests to intercept external tool runs.
var commandContext = exec.CommandContext

// Transcoder applies a tempo change to an audio file.
type Transcoder interface {
	// Transform reads inputPath, applies the speed factor, and writes
	// outputPath. A non-zero tool exit is terminal for the entry.
	Transform(ctx context.Context, inputPath, outputPath string, speed float64) error
}

// FFmpeg runs the ffmpeg binary with an atempo filter chain.
type FFmpeg struct {
	path   string
	logger *log.Logger
}

// NewFFmpeg creates an FFmpeg transcoder. An empty path resolves "ffmpeg"
// from PATH.
func NewFFmpeg(path string, logger *log.Logger) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &FFmpeg{path: path, logger: logger}
}

// Transform shells out to ffmpeg, preserving stderr in the error on failure.
func (f *FFmpeg) Transform(ctx context.Context, inputPath, outputPath string, speed float64) error {
	if speed <= 0 {
		return fmt.Errorf("%w: tempo factor %g must be positive", shared.ErrInvalidInput, speed)
	}

	args := []string{"-i", inputPath, "-filter:a", atempoChain(speed), "-y", outputPath}

	f.logger.Debug("running transcoder", "bin", f.path, "args", strings.Join(args, " "))

	cmd := commandContext(ctx, f.path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		diagnostic := strings.TrimSpace(stderr.String())
		if diagnostic == "" {
			diagnostic = err.Error()
		}
		return fmt.Errorf("%w: ffmpeg on %s: %s", shared.ErrToolFailure, inputPath, diagnostic)
	}

	return nil
}

// atempoChain renders a speed factor as an ffmpeg filter expression.
//
// ffmpeg accepts atempo values in [0.5, 2.0] per filter instance, so factors
// outside that range are split into a chain of in-range stages.
func atempoChain(speed float64) string {
	var factors []float64
	for speed > 2.0 {
		factors = append(factors, 2.0)
		speed /= 2.0
	}
	for speed < 0.5 {
		factors = append(factors, 0.5)
		speed /= 0.5
	}
	factors = append(factors, speed)

	stages := make([]string, len(factors))
	for i, f := range factors {
		stages[i] = "atempo=" + strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.Join(stages, ",")
}
