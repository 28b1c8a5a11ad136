package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tempolab/podtempo/internal/models"
	"github.com/tempolab/podtempo/internal/shared"
	"github.com/tempolab/podtempo/internal/storage"
)

// defaultSpeed is the canonical tempo factor used when none is configured.
const defaultSpeed = 1.5

// Fetcher retrieves a remote source into a local transient file.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL string) (string, error)
}

// Processor runs the full per-entry pipeline: fetch, tempo transform,
// artifact upload. Each entry gets exactly one attempt; any stage failure is
// terminal for that entry.
type Processor struct {
	fetcher    Fetcher
	transcoder Transcoder
	store      storage.Storage
	speed      float64
	workDir    string
	logger     *log.Logger
}

// NewProcessor wires the pipeline stages together.
func NewProcessor(fetcher Fetcher, transcoder Transcoder, store storage.Storage, cfg shared.PipelineConfig, logger *log.Logger) *Processor {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	speed := cfg.Speed
	if speed <= 0 {
		logger.Warn("invalid tempo factor, using default", "speed", speed, "default", defaultSpeed)
		speed = defaultSpeed
	}
	return &Processor{
		fetcher:    fetcher,
		transcoder: transcoder,
		store:      store,
		speed:      speed,
		workDir:    workDir,
		logger:     logger,
	}
}

// Speed returns the configured tempo factor.
func (p *Processor) Speed() float64 {
	return p.speed
}

// Process runs one entry through the pipeline and returns its result.
//
// Transient files are removed on every path: the input as soon as the
// transform finishes (success or not), the output once the upload has
// succeeded or the entry is abandoned.
func (p *Processor) Process(ctx context.Context, entry models.PlaylistEntry) (models.ProcessingResult, error) {
	var result models.ProcessingResult

	inputPath, err := p.fetcher.Fetch(ctx, entry.SourceURL)
	if err != nil {
		return result, err
	}
	defer os.Remove(inputPath)

	outputPath := filepath.Join(p.workDir, entry.ExternalID+".mp3")
	defer os.Remove(outputPath)

	if err := p.transcoder.Transform(ctx, inputPath, outputPath, p.speed); err != nil {
		return result, err
	}

	artifactID, err := p.upload(ctx, outputPath, entry.Title)
	if err != nil {
		return result, err
	}

	newDuration := int(math.Floor(entry.Duration / p.speed))

	p.logger.Info("entry processed",
		"title", entry.Title, "speed", p.speed,
		"duration", entry.Duration, "new_duration", newDuration)

	return models.ProcessingResult{
		Title:            entry.Title,
		SourceURL:        entry.SourceURL,
		OriginalDuration: entry.Duration,
		NewDuration:      newDuration,
		ExternalID:       entry.ExternalID,
		Speed:            p.speed,
		ArtifactID:       artifactID,
		ArtifactURL:      p.store.DownloadURL(artifactID),
	}, nil
}

func (p *Processor) upload(ctx context.Context, path, title string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open transformed audio: %w", err)
	}
	defer f.Close()

	name := fmt.Sprintf("%s (%gx).mp3", sanitizeName(title), p.speed)
	id, err := p.store.Upload(ctx, f, name, "audio/mpeg")
	if err != nil {
		return "", err
	}
	return id, nil
}

// sanitizeName strips path separators from a title used as a file name.
func sanitizeName(title string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-")
	return replacer.Replace(title)
}
