package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/tempolab/podtempo/internal/feed"
	"github.com/tempolab/podtempo/internal/formatter"
	"github.com/tempolab/podtempo/internal/jobs"
	"github.com/tempolab/podtempo/internal/notify"
	"github.com/tempolab/podtempo/internal/pipeline"
	"github.com/tempolab/podtempo/internal/publish"
	"github.com/tempolab/podtempo/internal/shared"
	"github.com/tempolab/podtempo/internal/storage"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The processing stack (storage client, pipeline, orchestrator, watcher) is
// built lazily on first use, so commands that never touch storage run
// without credentials.
type Runner struct {
	config     *shared.Config
	configPath string
	store      storage.Storage
	builder    *feed.Builder
	orch       *jobs.Orchestrator
	watcher    *jobs.Watcher
	publisher  *publish.Client
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Storage    storage.Storage // pre-built storage client, mainly for tests
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		store:      opts.Storage,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, checkCommand, jobsCommand, feedCommand, authCommand, setupCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig re-reads configuration when the command names a config file.
func (r *Runner) loadConfig(cmd *cli.Command) error {
	if !cmd.IsSet("config") {
		return nil
	}

	path := cmd.String("config")
	if path == "" || path == r.configPath {
		return nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrMissingConfig, err)
	}

	r.config = config
	r.configPath = path
	return nil
}

// ensureStorage authenticates against cloud storage once per process.
func (r *Runner) ensureStorage(ctx context.Context) error {
	if r.store != nil {
		return nil
	}

	auth := storage.NewAuthenticator(r.config.Storage, r.logger)
	client, err := auth.Client(ctx)
	if err != nil {
		return err
	}

	r.store = storage.NewDriveService(client, r.config.Storage.RateLimit)
	return nil
}

// ensureStack builds the processing pipeline on top of the storage client.
func (r *Runner) ensureStack(ctx context.Context) error {
	if r.watcher != nil {
		return nil
	}
	if err := r.ensureStorage(ctx); err != nil {
		return err
	}

	downloader := pipeline.NewDownloader(r.config.Pipeline, r.logger)
	transcoder := pipeline.NewFFmpeg(r.config.Pipeline.FFmpegPath, r.logger)
	processor := pipeline.NewProcessor(downloader, transcoder, r.store, r.config.Pipeline, r.logger)

	resume := feed.NewResumeSource(r.store, r.config.Feed, r.logger)
	r.builder = feed.NewBuilder(r.store, resume, r.config.Feed, r.logger)
	mailer := notify.NewMailer(r.config.Notify, r.logger)

	r.orch = jobs.NewOrchestrator(r.store, processor, jobs.NewLedger(), r.config.Pipeline, jobs.OrchestratorOpts{
		Publisher: r.builder,
		Notifier:  mailer,
		RateLimit: r.config.Storage.RateLimit,
	}, r.logger)
	r.watcher = jobs.NewWatcher(r.orch, r.store, r.config.Storage.PlaylistQuery, r.config.Server.PollInterval(), r.logger)
	return nil
}

// publishClient returns the lazily built publish API client.
func (r *Runner) publishClient() *publish.Client {
	if r.publisher == nil {
		r.publisher = publish.NewClient(r.config.Publish, r.httpClient, r.logger)
	}
	return r.publisher
}

// serverURL builds the base URL of a locally running serve instance.
func (r *Runner) serverURL() string {
	host := r.config.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, r.config.Server.Port)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := formatter.ToJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
