package main

import (
	"context"
	"time"

	"github.com/tempolab/podtempo/internal/formatter"
	"github.com/urfave/cli/v3"
)

// Check scans storage once, waits for the started jobs, and prints them.
func (r *Runner) Check(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}
	if err := r.ensureStack(ctx); err != nil {
		return err
	}

	started, err := r.watcher.Check(ctx)
	if err != nil {
		return err
	}
	if len(started) == 0 {
		return r.writePlainln("No new playlists.")
	}

	r.logger.Info("waiting for jobs", "count", len(started))

	// Shutdown blocks until every job goroutine the check started is done.
	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Hour)
	defer cancel()
	if err := r.watcher.Shutdown(waitCtx); err != nil {
		return err
	}

	for _, id := range started {
		job, err := r.orch.Job(id)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			if err := r.writeJSON(job, true); err != nil {
				return err
			}
			continue
		}
		if err := r.writePlain("%s", formatter.JobToText(job)); err != nil {
			return err
		}
	}
	return nil
}
