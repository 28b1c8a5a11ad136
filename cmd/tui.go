package main

import (
	"context"

	"github.com/tempolab/podtempo/internal/ui"
	"github.com/urfave/cli/v3"
)

// Tui opens the interactive job monitor with the watcher polling in the
// background, so jobs start and update while the monitor is open.
func (r *Runner) Tui(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}
	if err := r.ensureStack(ctx); err != nil {
		return err
	}

	r.watcher.Start(ctx)
	if _, err := r.watcher.Check(ctx); err != nil {
		r.logger.Warn("initial check failed", "err", err)
	}

	uiErr := ui.Run(r.orch)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := r.watcher.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("watcher shutdown incomplete", "err", err)
	}

	return uiErr
}
