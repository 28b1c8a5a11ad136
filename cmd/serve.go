package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/tempolab/podtempo/internal/server"
	"github.com/urfave/cli/v3"
)

// shutdownGrace bounds how long serve waits for in-flight work on exit.
const shutdownGrace = 30 * time.Second

// Serve runs the watcher and the HTTP trigger server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}
	if err := r.ensureStack(ctx); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if address := r.config.Server.WebhookURL; address != "" && !cmd.Bool("no-webhook") {
		channel, err := server.RegisterWebhook(ctx, r.store, address, r.config.Server.WebhookSecret)
		if err != nil {
			r.logger.Warn("webhook registration failed, relying on polling", "err", err)
		} else {
			r.logger.Info("webhook registered", "channel", channel.ID, "address", address)
		}
	}

	r.watcher.Start(ctx)
	if _, err := r.watcher.Check(ctx); err != nil {
		r.logger.Warn("initial check failed", "err", err)
	}

	api := server.NewAPI(r.watcher, r.orch, r.publishClient(), r.config.Server.WebhookSecret, r.logger)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(api)

	srv := server.NewServer(r.config.Server, router, r.logger)

	errs := make(chan error, 1)
	go func() {
		errs <- srv.Start()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("http shutdown incomplete", "err", err)
	}
	return r.watcher.Shutdown(shutdownCtx)
}
