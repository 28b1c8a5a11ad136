package main

import (
	"context"
	"fmt"

	"github.com/tempolab/podtempo/internal/shared"
	"github.com/urfave/cli/v3"
)

// authCommand handles credential bootstrap for storage and the publish API
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate against cloud storage and the publish API",
		Commands: []*cli.Command{
			{
				Name:   "storage",
				Usage:  "Run the device-code flow for cloud storage",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthStorage,
			},
			{
				Name:  "publish",
				Usage: "Exchange publish API credentials for a token",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "email",
						Usage:    "Account email",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password",
						Usage:    "Account password",
						Required: true,
					},
				},
				Action: r.AuthPublish,
			},
		},
	}
}

// AuthStorage runs the interactive device-code grant and caches the token.
func (r *Runner) AuthStorage(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}
	if err := r.ensureStorage(ctx); err != nil {
		return err
	}
	return r.writePlainln("Storage authenticated (%s).", r.store.Name())
}

// AuthPublish obtains and caches a publish API bearer token.
func (r *Runner) AuthPublish(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	email := cmd.String("email")
	password := cmd.String("password")
	if email == "" || password == "" {
		return fmt.Errorf("%w: email and password", shared.ErrMissingArgument)
	}

	if err := r.publishClient().Authenticate(ctx, email, password); err != nil {
		return err
	}
	return r.writePlainln("Publish API authenticated.")
}
