// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// configFlag is shared by every command that reads configuration.
func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// serveCommand runs the long-lived watcher and HTTP trigger server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Watch storage for playlists and serve the trigger API",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "no-webhook",
				Usage: "Skip webhook registration even when an address is configured",
			},
		},
		Action: r.Serve,
	}
}

// checkCommand performs a one-shot playlist scan
func checkCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Scan storage once, process new playlists, and exit",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output job results as JSON",
			},
		},
		Action: r.Check,
	}
}

// jobsCommand inspects jobs on a running serve instance
func jobsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "Inspect jobs on a running serve instance",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all jobs",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.JobsList,
			},
			{
				Name:  "show",
				Usage: "Show one job with its results",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "csv",
						Usage: "Output results as CSV",
					},
				},
				Action: r.JobsShow,
			},
			{
				Name:  "push",
				Usage: "Push one job's episodes to the publish API",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					configFlag(),
				},
				Action: r.JobsPush,
			},
		},
	}
}

// feedCommand inspects and rebuilds the published feed
func feedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "Inspect and rebuild the podcast feed",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the currently published feed",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.FeedShow,
			},
			{
				Name:  "build",
				Usage: "Re-publish the feed, refreshing resume offsets",
				Flags: []cli.Flag{
					configFlag(),
				},
				Action: r.FeedBuild,
			},
		},
	}
}

// tuiCommand launches the interactive job monitor
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Interactive job monitor (watches storage while open)",
		Flags: []cli.Flag{
			configFlag(),
		},
		Action: r.Tui,
	}
}
