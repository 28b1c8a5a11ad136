package main

import (
	"context"

	"github.com/tempolab/podtempo/internal/formatter"
	"github.com/urfave/cli/v3"
)

// FeedShow prints the currently published feed document.
func (r *Runner) FeedShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}
	if err := r.ensureStack(ctx); err != nil {
		return err
	}

	doc, err := r.builder.Current(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(doc, true)
	}
	return r.writePlain("%s", formatter.FeedToMarkdown(doc))
}

// FeedBuild re-publishes the feed, refreshing resume offsets from the
// latest backup without adding new items.
func (r *Runner) FeedBuild(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}
	if err := r.ensureStack(ctx); err != nil {
		return err
	}

	doc, err := r.builder.Publish(ctx, nil)
	if err != nil {
		return err
	}

	return r.writePlainln("Feed published with %d items.", len(doc.Items))
}
