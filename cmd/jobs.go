package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tempolab/podtempo/internal/formatter"
	"github.com/tempolab/podtempo/internal/models"
	"github.com/tempolab/podtempo/internal/shared"
	"github.com/urfave/cli/v3"
)

// fetchJSON performs a GET against the local serve instance.
func (r *Runner) fetchJSON(ctx context.Context, path string, into any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.serverURL()+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: is a serve instance running at %s?", shared.ErrServiceUnavailable, r.serverURL())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w", shared.ErrJobNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s returned %d: %s", shared.ErrAPIRequest, path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// JobsList prints the job table of a running serve instance.
func (r *Runner) JobsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	var listing struct {
		Jobs []*models.Job `json:"jobs"`
	}
	if err := r.fetchJSON(ctx, "/jobs", &listing); err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(listing.Jobs, true)
	}
	return r.writePlain("%s", formatter.JobsToTable(listing.Jobs))
}

// JobsShow prints one job with its per-entry results.
func (r *Runner) JobsShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: job id", shared.ErrMissingArgument)
	}

	var job models.Job
	if err := r.fetchJSON(ctx, "/jobs/"+id, &job); err != nil {
		return err
	}

	switch {
	case cmd.Bool("json"):
		return r.writeJSON(job, true)
	case cmd.Bool("csv"):
		data, err := formatter.ResultsToCSV(&job)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	default:
		return r.writePlain("%s", formatter.JobToText(&job))
	}
}

// JobsPush publishes one job's results as episodes on the publish API.
func (r *Runner) JobsPush(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: job id", shared.ErrMissingArgument)
	}

	var job models.Job
	if err := r.fetchJSON(ctx, "/jobs/"+id, &job); err != nil {
		return err
	}
	if len(job.Results) == 0 {
		return r.writePlainln("Job %s has no results to push.", id)
	}

	if err := r.publishClient().PushResults(ctx, job.Results); err != nil {
		return err
	}
	return r.writePlainln("Pushed %d episodes.", len(job.Results))
}
