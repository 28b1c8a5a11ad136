// package formatter renders jobs and feed documents for CLI output (text, CSV, Markdown, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/tempolab/podtempo/internal/feed"
	"github.com/tempolab/podtempo/internal/models"
	"github.com/tempolab/podtempo/internal/shared"
)

// JobsToTable renders a job list as an aligned text table, one row per job.
func JobsToTable(jobs []*models.Job) []byte {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "ID\tSTATUS\tPLAYLIST\tRESULTS\tCREATED")
	for _, job := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			job.ID, job.Status, job.PlaylistName, len(job.Results),
			job.CreatedAt.Format(time.RFC3339))
	}
	w.Flush()

	return buf.Bytes()
}

// JobToText renders one job with its per-entry results.
func JobToText(job *models.Job) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Job: %s\n", job.ID))
	buf.WriteString(fmt.Sprintf("Status: %s\n", job.Status))
	buf.WriteString(fmt.Sprintf("Playlist: %s (%s)\n", job.PlaylistName, job.PlaylistID))
	buf.WriteString(fmt.Sprintf("Speed: %gx\n", job.Speed))
	buf.WriteString(fmt.Sprintf("Created: %s\n", job.CreatedAt.Format(time.RFC3339)))
	if job.CompletedAt != nil {
		buf.WriteString(fmt.Sprintf("Completed: %s\n", job.CompletedAt.Format(time.RFC3339)))
	}
	if job.Error != "" {
		buf.WriteString(fmt.Sprintf("Errors: %s\n", job.Error))
	}

	buf.WriteString(fmt.Sprintf("Results: %d\n", len(job.Results)))
	for i, r := range job.Results {
		buf.WriteString(fmt.Sprintf("%d. %s [%s -> %s] %s\n",
			i+1, r.Title,
			shared.FormatDuration(int(r.OriginalDuration)),
			shared.FormatDuration(r.NewDuration),
			r.ArtifactURL))
	}

	return buf.Bytes()
}

// ResultsToCSV renders a job's results with columns: Title, OriginalDuration, NewDuration, Speed, URL.
func ResultsToCSV(job *models.Job) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Title", "OriginalDuration", "NewDuration", "Speed", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range job.Results {
		record := []string{
			r.Title,
			strconv.Itoa(int(r.OriginalDuration)),
			strconv.Itoa(r.NewDuration),
			strconv.FormatFloat(r.Speed, 'g', -1, 64),
			r.ArtifactURL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// FeedToMarkdown renders a feed document as Markdown.
func FeedToMarkdown(doc feed.Document) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", doc.Title))
	if doc.Description != "" {
		buf.WriteString(fmt.Sprintf("**Description**: %s\n\n", doc.Description))
	}
	buf.WriteString(fmt.Sprintf("**Items**: %d\n\n", len(doc.Items)))

	buf.WriteString("## Items\n\n")
	for i, item := range doc.Items {
		resume := ""
		if item.ResumeOffset > 0 {
			resume = fmt.Sprintf(" (resume at %s)", shared.FormatDuration(item.ResumeOffset))
		}
		buf.WriteString(fmt.Sprintf("%d. %s [%s]%s\n", i+1, item.Title,
			shared.FormatDuration(item.LengthSeconds), resume))
	}

	return buf.Bytes()
}

// ToJSON marshals any value, optionally indented.
func ToJSON(v any, indent bool) ([]byte, error) {
	if indent {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
