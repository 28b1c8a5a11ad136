package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/tempolab/podtempo/internal/models"
)

var (
	_ list.Item = jobItem{}
)

// jobItem wraps [models.Job] to implement [list.Item].
type jobItem struct {
	job *models.Job
}

func (i jobItem) FilterValue() string { return i.job.PlaylistName }
func (i jobItem) Title() string {
	return fmt.Sprintf("%s [%s]", i.job.PlaylistName, statusLabel(i.job.Status))
}
func (i jobItem) Description() string {
	desc := fmt.Sprintf("%d results", len(i.job.Results))
	if i.job.Error != "" {
		desc = fmt.Sprintf("%s • errors", desc)
	}
	return fmt.Sprintf("%s • %s", desc, i.job.ID)
}

func statusLabel(status models.JobStatus) string {
	switch status {
	case models.JobCompleted:
		return styles.ok.Render(string(status))
	case models.JobFailed:
		return styles.err.Render(string(status))
	case models.JobProcessing:
		return styles.warn.Render(string(status))
	default:
		return string(status)
	}
}
