// package models defines the data model for the playlist processing pipeline
package models

import "time"

// JobStatus represents the lifecycle state of a processing job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// PlaylistEntry is one row parsed from an M3U playlist.
//
// Entries are immutable once created by the parser. ExternalID is freshly
// generated per parse invocation and stays stable for the entry's lifetime.
type PlaylistEntry struct {
	Title      string  `json:"title"`
	Duration   float64 `json:"duration"` // Duration in seconds as declared by the playlist
	SourceURL  string  `json:"source_url"`
	ExternalID string  `json:"external_id"`
}

// ProcessingResult is the output of one successfully processed entry.
type ProcessingResult struct {
	Title            string  `json:"title"`
	SourceURL        string  `json:"source_url"`
	OriginalDuration float64 `json:"original_duration"` // Seconds, before tempo change
	NewDuration      int     `json:"new_duration"`      // Seconds, floor(original / speed)
	ExternalID       string  `json:"external_id"`
	Speed            float64 `json:"speed"`
	ArtifactID       string  `json:"artifact_id"`  // Storage id of the uploaded audio
	ArtifactURL      string  `json:"artifact_url"` // Public download URL of the uploaded audio
}

// Job tracks the processing of one playlist to completion.
//
// Jobs are created and mutated only by the orchestrator; results ordering
// follows entry completion order, not playlist order.
type Job struct {
	ID           string             `json:"id"`
	Status       JobStatus          `json:"status"`
	PlaylistID   string             `json:"playlist_id"`
	PlaylistName string             `json:"playlist_name"`
	Speed        float64            `json:"speed"`
	CreatedAt    time.Time          `json:"created_at"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
	Error        string             `json:"error,omitempty"`
	Results      []ProcessingResult `json:"results"`
}

// Clone returns a deep copy safe to hand out while the orchestrator keeps mutating the original.
func (j *Job) Clone() *Job {
	c := *j
	if j.CompletedAt != nil {
		at := *j.CompletedAt
		c.CompletedAt = &at
	}
	c.Results = make([]ProcessingResult, len(j.Results))
	copy(c.Results, j.Results)
	return &c
}
