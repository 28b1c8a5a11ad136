package feed

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tempolab/podtempo/internal/shared"
	"github.com/tempolab/podtempo/internal/storage"
)

// resumeQuery pulls per-episode resume positions from a PodcastAddict
// backup database. position_to_resume is stored in milliseconds; type 1 in
// ordered_list marks the playback queue.
const resumeQuery = `
SELECT p.name, e.name, e.position_to_resume
FROM episodes e
JOIN podcasts p ON e.podcast_id = p._id
JOIN ordered_list ol ON ol.id = e._id
WHERE e.position_to_resume > 0 AND ol.type = 1`

// ResumeSource recovers resume offsets from the most recent PodcastAddict
// backup archive in storage.
type ResumeSource struct {
	store  storage.Storage
	query  string
	logger *log.Logger
}

// NewResumeSource creates a ResumeSource searching storage with the
// configured backup query.
func NewResumeSource(store storage.Storage, cfg shared.FeedConfig, logger *log.Logger) *ResumeSource {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ResumeSource{store: store, query: cfg.BackupQuery, logger: logger}
}

// Offsets downloads the newest backup, extracts its sqlite database, and
// returns offsets in seconds keyed "<podcast> - <episode>".
//
// Returns [shared.ErrBackupNotFound] when no backup matches the query.
func (r *ResumeSource) Offsets(ctx context.Context) (map[string]int, error) {
	files, err := r.store.List(ctx, r.query)
	if err != nil {
		return nil, fmt.Errorf("failed to search for backup: %w", err)
	}

	backup, ok := storage.MostRecent(files)
	if !ok {
		return nil, fmt.Errorf("%w: query %q matched nothing", shared.ErrBackupNotFound, r.query)
	}

	archive, err := r.store.Download(ctx, backup.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to download backup %s: %w", backup.Name, err)
	}

	dbPath, err := extractDatabase(archive)
	if err != nil {
		return nil, err
	}
	defer os.Remove(dbPath)

	offsets, err := readOffsets(dbPath)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("resume offsets loaded", "backup", backup.Name, "episodes", len(offsets))
	return offsets, nil
}

// extractDatabase pulls the first .db member of the backup zip into a
// transient file and returns its path. The caller removes the file.
func extractDatabase(archive []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return "", fmt.Errorf("%w: backup is not a zip archive: %v", shared.ErrBackupNotFound, err)
	}

	for _, member := range reader.File {
		if !strings.HasSuffix(member.Name, ".db") {
			continue
		}

		src, err := member.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open backup member %s: %w", member.Name, err)
		}
		defer src.Close()

		dst, err := os.CreateTemp("", "podtempo-backup-*.db")
		if err != nil {
			return "", fmt.Errorf("failed to create transient database: %w", err)
		}
		if _, err := io.Copy(dst, src); err != nil {
			dst.Close()
			os.Remove(dst.Name())
			return "", fmt.Errorf("failed to extract %s: %w", member.Name, err)
		}
		if err := dst.Close(); err != nil {
			os.Remove(dst.Name())
			return "", fmt.Errorf("failed to close transient database: %w", err)
		}
		return dst.Name(), nil
	}

	return "", fmt.Errorf("%w: archive holds no .db member", shared.ErrBackupNotFound)
}

func readOffsets(dbPath string) (map[string]int, error) {
	db, err := shared.NewDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup database %s: %w", filepath.Base(dbPath), err)
	}
	defer db.Close()

	rows, err := db.Query(resumeQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query resume positions: %w", err)
	}
	defer rows.Close()

	offsets := make(map[string]int)
	for rows.Next() {
		var podcast, episode string
		var positionMillis int64
		if err := rows.Scan(&podcast, &episode, &positionMillis); err != nil {
			return nil, fmt.Errorf("failed to scan resume row: %w", err)
		}
		offsets[shared.EpisodeKey(podcast, episode)] = int(positionMillis / 1000)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate resume rows: %w", err)
	}

	return offsets, nil
}
