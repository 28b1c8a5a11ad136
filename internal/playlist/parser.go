// package playlist parses M3U/M3U8 playlist text into typed entries.
package playlist

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tempolab/podtempo/internal/models"
	"github.com/tempolab/podtempo/internal/shared"
)

// extinfPattern matches a metadata line: #EXTINF:<duration>,<title>
var extinfPattern = regexp.MustCompile(`^#EXTINF:([0-9.]+),(.+)$`)

// Parse converts raw playlist text into an ordered sequence of entries.
//
// A metadata line declares a duration in decimal seconds and a free-text
// title; the immediately following non-comment, non-blank line is the
// entry's source locator. A metadata line without a valid locator line is
// dropped, as is one with an unparseable duration; neither aborts the rest
// of the parse. An empty result is a legal outcome meaning "no work".
//
// Each entry receives a freshly generated ExternalID per invocation; dedup
// across invocations is the caller's concern, at the playlist level.
func Parse(content string) []models.PlaylistEntry {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	var entries []models.PlaylistEntry

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		match := extinfPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		duration, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			// Malformed duration skips this metadata line only; the next
			// line is not consumed as a locator.
			continue
		}

		if i+1 >= len(lines) {
			continue
		}

		locator := strings.TrimSpace(lines[i+1])
		if locator == "" || strings.HasPrefix(locator, "#") {
			continue
		}

		entries = append(entries, models.PlaylistEntry{
			Title:      strings.TrimSpace(match[2]),
			Duration:   duration,
			SourceURL:  locator,
			ExternalID: shared.GenerateID(),
		})
		i++
	}

	return entries
}
