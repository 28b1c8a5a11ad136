// package feed synthesizes the podcast RSS feed from processing results
package feed

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/tempolab/podtempo/internal/models"
	"github.com/tempolab/podtempo/internal/shared"
	"github.com/tempolab/podtempo/internal/storage"
)

// playrunNS is the namespace for the feed's custom extension elements.
const playrunNS = "https://www.playrun.app/xmlns/playrunaddict"

const feedMimeType = "application/rss+xml"

// Item is one feed entry. GUID is the item's identity for merging.
type Item struct {
	Title            string
	GUID             string
	EnclosureURL     string
	LengthSeconds    int // Enclosure length, in seconds of processed audio
	OriginalDuration int // Seconds before the tempo change
	ResumeOffset     int // Seconds already listened; 0 means absent
}

// Document is the parsed, order-preserving form of the feed.
type Document struct {
	Title       string
	Description string
	Link        string
	Items       []Item
}

// ItemFromResult converts a processing result into a feed item.
func ItemFromResult(r models.ProcessingResult) Item {
	return Item{
		Title:            r.Title,
		GUID:             r.ExternalID,
		EnclosureURL:     r.ArtifactURL,
		LengthSeconds:    r.NewDuration,
		OriginalDuration: int(r.OriginalDuration),
	}
}

// Merge appends incoming items whose guid is not already present.
//
// Existing items always win a guid collision, so re-merging the same input
// is idempotent and never rewrites published entries.
func Merge(existing Document, incoming []Item) Document {
	seen := make(map[string]bool, len(existing.Items))
	for _, item := range existing.Items {
		seen[item.GUID] = true
	}

	merged := existing
	for _, item := range incoming {
		if seen[item.GUID] {
			continue
		}
		seen[item.GUID] = true
		merged.Items = append(merged.Items, item)
	}
	return merged
}

// Enrich attaches resume offsets to matching items.
//
// Offsets are keyed "<podcast name> - <episode title>"; items without a
// match are left untouched.
func Enrich(doc Document, podcastName string, offsets map[string]int) Document {
	if len(offsets) == 0 {
		return doc
	}
	for i, item := range doc.Items {
		if offset, ok := offsets[shared.EpisodeKey(podcastName, item.Title)]; ok {
			doc.Items[i].ResumeOffset = offset
		}
	}
	return doc
}

// Serialization uses split in/out shapes: encoding/xml cannot round-trip
// prefixed names, so rendering writes "playrunaddict:" prefixes with an
// xmlns declaration on the root, while parsing matches by local name.

type rssOut struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	NS      string     `xml:"xmlns:playrunaddict,attr"`
	Channel channelOut `xml:"channel"`
}

type channelOut struct {
	Title       string    `xml:"title"`
	Description string    `xml:"description"`
	Link        string    `xml:"link"`
	Items       []itemOut `xml:"item"`
}

type itemOut struct {
	Title            string       `xml:"title"`
	GUID             guidOut      `xml:"guid"`
	Enclosure        enclosureOut `xml:"enclosure"`
	OriginalDuration int          `xml:"playrunaddict:originalduration"`
	ResumeOffset     *int         `xml:"playrunaddict:resumeoffset,omitempty"`
}

type guidOut struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type enclosureOut struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length int    `xml:"length,attr"`
}

type rssIn struct {
	Channel struct {
		Title       string `xml:"title"`
		Description string `xml:"description"`
		Link        string `xml:"link"`
		Items       []struct {
			Title string `xml:"title"`
			GUID  struct {
				Value string `xml:",chardata"`
			} `xml:"guid"`
			Enclosure struct {
				URL    string `xml:"url,attr"`
				Length int    `xml:"length,attr"`
			} `xml:"enclosure"`
			OriginalDuration int `xml:"originalduration"`
			ResumeOffset     int `xml:"resumeoffset"`
		} `xml:"item"`
	} `xml:"channel"`
}

// Render serializes the document as RSS 2.0.
func Render(doc Document) ([]byte, error) {
	out := rssOut{
		Version: "2.0",
		NS:      playrunNS,
		Channel: channelOut{
			Title:       doc.Title,
			Description: doc.Description,
			Link:        doc.Link,
		},
	}
	for _, item := range doc.Items {
		o := itemOut{
			Title:            item.Title,
			GUID:             guidOut{IsPermaLink: "false", Value: item.GUID},
			Enclosure:        enclosureOut{URL: item.EnclosureURL, Type: "audio/mpeg", Length: item.LengthSeconds},
			OriginalDuration: item.OriginalDuration,
		}
		if item.ResumeOffset > 0 {
			offset := item.ResumeOffset
			o.ResumeOffset = &offset
		}
		out.Channel.Items = append(out.Channel.Items, o)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("failed to render feed: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Parse reads a previously rendered feed back into a Document.
func Parse(data []byte) (Document, error) {
	var in rssIn
	if err := xml.Unmarshal(data, &in); err != nil {
		return Document{}, fmt.Errorf("failed to parse feed: %w", err)
	}

	doc := Document{
		Title:       in.Channel.Title,
		Description: in.Channel.Description,
		Link:        in.Channel.Link,
	}
	for _, item := range in.Channel.Items {
		doc.Items = append(doc.Items, Item{
			Title:            item.Title,
			GUID:             item.GUID.Value,
			EnclosureURL:     item.Enclosure.URL,
			LengthSeconds:    item.Enclosure.Length,
			OriginalDuration: item.OriginalDuration,
			ResumeOffset:     item.ResumeOffset,
		})
	}
	return doc, nil
}

// OffsetSource provides resume offsets keyed "<podcast> - <episode>".
type OffsetSource interface {
	Offsets(ctx context.Context) (map[string]int, error)
}

// Builder owns the feed's storage round trip: locate the prior feed file,
// merge in new items, enrich, and publish the updated document.
type Builder struct {
	store   storage.Storage
	offsets OffsetSource
	cfg     shared.FeedConfig
	logger  *log.Logger
}

// NewBuilder creates a Builder. The offset source may be nil, which
// disables enrichment.
func NewBuilder(store storage.Storage, offsets OffsetSource, cfg shared.FeedConfig, logger *log.Logger) *Builder {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Builder{store: store, offsets: offsets, cfg: cfg, logger: logger}
}

// Publish merges results into the stored feed and uploads the new revision.
//
// A missing prior feed starts a fresh document; a missing resume backup
// skips enrichment. Both are normal conditions, not errors.
func (b *Builder) Publish(ctx context.Context, results []models.ProcessingResult) (Document, error) {
	doc, err := b.current(ctx)
	if err != nil {
		return Document{}, err
	}

	items := make([]Item, 0, len(results))
	for _, r := range results {
		items = append(items, ItemFromResult(r))
	}
	doc = Merge(doc, items)

	if b.offsets != nil {
		offsets, err := b.offsets.Offsets(ctx)
		switch {
		case errors.Is(err, shared.ErrBackupNotFound):
			b.logger.Debug("no resume backup found, skipping enrichment")
		case err != nil:
			b.logger.Warn("failed to read resume offsets", "err", err)
		default:
			doc = Enrich(doc, b.cfg.PodcastName, offsets)
		}
	}

	rendered, err := Render(doc)
	if err != nil {
		return Document{}, err
	}

	id, err := b.store.Upload(ctx, bytes.NewReader(rendered), b.cfg.FileName, feedMimeType)
	if err != nil {
		return Document{}, fmt.Errorf("failed to publish feed: %w", err)
	}

	b.logger.Info("feed published", "file", b.cfg.FileName, "id", id, "items", len(doc.Items))
	return doc, nil
}

// Current fetches and parses the stored feed.
func (b *Builder) Current(ctx context.Context) (Document, error) {
	return b.current(ctx)
}

func (b *Builder) current(ctx context.Context) (Document, error) {
	fresh := Document{
		Title:       b.cfg.Title,
		Description: b.cfg.Description,
		Link:        b.cfg.Link,
	}

	query := fmt.Sprintf("name = '%s' and trashed = false", b.cfg.FileName)
	files, err := b.store.List(ctx, query)
	if err != nil {
		return Document{}, fmt.Errorf("failed to locate feed: %w", err)
	}

	prior, ok := storage.MostRecent(files)
	if !ok {
		return fresh, nil
	}

	data, err := b.store.Download(ctx, prior.ID)
	if err != nil {
		return Document{}, fmt.Errorf("failed to download feed %s: %w", prior.ID, err)
	}

	doc, err := Parse(data)
	if err != nil {
		b.logger.Warn("stored feed is unreadable, starting fresh", "err", err)
		return fresh, nil
	}
	if doc.Title == "" {
		doc.Title = b.cfg.Title
	}
	return doc, nil
}
