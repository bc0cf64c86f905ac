// Package feed renders podcast RSS feeds and imports episodes from remote ones.
package feed

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

var ErrNoAudio = errors.New("feed contains no audio enclosures")

var audioExtensions = map[string]bool{".mp3": true, ".m4a": true, ".wav": true, ".aac": true, ".ogg": true}

// ImportedPodcast is the show metadata and audio items read from a remote feed.
type ImportedPodcast struct {
	Title         string
	Description   *string
	Author        *string
	CoverImageURL *string
	Episodes      []ImportedEpisode
}

type ImportedEpisode struct {
	Title           string
	Description     *string
	AudioURL        string
	PublicationDate *time.Time
}

// Importer reads podcast feeds with gofeed.
type Importer struct {
	parser *gofeed.Parser
}

func NewImporter() *Importer {
	return &Importer{parser: gofeed.NewParser()}
}

// FetchURL downloads and parses the feed at feedURL.
func (i *Importer) FetchURL(ctx context.Context, feedURL string) (*ImportedPodcast, error) {
	f, err := i.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}
	return convert(f)
}

// Parse reads a feed document from r.
func (i *Importer) Parse(r io.Reader) (*ImportedPodcast, error) {
	f, err := i.parser.Parse(r)
	if err != nil {
		return nil, err
	}
	return convert(f)
}

func convert(f *gofeed.Feed) (*ImportedPodcast, error) {
	p := &ImportedPodcast{
		Title:       strings.TrimSpace(f.Title),
		Description: optional(f.Description),
	}
	if f.Author != nil {
		p.Author = optional(f.Author.Name)
	}
	if f.Image != nil {
		p.CoverImageURL = optional(f.Image.URL)
	} else if f.ITunesExt != nil {
		p.CoverImageURL = optional(f.ITunesExt.Image)
	}

	for _, item := range f.Items {
		audioURL := audioEnclosure(item)
		if audioURL == "" {
			continue
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			base, _, _ := strings.Cut(audioURL, "?")
			title = path.Base(base)
		}
		description := item.Description
		if description == "" {
			description = item.Content
		}
		p.Episodes = append(p.Episodes, ImportedEpisode{
			Title:           title,
			Description:     optional(description),
			AudioURL:        audioURL,
			PublicationDate: item.PublishedParsed,
		})
	}

	if len(p.Episodes) == 0 {
		return nil, ErrNoAudio
	}
	if p.Title == "" {
		p.Title = "Untitled podcast"
	}
	return p, nil
}

func audioEnclosure(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(enc.Type, "audio/") {
			return enc.URL
		}
		base, _, _ := strings.Cut(enc.URL, "?")
		if enc.Type == "" && audioExtensions[strings.ToLower(path.Ext(base))] {
			return enc.URL
		}
	}
	return ""
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
