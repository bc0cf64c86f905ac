package feed

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/eduncan911/podcast"
	"podscribe/internal/models"
)

// GenerateRSS renders the completed episodes of p as an RSS 2.0 feed.
// Episodes in any other state are left out.
func GenerateRSS(p models.Podcast, episodes []models.Episode, baseURL string) (string, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	description := p.Title
	if p.Description != nil && *p.Description != "" {
		description = *p.Description
	}

	updated := p.UpdatedAt
	feed := podcast.New(
		p.Title,
		fmt.Sprintf("%s/podcasts/%s", baseURL, p.ID),
		description,
		&p.CreatedAt, &updated,
	)
	if p.Author != nil && *p.Author != "" {
		feed.IAuthor = *p.Author
	}
	if p.CoverImageURL != nil && *p.CoverImageURL != "" {
		feed.AddImage(*p.CoverImageURL)
	}

	for _, episode := range episodes {
		if episode.TranscriptionStatus != models.StatusCompleted {
			continue
		}
		item := podcast.Item{
			GUID:        episode.ID,
			Title:       episode.Title,
			Description: episode.Title,
			Link:        fmt.Sprintf("%s/episodes/%s", baseURL, episode.ID),
			PubDate:     pubDate(episode),
		}
		if episode.Description != nil && *episode.Description != "" {
			item.Description = *episode.Description
		}
		item.AddEnclosure(episode.AudioURL, enclosureType(episode.AudioURL), 0)
		if episode.Duration != nil {
			item.AddDuration(int64(*episode.Duration))
		}
		if _, err := feed.AddItem(item); err != nil {
			return "", err
		}
	}

	return feed.String(), nil
}

func pubDate(e models.Episode) *time.Time {
	if e.PublicationDate != nil {
		return e.PublicationDate
	}
	created := e.CreatedAt
	return &created
}

func enclosureType(audioURL string) podcast.EnclosureType {
	base, _, _ := strings.Cut(audioURL, "?")
	switch strings.ToLower(path.Ext(base)) {
	case ".m4a":
		return podcast.M4A
	case ".mp4":
		return podcast.MP4
	default:
		return podcast.MP3
	}
}
