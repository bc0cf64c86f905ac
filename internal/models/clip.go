package models

import "time"

// Clip is an immutable reference to a time range of an episode's audio.
type Clip struct {
	ID             string    `db:"id" json:"id"`
	EpisodeID      string    `db:"episode_id" json:"episode_id"`
	StartTime      float64   `db:"start_time" json:"start_time"`
	EndTime        float64   `db:"end_time" json:"end_time"`
	TranscriptText string    `db:"transcript_text" json:"transcript_text"`
	SearchQuery    *string   `db:"search_query" json:"search_query,omitempty"`
	AudioClipURL   string    `db:"audio_clip_url" json:"audio_clip_url"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ClipDetail is a clip joined with the titles needed for a share page.
type ClipDetail struct {
	Clip
	EpisodeTitle string `db:"episode_title" json:"episode_title"`
	PodcastID    string `db:"podcast_id" json:"podcast_id"`
	PodcastTitle string `db:"podcast_title" json:"podcast_title"`
}
