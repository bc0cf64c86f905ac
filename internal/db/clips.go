package db

import (
	"context"

	"podscribe/internal/models"
)

// ClipInput carries the fields of a new clip.
type ClipInput struct {
	EpisodeID      string
	StartTime      float64
	EndTime        float64
	TranscriptText string
	SearchQuery    *string
	AudioClipURL   string
}

func (s *Store) CreateClip(ctx context.Context, in ClipInput) (models.Clip, error) {
	var c models.Clip
	err := s.db.GetContext(ctx, &c, `
		INSERT INTO clips (episode_id, start_time, end_time, transcript_text, search_query, audio_clip_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, episode_id, start_time, end_time, transcript_text, search_query, audio_clip_url, created_at`,
		in.EpisodeID, in.StartTime, in.EndTime, in.TranscriptText, in.SearchQuery, in.AudioClipURL)
	return c, err
}

func (s *Store) GetClipDetail(ctx context.Context, id string) (models.ClipDetail, error) {
	var c models.ClipDetail
	err := s.db.GetContext(ctx, &c, `
		SELECT c.id, c.episode_id, c.start_time, c.end_time, c.transcript_text, c.search_query,
			c.audio_clip_url, c.created_at, e.title AS episode_title, p.id AS podcast_id, p.title AS podcast_title
		FROM clips c
		JOIN episodes e ON e.id = c.episode_id
		JOIN podcasts p ON p.id = e.podcast_id
		WHERE c.id = $1`, id)
	return c, err
}
