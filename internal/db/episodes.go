package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"podscribe/internal/models"
)

const episodeColumns = `id, podcast_id, title, description, audio_url, publication_date,
	transcription_status, duration, transcription_job_id, transcription_error, created_at, updated_at`

// EpisodeInput carries the fields needed to create an episode.
type EpisodeInput struct {
	PodcastID       string
	Title           string
	Description     *string
	AudioURL        string
	PublicationDate *time.Time
}

// EpisodeUpdate carries the admin-editable episode fields.
type EpisodeUpdate struct {
	Title           string
	Description     *string
	PublicationDate *time.Time
}

func (s *Store) CreateEpisode(ctx context.Context, in EpisodeInput) (models.Episode, error) {
	var e models.Episode
	err := s.db.GetContext(ctx, &e, `
		INSERT INTO episodes (podcast_id, title, description, audio_url, publication_date, transcription_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+episodeColumns,
		in.PodcastID, in.Title, in.Description, in.AudioURL, in.PublicationDate, models.StatusPending)
	return e, translateError(err)
}

func (s *Store) GetEpisode(ctx context.Context, id string) (models.Episode, error) {
	var e models.Episode
	err := s.db.GetContext(ctx, &e, `SELECT `+episodeColumns+` FROM episodes WHERE id = $1`, id)
	return e, err
}

func (s *Store) ListEpisodesByPodcast(ctx context.Context, podcastID string) ([]models.Episode, error) {
	episodes := []models.Episode{}
	err := s.db.SelectContext(ctx, &episodes, `
		SELECT `+episodeColumns+` FROM episodes
		WHERE podcast_id = $1
		ORDER BY publication_date DESC NULLS LAST, created_at DESC`, podcastID)
	return episodes, err
}

// ListEpisodes returns all episodes, optionally restricted to one status.
func (s *Store) ListEpisodes(ctx context.Context, status *models.TranscriptionStatus) ([]models.Episode, error) {
	episodes := []models.Episode{}
	if status == nil {
		err := s.db.SelectContext(ctx, &episodes, `SELECT `+episodeColumns+` FROM episodes ORDER BY created_at DESC`)
		return episodes, err
	}
	err := s.db.SelectContext(ctx, &episodes, `
		SELECT `+episodeColumns+` FROM episodes
		WHERE transcription_status = $1
		ORDER BY created_at DESC`, *status)
	return episodes, err
}

func (s *Store) UpdateEpisode(ctx context.Context, id string, in EpisodeUpdate) (models.Episode, error) {
	var e models.Episode
	err := s.db.GetContext(ctx, &e, `
		UPDATE episodes
		SET title = $1, description = $2, publication_date = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING `+episodeColumns,
		in.Title, in.Description, in.PublicationDate, id)
	return e, err
}

// DeleteEpisode removes an episode with its segments, transcript and clips.
func (s *Store) DeleteEpisode(ctx context.Context, id string) (DeleteCounts, error) {
	var counts DeleteCounts
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if counts.Segments, err = execCount(ctx, tx, `DELETE FROM segments WHERE episode_id = $1`, id); err != nil {
			return fmt.Errorf("delete segments: %w", err)
		}
		if counts.Transcripts, err = execCount(ctx, tx, `DELETE FROM transcripts WHERE episode_id = $1`, id); err != nil {
			return fmt.Errorf("delete transcripts: %w", err)
		}
		if counts.Clips, err = execCount(ctx, tx, `DELETE FROM clips WHERE episode_id = $1`, id); err != nil {
			return fmt.Errorf("delete clips: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM episodes WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete episode: %w", err)
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		counts.Episodes = 1
		return nil
	})
	return counts, err
}

// ClaimEpisodeForTranscription moves a pending episode to in_progress.
// It returns false when another attempt already owns the episode.
func (s *Store) ClaimEpisodeForTranscription(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE episodes
		SET transcription_status = $1, transcription_job_id = NULL, transcription_error = NULL, updated_at = NOW()
		WHERE id = $2 AND transcription_status = $3`,
		models.StatusInProgress, id, models.StatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ResetEpisodeForRetry puts a finished episode back to pending.
// It returns false when the episode is currently in_progress.
func (s *Store) ResetEpisodeForRetry(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE episodes
		SET transcription_status = $1, transcription_error = NULL, updated_at = NOW()
		WHERE id = $2 AND transcription_status <> $3`,
		models.StatusPending, id, models.StatusInProgress)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) SetTranscriptionJob(ctx context.Context, id, jobID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE episodes SET transcription_job_id = $1, updated_at = NOW() WHERE id = $2`, jobID, id)
	return err
}

// TouchEpisode bumps updated_at so the stale reaper sees a live attempt.
// It returns ErrSuperseded when jobID no longer owns the episode.
func (s *Store) TouchEpisode(ctx context.Context, id, jobID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE episodes SET updated_at = NOW() WHERE id = $1 AND transcription_status = $2 AND transcription_job_id = $3`,
		id, models.StatusInProgress, jobID)
	if err != nil {
		return err
	}
	return requireOwned(res)
}

// MarkTranscriptionFailed fails the attempt identified by jobID. An empty jobID
// is the attempt that claimed the episode but never recorded a provider job.
// It returns ErrSuperseded when the episode has moved on to another attempt.
func (s *Store) MarkTranscriptionFailed(ctx context.Context, id, jobID, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE episodes
		SET transcription_status = $1, transcription_error = $2, updated_at = NOW()
		WHERE id = $3 AND transcription_status = $4 AND COALESCE(transcription_job_id, '') = $5`,
		models.StatusFailed, reason, id, models.StatusInProgress, jobID)
	if err != nil {
		return err
	}
	return requireOwned(res)
}

// FailStaleTranscriptions fails every in_progress episode untouched for longer than age.
func (s *Store) FailStaleTranscriptions(ctx context.Context, age time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE episodes
		SET transcription_status = $1, transcription_error = $2, updated_at = NOW()
		WHERE transcription_status = $3 AND updated_at < $4`,
		models.StatusFailed, "transcription abandoned: no progress recorded", models.StatusInProgress, time.Now().Add(-age))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
