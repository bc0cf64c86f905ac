package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"podscribe/internal/models"
	"podscribe/internal/segmenter"
)

// SaveTranscriptionInput is the full result of a completed transcription job.
type SaveTranscriptionInput struct {
	EpisodeID  string
	JobID      string
	RawPayload json.RawMessage
	Segments   []segmenter.Segment
	Duration   int
}

// SaveTranscription stores the transcript and segments and completes the episode.
// The writes succeed or fail together, and none land unless JobID still owns the episode.
func (s *Store) SaveTranscription(ctx context.Context, in SaveTranscriptionInput) (models.Transcript, error) {
	var t models.Transcript
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE episodes
			SET transcription_status = $1, duration = $2, transcription_error = NULL, updated_at = NOW()
			WHERE id = $3 AND transcription_status = $4 AND transcription_job_id = $5`,
			models.StatusCompleted, in.Duration, in.EpisodeID, models.StatusInProgress, in.JobID)
		if err != nil {
			return fmt.Errorf("complete episode: %w", err)
		}
		if err := requireOwned(res); err != nil {
			return err
		}

		// A retried episode replaces the output of its previous run.
		if _, err := tx.ExecContext(ctx, `DELETE FROM segments WHERE episode_id = $1`, in.EpisodeID); err != nil {
			return fmt.Errorf("clear segments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM transcripts WHERE episode_id = $1`, in.EpisodeID); err != nil {
			return fmt.Errorf("clear transcript: %w", err)
		}

		err = tx.GetContext(ctx, &t, `
			INSERT INTO transcripts (episode_id, raw_payload)
			VALUES ($1, $2)
			RETURNING id, episode_id, raw_payload, created_at`,
			in.EpisodeID, string(in.RawPayload))
		if err != nil {
			return fmt.Errorf("insert transcript: %w", err)
		}

		for _, seg := range in.Segments {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO segments (transcript_id, episode_id, start_time, end_time, text)
				VALUES ($1, $2, $3, $4, $5)`,
				t.ID, in.EpisodeID, seg.StartTime, seg.EndTime, seg.Text); err != nil {
				return fmt.Errorf("insert segment: %w", err)
			}
		}

		return nil
	})
	return t, err
}

func (s *Store) GetTranscriptByEpisode(ctx context.Context, episodeID string) (models.Transcript, error) {
	var t models.Transcript
	err := s.db.GetContext(ctx, &t, `SELECT id, episode_id, raw_payload, created_at FROM transcripts WHERE episode_id = $1`, episodeID)
	return t, err
}

func (s *Store) ListSegmentsByEpisode(ctx context.Context, episodeID string) ([]models.Segment, error) {
	segments := []models.Segment{}
	err := s.db.SelectContext(ctx, &segments, `
		SELECT id, transcript_id, episode_id, start_time, end_time, text, created_at
		FROM segments
		WHERE episode_id = $1
		ORDER BY start_time ASC`, episodeID)
	return segments, err
}
