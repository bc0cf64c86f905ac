package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"podscribe/internal/models"
)

const podcastColumns = `id, title, description, author, cover_image_url, created_at, updated_at`

// PodcastInput carries the writable podcast fields.
type PodcastInput struct {
	Title         string
	Description   *string
	Author        *string
	CoverImageURL *string
}

// DeleteCounts reports how many rows a cascading delete removed per table.
type DeleteCounts struct {
	Segments    int64 `json:"segments"`
	Transcripts int64 `json:"transcripts"`
	Clips       int64 `json:"clips"`
	Episodes    int64 `json:"episodes"`
	Podcasts    int64 `json:"podcasts"`
}

func (s *Store) ListPodcasts(ctx context.Context) ([]models.Podcast, error) {
	podcasts := []models.Podcast{}
	err := s.db.SelectContext(ctx, &podcasts, `SELECT `+podcastColumns+` FROM podcasts ORDER BY created_at DESC`)
	return podcasts, err
}

func (s *Store) GetPodcast(ctx context.Context, id string) (models.Podcast, error) {
	var p models.Podcast
	err := s.db.GetContext(ctx, &p, `SELECT `+podcastColumns+` FROM podcasts WHERE id = $1`, id)
	return p, err
}

func (s *Store) CreatePodcast(ctx context.Context, in PodcastInput) (models.Podcast, error) {
	var p models.Podcast
	err := s.db.GetContext(ctx, &p, `
		INSERT INTO podcasts (title, description, author, cover_image_url)
		VALUES ($1, $2, $3, $4)
		RETURNING `+podcastColumns,
		in.Title, in.Description, in.Author, in.CoverImageURL)
	return p, translateError(err)
}

func (s *Store) UpdatePodcast(ctx context.Context, id string, in PodcastInput) (models.Podcast, error) {
	var p models.Podcast
	err := s.db.GetContext(ctx, &p, `
		UPDATE podcasts
		SET title = $1, description = $2, author = $3, cover_image_url = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING `+podcastColumns,
		in.Title, in.Description, in.Author, in.CoverImageURL, id)
	return p, err
}

// DeletePodcast removes a podcast and every row that descends from it.
// Children go first so foreign keys never see an orphan.
func (s *Store) DeletePodcast(ctx context.Context, id string) (DeleteCounts, error) {
	var counts DeleteCounts
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		const episodes = `SELECT id FROM episodes WHERE podcast_id = $1`
		var err error
		if counts.Segments, err = execCount(ctx, tx, `DELETE FROM segments WHERE episode_id IN (`+episodes+`)`, id); err != nil {
			return fmt.Errorf("delete segments: %w", err)
		}
		if counts.Transcripts, err = execCount(ctx, tx, `DELETE FROM transcripts WHERE episode_id IN (`+episodes+`)`, id); err != nil {
			return fmt.Errorf("delete transcripts: %w", err)
		}
		if counts.Clips, err = execCount(ctx, tx, `DELETE FROM clips WHERE episode_id IN (`+episodes+`)`, id); err != nil {
			return fmt.Errorf("delete clips: %w", err)
		}
		if counts.Episodes, err = execCount(ctx, tx, `DELETE FROM episodes WHERE podcast_id = $1`, id); err != nil {
			return fmt.Errorf("delete episodes: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM podcasts WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete podcast: %w", err)
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		counts.Podcasts = 1
		return nil
	})
	return counts, err
}

func execCount(ctx context.Context, tx *sqlx.Tx, query string, args ...interface{}) (int64, error) {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
