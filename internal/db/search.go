package db

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"podscribe/internal/models"
)

// SearchParams narrows a full-text segment search.
type SearchParams struct {
	Query     string
	PodcastID string
	Limit     int
}

// SearchSegments matches segment text with Postgres English text search.
// Rows come back in the engine's rank order.
func (s *Store) SearchSegments(ctx context.Context, p SearchParams) ([]models.SearchResult, error) {
	query := `
		SELECT s.id AS segment_id, s.episode_id, e.title AS episode_title, p.id AS podcast_id,
			p.title AS podcast_title, s.start_time, s.end_time, s.text, e.audio_url
		FROM segments s
		JOIN episodes e ON e.id = s.episode_id
		JOIN podcasts p ON p.id = e.podcast_id
		WHERE to_tsvector('english', s.text) @@ plainto_tsquery('english', $1)`
	args := []interface{}{p.Query}
	if p.PodcastID != "" {
		args = append(args, p.PodcastID)
		query += fmt.Sprintf(" AND p.id = $%d", len(args))
	}
	args = append(args, p.Limit)
	query += fmt.Sprintf(`
		ORDER BY ts_rank(to_tsvector('english', s.text), plainto_tsquery('english', $1)) DESC
		LIMIT $%d`, len(args))

	results := []models.SearchResult{}
	err := s.db.SelectContext(ctx, &results, query, args...)
	return results, err
}

// SegmentTextsMatchingAny returns the text of up to limit segments containing any of words.
func (s *Store) SegmentTextsMatchingAny(ctx context.Context, words []string, limit int) ([]string, error) {
	patterns := make([]string, len(words))
	for i, w := range words {
		patterns[i] = "%" + w + "%"
	}
	texts := []string{}
	err := s.db.SelectContext(ctx, &texts, `SELECT text FROM segments WHERE text ILIKE ANY($1) LIMIT $2`, pq.Array(patterns), limit)
	return texts, err
}
