package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

var migrationStatements = []string{
	`DO $$ BEGIN
		CREATE TYPE transcription_status AS ENUM ('pending', 'in_progress', 'completed', 'failed');
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE TABLE IF NOT EXISTS podcasts (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title TEXT NOT NULL,
		description TEXT,
		author TEXT,
		cover_image_url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS episodes (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		podcast_id UUID NOT NULL REFERENCES podcasts(id),
		title TEXT NOT NULL,
		description TEXT,
		audio_url TEXT NOT NULL,
		publication_date DATE,
		transcription_status transcription_status NOT NULL DEFAULT 'pending',
		duration INTEGER,
		transcription_job_id TEXT,
		transcription_error TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_episodes_podcast ON episodes (podcast_id)`,
	`CREATE INDEX IF NOT EXISTS idx_episodes_in_progress ON episodes (updated_at) WHERE transcription_status = 'in_progress'`,
	`CREATE TABLE IF NOT EXISTS transcripts (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		episode_id UUID NOT NULL UNIQUE REFERENCES episodes(id),
		raw_payload JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS segments (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		transcript_id UUID NOT NULL REFERENCES transcripts(id),
		episode_id UUID NOT NULL REFERENCES episodes(id),
		start_time DOUBLE PRECISION NOT NULL,
		end_time DOUBLE PRECISION NOT NULL,
		text TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_segments_episode ON segments (episode_id, start_time)`,
	`CREATE INDEX IF NOT EXISTS idx_segments_text_search ON segments USING GIN (to_tsvector('english', text))`,
	`CREATE TABLE IF NOT EXISTS clips (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		episode_id UUID NOT NULL REFERENCES episodes(id),
		start_time DOUBLE PRECISION NOT NULL CHECK (start_time >= 0),
		end_time DOUBLE PRECISION NOT NULL,
		transcript_text TEXT NOT NULL,
		search_query TEXT,
		audio_clip_url TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (end_time > start_time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_clips_episode ON clips (episode_id)`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'admin' CHECK (role IN ('admin')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// RunMigration applies the schema to databaseURL. Every statement is idempotent.
func RunMigration(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connect for migration: %w", err)
	}
	defer conn.Close(ctx)

	for i, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i, err)
		}
	}
	return nil
}
