package models

import (
	"encoding/json"
	"time"
)

// Transcript holds the provider payload for one episode as received.
type Transcript struct {
	ID         string          `db:"id" json:"id"`
	EpisodeID  string          `db:"episode_id" json:"episode_id"`
	RawPayload json.RawMessage `db:"raw_payload" json:"raw_payload"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// Segment is a time-bounded chunk of transcript text. Times are in seconds.
type Segment struct {
	ID           string    `db:"id" json:"id"`
	TranscriptID string    `db:"transcript_id" json:"transcript_id"`
	EpisodeID    string    `db:"episode_id" json:"episode_id"`
	StartTime    float64   `db:"start_time" json:"start_time"`
	EndTime      float64   `db:"end_time" json:"end_time"`
	Text         string    `db:"text" json:"text"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
