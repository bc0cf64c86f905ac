package models

import (
	"fmt"
	"time"
)

// TranscriptionStatus is the lifecycle state of an episode's transcription.
type TranscriptionStatus string

const (
	StatusPending    TranscriptionStatus = "pending"
	StatusInProgress TranscriptionStatus = "in_progress"
	StatusCompleted  TranscriptionStatus = "completed"
	StatusFailed     TranscriptionStatus = "failed"
)

// ParseTranscriptionStatus converts s into a TranscriptionStatus, rejecting unknown values.
func ParseTranscriptionStatus(s string) (TranscriptionStatus, error) {
	status := TranscriptionStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown transcription status %q", s)
	}
	return status, nil
}

func (s TranscriptionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether an orchestration attempt has finished.
func (s TranscriptionStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed:
		return true
	case StatusPending, StatusInProgress:
		return false
	default:
		return false
	}
}

// Retryable reports whether a new transcription attempt may be started.
// An attempt already in flight blocks a second one.
func (s TranscriptionStatus) Retryable() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	case StatusInProgress:
		return false
	default:
		return false
	}
}

type Episode struct {
	ID                  string              `db:"id" json:"id"`
	PodcastID           string              `db:"podcast_id" json:"podcast_id"`
	Title               string              `db:"title" json:"title"`
	Description         *string             `db:"description" json:"description,omitempty"`
	AudioURL            string              `db:"audio_url" json:"audio_url"`
	PublicationDate     *time.Time          `db:"publication_date" json:"publication_date,omitempty"`
	TranscriptionStatus TranscriptionStatus `db:"transcription_status" json:"transcription_status"`
	Duration            *int                `db:"duration" json:"duration,omitempty"`
	TranscriptionJobID  *string             `db:"transcription_job_id" json:"transcription_job_id,omitempty"`
	TranscriptionError  *string             `db:"transcription_error" json:"transcription_error,omitempty"`
	CreatedAt           time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time           `db:"updated_at" json:"updated_at"`
}
