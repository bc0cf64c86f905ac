package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TypeSubmitTranscription     = "transcription:submit"
	TypePollTranscription       = "transcription:poll"
	TypeReapStaleTranscriptions = "transcription:reap"
)

type SubmitTranscriptionPayload struct {
	EpisodeID string `json:"episode_id"`
}

// NewSubmitTranscriptionTask starts the transcription of an episode.
// Failures are recorded on the episode, so the task is never retried by the queue.
func NewSubmitTranscriptionTask(episodeID string) (*asynq.Task, error) {
	payload, err := json.Marshal(SubmitTranscriptionPayload{EpisodeID: episodeID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSubmitTranscription, payload, asynq.MaxRetry(0)), nil
}

type PollTranscriptionPayload struct {
	EpisodeID string `json:"episode_id"`
	JobID     string `json:"job_id"`
	Attempt   int    `json:"attempt"`
}

func NewPollTranscriptionTask(episodeID, jobID string, attempt int) (*asynq.Task, error) {
	payload, err := json.Marshal(PollTranscriptionPayload{
		EpisodeID: episodeID,
		JobID:     jobID,
		Attempt:   attempt,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePollTranscription, payload, asynq.MaxRetry(0)), nil
}

func NewReapStaleTranscriptionsTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeReapStaleTranscriptions, nil, asynq.MaxRetry(0)), nil
}
