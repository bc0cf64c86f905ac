package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"podscribe/internal/db"
	"podscribe/internal/models"
	"podscribe/internal/segmenter"
	"podscribe/internal/transcription"
	"podscribe/pkg/tasks"
)

// Store is the persistence used by the transcription tasks.
type Store interface {
	GetEpisode(ctx context.Context, id string) (models.Episode, error)
	ClaimEpisodeForTranscription(ctx context.Context, id string) (bool, error)
	SetTranscriptionJob(ctx context.Context, id, jobID string) error
	TouchEpisode(ctx context.Context, id, jobID string) error
	MarkTranscriptionFailed(ctx context.Context, id, jobID, reason string) error
	SaveTranscription(ctx context.Context, in db.SaveTranscriptionInput) (models.Transcript, error)
	FailStaleTranscriptions(ctx context.Context, age time.Duration) (int64, error)
}

// Provider is the speech-to-text service. It's implemented by transcription.Client.
type Provider interface {
	Submit(ctx context.Context, audioURL string) (string, error)
	Get(ctx context.Context, jobID string) (*transcription.Job, error)
}

// PollPolicy bounds how long a job is waited for.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
	StaleAfter  time.Duration
}

type TaskHandler struct {
	store       Store
	provider    Provider
	asynqClient tasks.TaskEnqueuer
	policy      PollPolicy
}

func NewTaskHandler(store Store, provider Provider, client tasks.TaskEnqueuer, policy PollPolicy) *TaskHandler {
	return &TaskHandler{
		store:       store,
		provider:    provider,
		asynqClient: client,
		policy:      policy,
	}
}

// Register wires the task handlers into mux.
func (h *TaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(tasks.TypeSubmitTranscription, h.HandleSubmitTranscriptionTask)
	mux.HandleFunc(tasks.TypePollTranscription, h.HandlePollTranscriptionTask)
	mux.HandleFunc(tasks.TypeReapStaleTranscriptions, h.HandleReapStaleTranscriptionsTask)
}

func (h *TaskHandler) HandleSubmitTranscriptionTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.SubmitTranscriptionPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}
	logger := slog.With("episode_id", p.EpisodeID)

	claimed, err := h.store.ClaimEpisodeForTranscription(ctx, p.EpisodeID)
	if err != nil {
		return fmt.Errorf("failed to claim episode: %w", err)
	}
	if !claimed {
		logger.Info("episode is not pending, skipping transcription")
		return nil
	}

	episode, err := h.store.GetEpisode(ctx, p.EpisodeID)
	if err != nil {
		return h.fail(ctx, p.EpisodeID, "", fmt.Sprintf("load episode: %v", err))
	}

	jobID, err := h.provider.Submit(ctx, episode.AudioURL)
	if err != nil {
		return h.fail(ctx, p.EpisodeID, "", fmt.Sprintf("submit transcription: %v", err))
	}
	logger = logger.With("job_id", jobID)
	logger.Info("transcription job submitted")

	if err := h.store.SetTranscriptionJob(ctx, p.EpisodeID, jobID); err != nil {
		return h.fail(ctx, p.EpisodeID, "", fmt.Sprintf("record job id: %v", err))
	}

	if err := h.schedulePoll(p.EpisodeID, jobID, 1); err != nil {
		return h.fail(ctx, p.EpisodeID, jobID, fmt.Sprintf("schedule poll: %v", err))
	}
	return nil
}

func (h *TaskHandler) HandlePollTranscriptionTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.PollTranscriptionPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}
	logger := slog.With("episode_id", p.EpisodeID, "job_id", p.JobID, "attempt", p.Attempt)

	job, err := h.provider.Get(ctx, p.JobID)
	if err != nil {
		// Counts as not yet complete.
		logger.Warn("failed to fetch transcription job", "error", err)
	} else {
		switch job.Status {
		case transcription.JobCompleted:
			return h.complete(ctx, p.EpisodeID, p.JobID, job)
		case transcription.JobError:
			return h.fail(ctx, p.EpisodeID, p.JobID, fmt.Sprintf("transcription failed: %s", job.Error))
		}
		logger.Debug("transcription job not complete", "status", job.Status)
	}

	if p.Attempt >= h.policy.MaxAttempts {
		return h.fail(ctx, p.EpisodeID, p.JobID, fmt.Sprintf("transcription timed out after %d attempts", p.Attempt))
	}

	if err := h.store.TouchEpisode(ctx, p.EpisodeID, p.JobID); err != nil {
		if errors.Is(err, db.ErrSuperseded) {
			return superseded(p.EpisodeID, p.JobID)
		}
		logger.Warn("failed to touch episode", "error", err)
	}
	if err := h.schedulePoll(p.EpisodeID, p.JobID, p.Attempt+1); err != nil {
		return h.fail(ctx, p.EpisodeID, p.JobID, fmt.Sprintf("schedule poll: %v", err))
	}
	return nil
}

func (h *TaskHandler) HandleReapStaleTranscriptionsTask(ctx context.Context, t *asynq.Task) error {
	n, err := h.store.FailStaleTranscriptions(ctx, h.policy.StaleAfter)
	if err != nil {
		return fmt.Errorf("failed to reap stale transcriptions: %w", err)
	}
	if n > 0 {
		slog.Warn("failed stale transcriptions", "count", n, "stale_after", h.policy.StaleAfter)
	}
	return nil
}

func (h *TaskHandler) complete(ctx context.Context, episodeID, jobID string, job *transcription.Job) error {
	segments := segmenter.Split(job.SegmenterWords())
	duration := job.DurationSeconds()

	_, err := h.store.SaveTranscription(ctx, db.SaveTranscriptionInput{
		EpisodeID:  episodeID,
		JobID:      jobID,
		RawPayload: job.Raw,
		Segments:   segments,
		Duration:   duration,
	})
	if errors.Is(err, db.ErrSuperseded) {
		return superseded(episodeID, jobID)
	}
	if err != nil {
		return h.fail(ctx, episodeID, jobID, fmt.Sprintf("save transcription: %v", err))
	}

	slog.Info("transcription completed",
		"episode_id", episodeID,
		"job_id", jobID,
		"segments", len(segments),
		"duration", duration,
	)
	return nil
}

func (h *TaskHandler) schedulePoll(episodeID, jobID string, attempt int) error {
	task, err := tasks.NewPollTranscriptionTask(episodeID, jobID, attempt)
	if err != nil {
		return err
	}
	_, err = h.asynqClient.Enqueue(task, asynq.ProcessIn(h.policy.Interval))
	return err
}

// fail records reason on the attempt identified by jobID and returns an error the queue will not retry.
func (h *TaskHandler) fail(ctx context.Context, episodeID, jobID, reason string) error {
	err := h.store.MarkTranscriptionFailed(ctx, episodeID, jobID, reason)
	if errors.Is(err, db.ErrSuperseded) {
		return superseded(episodeID, jobID)
	}
	slog.Error("transcription failed", "episode_id", episodeID, "job_id", jobID, "reason", reason)
	if err != nil {
		slog.Error("failed to mark episode failed", "episode_id", episodeID, "error", err)
	}
	return fmt.Errorf("%s: %w", reason, asynq.SkipRetry)
}

// superseded drops a task whose attempt no longer owns the episode.
func superseded(episodeID, jobID string) error {
	slog.Warn("transcription attempt superseded, dropping task", "episode_id", episodeID, "job_id", jobID)
	return fmt.Errorf("job %q: %w: %w", jobID, db.ErrSuperseded, asynq.SkipRetry)
}
