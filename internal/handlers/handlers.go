package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"podscribe/internal/auth"
	"podscribe/internal/clips"
	"podscribe/internal/config"
	"podscribe/internal/db"
	"podscribe/internal/feed"
	"podscribe/internal/search"
	"podscribe/internal/storage"
	"podscribe/pkg/tasks"
)

type Handlers struct {
	store       *db.Store
	asynqClient tasks.TaskEnqueuer
	objects     storage.ObjectStore
	tokens      *auth.TokenIssuer
	clips       *clips.Builder
	search      *search.Service
	importer    *feed.Importer
	cfg         *config.Config
}

func New(store *db.Store, asynqClient tasks.TaskEnqueuer, objects storage.ObjectStore, tokens *auth.TokenIssuer, cfg *config.Config) *Handlers {
	return &Handlers{
		store:       store,
		asynqClient: asynqClient,
		objects:     objects,
		tokens:      tokens,
		clips:       clips.NewBuilder(store, objects, cfg.ClipStrategy, cfg.FFmpegPath),
		search:      search.NewService(store),
		importer:    feed.NewImporter(),
		cfg:         cfg,
	}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		slog.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// enqueueTranscription schedules the submit task for an episode.
func (h *Handlers) enqueueTranscription(episodeID string) error {
	task, err := tasks.NewSubmitTranscriptionTask(episodeID)
	if err != nil {
		return err
	}
	info, err := h.asynqClient.Enqueue(task)
	if err != nil {
		return err
	}
	slog.Info("transcription enqueued", "episode_id", episodeID, "task_id", info.ID)
	return nil
}
