package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"podscribe/internal/feed"
	"podscribe/internal/models"
)

func (h *Handlers) baseURL(r *http.Request) string {
	if h.cfg.BaseURL != "" {
		return strings.TrimRight(h.cfg.BaseURL, "/")
	}

	scheme := "https"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if r.TLS == nil {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

func (h *Handlers) GetPodcastFeed(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	podcast, err := h.store.GetPodcast(r.Context(), id)
	if err != nil {
		storeError(w, err, "Podcast")
		return
	}

	episodes, err := h.store.ListEpisodesByPodcast(r.Context(), id)
	if err != nil {
		storeError(w, err, "Episode")
		return
	}
	completed := episodes[:0]
	for _, e := range episodes {
		if e.TranscriptionStatus == models.StatusCompleted {
			completed = append(completed, e)
		}
	}

	rss, err := feed.GenerateRSS(podcast, completed, h.baseURL(r))
	if err != nil {
		slog.Error("failed to generate RSS", "podcast_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml")
	w.Write([]byte(rss))
}
