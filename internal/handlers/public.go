package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"podscribe/internal/clips"
	"podscribe/internal/search"
)

func (h *Handlers) ListPodcasts(w http.ResponseWriter, r *http.Request) {
	podcasts, err := h.store.ListPodcasts(r.Context())
	if err != nil {
		storeError(w, err, "Podcast")
		return
	}
	writeJSON(w, http.StatusOK, podcasts)
}

func (h *Handlers) GetPodcast(w http.ResponseWriter, r *http.Request) {
	podcast, err := h.store.GetPodcast(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		storeError(w, err, "Podcast")
		return
	}
	writeJSON(w, http.StatusOK, podcast)
}

func (h *Handlers) ListPodcastEpisodes(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.store.GetPodcast(r.Context(), id); err != nil {
		storeError(w, err, "Podcast")
		return
	}
	episodes, err := h.store.ListEpisodesByPodcast(r.Context(), id)
	if err != nil {
		storeError(w, err, "Episode")
		return
	}
	writeJSON(w, http.StatusOK, episodes)
}

func (h *Handlers) GetEpisode(w http.ResponseWriter, r *http.Request) {
	episode, err := h.store.GetEpisode(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		storeError(w, err, "Episode")
		return
	}
	writeJSON(w, http.StatusOK, episode)
}

func (h *Handlers) ListEpisodeSegments(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.store.GetEpisode(r.Context(), id); err != nil {
		storeError(w, err, "Episode")
		return
	}
	segments, err := h.store.ListSegmentsByEpisode(r.Context(), id)
	if err != nil {
		storeError(w, err, "Segment")
		return
	}
	writeJSON(w, http.StatusOK, segments)
}

func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	results, err := h.search.Search(r.Context(), search.Query{
		Text:      q.Get("q"),
		PodcastID: q.Get("podcast_id"),
		Limit:     limit,
	})
	if errors.Is(err, search.ErrEmptyQuery) {
		writeError(w, http.StatusBadRequest, "Query parameter q is required")
		return
	}
	if err != nil {
		storeError(w, err, "Segment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":   q.Get("q"),
		"results": results,
	})
}

func (h *Handlers) RelatedKeywords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "Query parameter q is required")
		return
	}
	keywords, err := h.search.RelatedKeywords(r.Context(), q)
	if err != nil {
		storeError(w, err, "Segment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"keywords": keywords})
}

func (h *Handlers) CreateClip(w http.ResponseWriter, r *http.Request) {
	var req clips.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	clip, err := h.clips.Create(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, clip)
	case errors.Is(err, clips.ErrInvalidRange), errors.Is(err, clips.ErrMissingTranscript), errors.Is(err, clips.ErrMissingEpisode):
		writeError(w, http.StatusBadRequest, err.Error())
	case clips.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Episode not found")
	case errors.Is(err, clips.ErrUnsupportedStrategy):
		slog.Error("clip strategy misconfigured", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	default:
		storeError(w, err, "Clip")
	}
}

func (h *Handlers) GetClip(w http.ResponseWriter, r *http.Request) {
	clip, err := h.store.GetClipDetail(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		storeError(w, err, "Clip")
		return
	}
	writeJSON(w, http.StatusOK, clip)
}
