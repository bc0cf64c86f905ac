package handlers

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"podscribe/internal/db"
	"podscribe/internal/feed"
	"podscribe/internal/models"
	"podscribe/internal/storage"
)

// multipartMemory is how much of an upload is held in memory before spilling to disk.
const multipartMemory = 32 << 20

type podcastRequest struct {
	Title         string  `json:"title"`
	Description   *string `json:"description"`
	Author        *string `json:"author"`
	CoverImageURL *string `json:"cover_image_url"`
}

func (p podcastRequest) input() (db.PodcastInput, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return db.PodcastInput{}, errors.New("title is required")
	}
	return db.PodcastInput{
		Title:         title,
		Description:   p.Description,
		Author:        p.Author,
		CoverImageURL: p.CoverImageURL,
	}, nil
}

type episodeUpdateRequest struct {
	Title           string  `json:"title"`
	Description     *string `json:"description"`
	PublicationDate string  `json:"publication_date"`
}

type importRequest struct {
	FeedURL string `json:"feed_url"`
}

type importResponse struct {
	Podcast  models.Podcast   `json:"podcast"`
	Episodes []createdEpisode `json:"episodes"`
}

// createdEpisode tells the caller whether transcription was queued. When it
// was not, the episode stays pending until the retry endpoint is called.
type createdEpisode struct {
	models.Episode
	TranscriptionEnqueued bool `json:"transcription_enqueued"`
}

func (h *Handlers) AdminListEpisodes(w http.ResponseWriter, r *http.Request) {
	var status *models.TranscriptionStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s, err := models.ParseTranscriptionStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		status = &s
	}

	episodes, err := h.store.ListEpisodes(r.Context(), status)
	if err != nil {
		storeError(w, err, "Episode")
		return
	}
	writeJSON(w, http.StatusOK, episodes)
}

func (h *Handlers) CreatePodcast(w http.ResponseWriter, r *http.Request) {
	var req podcastRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	podcast, err := h.store.CreatePodcast(r.Context(), in)
	if err != nil {
		storeError(w, err, "Podcast")
		return
	}
	writeJSON(w, http.StatusCreated, podcast)
}

func (h *Handlers) UpdatePodcast(w http.ResponseWriter, r *http.Request) {
	var req podcastRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	podcast, err := h.store.UpdatePodcast(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		storeError(w, err, "Podcast")
		return
	}
	writeJSON(w, http.StatusOK, podcast)
}

func (h *Handlers) DeletePodcast(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	counts, err := h.store.DeletePodcast(r.Context(), id)
	if err != nil {
		storeError(w, err, "Podcast")
		return
	}
	slog.Info("podcast deleted", "podcast_id", id, "episodes", counts.Episodes, "segments", counts.Segments)
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": counts})
}

// ImportPodcast creates a podcast from a remote RSS feed and queues every audio item.
func (h *Handlers) ImportPodcast(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.FeedURL == "" {
		writeError(w, http.StatusBadRequest, "feed_url is required")
		return
	}

	imported, err := h.importer.FetchURL(r.Context(), req.FeedURL)
	if err != nil {
		slog.Warn("feed import failed", "feed_url", req.FeedURL, "error", err)
		writeError(w, http.StatusBadRequest, "Could not import feed: "+err.Error())
		return
	}

	podcast, err := h.store.CreatePodcast(r.Context(), db.PodcastInput{
		Title:         imported.Title,
		Description:   imported.Description,
		Author:        imported.Author,
		CoverImageURL: imported.CoverImageURL,
	})
	if err != nil {
		storeError(w, err, "Podcast")
		return
	}

	episodes := make([]createdEpisode, 0, len(imported.Episodes))
	for _, item := range imported.Episodes {
		episode, err := h.store.CreateEpisode(r.Context(), importedEpisodeInput(podcast.ID, item))
		if err != nil {
			storeError(w, err, "Episode")
			return
		}
		episodes = append(episodes, h.queueCreated(episode))
	}

	writeJSON(w, http.StatusCreated, importResponse{Podcast: podcast, Episodes: episodes})
}

func importedEpisodeInput(podcastID string, item feed.ImportedEpisode) db.EpisodeInput {
	return db.EpisodeInput{
		PodcastID:       podcastID,
		Title:           item.Title,
		Description:     item.Description,
		AudioURL:        item.AudioURL,
		PublicationDate: item.PublicationDate,
	}
}

// CreateEpisode accepts a multipart form with either an audio file or an audio_url.
func (h *Handlers) CreateEpisode(w http.ResponseWriter, r *http.Request) {
	podcastID := mux.Vars(r)["id"]
	if _, err := h.store.GetPodcast(r.Context(), podcastID); err != nil {
		storeError(w, err, "Podcast")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Audio file is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	published, err := parseDate(r.FormValue("publication_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	audioURL, status, msg := h.resolveAudio(r)
	if status != 0 {
		writeError(w, status, msg)
		return
	}

	episode, err := h.store.CreateEpisode(r.Context(), db.EpisodeInput{
		PodcastID:       podcastID,
		Title:           title,
		Description:     optionalString(r.FormValue("description")),
		AudioURL:        audioURL,
		PublicationDate: published,
	})
	if err != nil {
		storeError(w, err, "Episode")
		return
	}

	writeJSON(w, http.StatusCreated, h.queueCreated(episode))
}

func (h *Handlers) queueCreated(episode models.Episode) createdEpisode {
	if err := h.enqueueTranscription(episode.ID); err != nil {
		slog.Error("failed to enqueue transcription", "episode_id", episode.ID, "error", err)
		return createdEpisode{Episode: episode}
	}
	return createdEpisode{Episode: episode, TranscriptionEnqueued: true}
}

// resolveAudio uploads the audio part if present, otherwise it uses the audio_url field.
// A non-zero status means the request must be rejected with msg.
func (h *Handlers) resolveAudio(r *http.Request) (string, int, string) {
	file, header, err := r.FormFile("audio")
	if errors.Is(err, http.ErrMissingFile) {
		audioURL := strings.TrimSpace(r.FormValue("audio_url"))
		if audioURL == "" {
			return "", http.StatusBadRequest, "an audio file or audio_url is required"
		}
		return audioURL, 0, ""
	}
	if err != nil {
		return "", http.StatusBadRequest, "Invalid audio file"
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && !strings.HasPrefix(mediaType, "audio/") {
		return "", http.StatusBadRequest, "audio must be an audio file"
	}
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	url, err := h.objects.Upload(r.Context(), storage.ObjectPath("episodes", header.Filename), file, contentType)
	if errors.Is(err, storage.ErrNotConfigured) {
		return "", http.StatusBadRequest, "File uploads are not configured; use audio_url"
	}
	if err != nil {
		slog.Error("audio upload failed", "filename", header.Filename, "error", err)
		return "", http.StatusBadRequest, "Upload failed: " + err.Error()
	}
	return url, 0, ""
}

func (h *Handlers) UpdateEpisode(w http.ResponseWriter, r *http.Request) {
	var req episodeUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	published, err := parseDate(req.PublicationDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	episode, err := h.store.UpdateEpisode(r.Context(), mux.Vars(r)["id"], db.EpisodeUpdate{
		Title:           title,
		Description:     req.Description,
		PublicationDate: published,
	})
	if err != nil {
		storeError(w, err, "Episode")
		return
	}
	writeJSON(w, http.StatusOK, episode)
}

func (h *Handlers) DeleteEpisode(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	counts, err := h.store.DeleteEpisode(r.Context(), id)
	if err != nil {
		storeError(w, err, "Episode")
		return
	}
	slog.Info("episode deleted", "episode_id", id, "segments", counts.Segments, "clips", counts.Clips)
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": counts})
}

// RetryTranscription resets a finished episode to pending and queues a new attempt.
func (h *Handlers) RetryTranscription(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.store.GetEpisode(r.Context(), id); err != nil {
		storeError(w, err, "Episode")
		return
	}

	reset, err := h.store.ResetEpisodeForRetry(r.Context(), id)
	if err != nil {
		storeError(w, err, "Episode")
		return
	}
	if !reset {
		writeError(w, http.StatusConflict, "Transcription is already in progress")
		return
	}

	if err := h.enqueueTranscription(id); err != nil {
		slog.Error("failed to enqueue transcription", "episode_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"episode_id":           id,
		"transcription_status": string(models.StatusPending),
	})
}
