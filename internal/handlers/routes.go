package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
	"podscribe/internal/middleware"
)

// Routes builds the HTTP router for the public, auth and admin APIs.
func (h *Handlers) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	proxies, err := h.cfg.TrustedProxyPrefixes()
	if err != nil {
		slog.Error("ignoring trusted proxies", "error", err)
	}
	limiter := middleware.NewRateLimiterMiddleware(rate.Limit(h.cfg.PublicRateLimit), h.cfg.PublicRateBurst, proxies)
	public := r.PathPrefix("/api/public").Subrouter()
	public.Use(limiter.Middleware)
	public.HandleFunc("/podcasts", h.ListPodcasts).Methods(http.MethodGet)
	public.HandleFunc("/podcasts/{id}", h.GetPodcast).Methods(http.MethodGet)
	public.HandleFunc("/podcasts/{id}/episodes", h.ListPodcastEpisodes).Methods(http.MethodGet)
	public.HandleFunc("/podcasts/{id}/feed.xml", h.GetPodcastFeed).Methods(http.MethodGet)
	public.HandleFunc("/episodes/{id}", h.GetEpisode).Methods(http.MethodGet)
	public.HandleFunc("/episodes/{id}/segments", h.ListEpisodeSegments).Methods(http.MethodGet)
	public.HandleFunc("/search", h.Search).Methods(http.MethodGet)
	public.HandleFunc("/search/related", h.RelatedKeywords).Methods(http.MethodGet)
	public.HandleFunc("/clips", h.CreateClip).Methods(http.MethodPost)
	public.HandleFunc("/clips/{id}", h.GetClip).Methods(http.MethodGet)

	authenticate := middleware.Authenticate(h.tokens, h.store)

	authRouter := r.PathPrefix("/api/auth").Subrouter()
	authRouter.Use(limiter.Middleware)
	authRouter.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	authRouter.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	authRouter.Handle("/me", authenticate(http.HandlerFunc(h.Me))).Methods(http.MethodGet)

	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(authenticate, middleware.RequireAdmin)
	admin.HandleFunc("/episodes", h.AdminListEpisodes).Methods(http.MethodGet)
	admin.HandleFunc("/podcasts", h.CreatePodcast).Methods(http.MethodPost)
	admin.HandleFunc("/podcasts/import", h.ImportPodcast).Methods(http.MethodPost)
	admin.HandleFunc("/podcasts/{id}", h.UpdatePodcast).Methods(http.MethodPut)
	admin.HandleFunc("/podcasts/{id}", h.DeletePodcast).Methods(http.MethodDelete)
	admin.HandleFunc("/podcasts/{id}/episodes", h.CreateEpisode).Methods(http.MethodPost)
	admin.HandleFunc("/episodes/{id}", h.UpdateEpisode).Methods(http.MethodPut)
	admin.HandleFunc("/episodes/{id}", h.DeleteEpisode).Methods(http.MethodDelete)
	admin.HandleFunc("/episodes/{id}/transcribe", h.RetryTranscription).Methods(http.MethodPost)

	return r
}
