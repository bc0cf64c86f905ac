package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"podscribe/internal/auth"
	"podscribe/internal/db"
	"podscribe/internal/middleware"
	"podscribe/internal/models"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (c credentials) validate() error {
	if !strings.Contains(c.Email, "@") {
		return errors.New("a valid email is required")
	}
	if c.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.RegistrationEnabled {
		writeError(w, http.StatusForbidden, "Registration is disabled")
		return
	}

	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrWeakPassword) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user, err := h.store.CreateUser(r.Context(), strings.TrimSpace(req.Email), hash, models.RoleAdmin)
	if errors.Is(err, db.ErrDuplicate) {
		writeError(w, http.StatusBadRequest, "Email is already registered")
		return
	}
	if err != nil {
		storeError(w, err, "User")
		return
	}
	slog.Info("user registered", "user_id", user.ID)

	h.respondWithToken(w, http.StatusCreated, user)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	}
	if err != nil {
		storeError(w, err, "User")
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	h.respondWithToken(w, http.StatusOK, user)
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handlers) respondWithToken(w http.ResponseWriter, status int, user models.User) {
	token, err := h.tokens.Issue(user)
	if err != nil {
		slog.Error("failed to issue token", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, status, tokenResponse{Token: token, User: &user})
}
