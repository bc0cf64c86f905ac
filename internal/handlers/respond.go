package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lib/pq"
	"podscribe/internal/db"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// storeError maps a persistence error onto the API's error responses.
func storeError(w http.ResponseWriter, err error, resource string) {
	var pqErr *pq.Error
	switch {
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, resource+" not found")
	case errors.Is(err, db.ErrDuplicate):
		writeError(w, http.StatusBadRequest, resource+" already exists")
	case errors.As(err, &pqErr):
		writeError(w, http.StatusBadRequest, pqErr.Message)
	default:
		slog.Error("store error", "resource", resource, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// parseDate accepts YYYY-MM-DD or RFC 3339. An empty value is nil.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("publication_date %q must be YYYY-MM-DD or RFC 3339", s)
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
