package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"podscribe/internal/auth"
	"podscribe/internal/models"
	"podscribe/internal/test"
)

var userColumns = []string{"id", "email", "password_hash", "role", "created_at"}

func TestAuthenticate(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)

	t.Run("valid token", func(t *testing.T) {
		store, mock := test.NewMockDB(t)
		user := models.User{ID: "u-1", Email: "admin@example.com", Role: models.RoleAdmin, CreatedAt: time.Now()}
		token, err := issuer.Issue(user)
		require.NoError(t, err)

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).WithArgs("u-1").
			WillReturnRows(sqlmock.NewRows(userColumns).AddRow(user.ID, user.Email, "hash", user.Role, user.CreatedAt))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()

		mockHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctxUser, ok := UserFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, "u-1", ctxUser.ID)
			w.WriteHeader(http.StatusOK)
		})

		Authenticate(issuer, store)(mockHandler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("user no longer exists", func(t *testing.T) {
		store, mock := test.NewMockDB(t)
		token, err := issuer.Issue(models.User{ID: "gone", Role: models.RoleAdmin})
		require.NoError(t, err)
		mock.ExpectQuery(`SELECT (.+) FROM users`).WithArgs("gone").WillReturnRows(sqlmock.NewRows(userColumns))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		Authenticate(issuer, store)(nil).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("no authorization header", func(t *testing.T) {
		store, _ := test.NewMockDB(t)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		Authenticate(issuer, store)(nil).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.JSONEq(t, `{"error":"Authorization header is required"}`, rr.Body.String())
	})

	t.Run("invalid authorization header format", func(t *testing.T) {
		store, _ := test.NewMockDB(t)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "tma sometoken")
		rr := httptest.NewRecorder()
		Authenticate(issuer, store)(nil).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("tampered token", func(t *testing.T) {
		store, _ := test.NewMockDB(t)
		token, err := auth.NewTokenIssuer("other-secret", time.Hour).Issue(models.User{ID: "u-1"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		Authenticate(issuer, store)(nil).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name string
		user *models.User
		want int
	}{
		{"admin", &models.User{ID: "1", Role: models.RoleAdmin}, http.StatusNoContent},
		{"not admin", &models.User{ID: "2", Role: "listener"}, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.user != nil {
				req = req.WithContext(context.WithValue(req.Context(), models.UserContextKey, tt.user))
			}
			rr := httptest.NewRecorder()
			RequireAdmin(ok).ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}
