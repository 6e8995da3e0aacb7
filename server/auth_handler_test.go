package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TuneCrate/core/auth"
	"TuneCrate/model"
)

func testHandler() *APIHandler {
	return &APIHandler{
		tokens: auth.NewTokenIssuer("test-secret", time.Hour),
	}
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	h := testHandler()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/songs", nil)

	called := false
	h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) { called = true })(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestAuthMiddlewareRejectsBadToken(t *testing.T) {
	h := testHandler()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/songs", nil)
	req.Header.Set("Authorization", "Bearer garbage")

	h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {})(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewarePopulatesContext(t *testing.T) {
	h := testHandler()
	token, err := h.tokens.Generate(42, "alice", model.RoleAdmin)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/songs", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		userID, err := GetUserIDFromContext(r.Context())
		require.NoError(t, err)
		assert.Equal(t, int64(42), userID)

		username, err := GetUsernameFromContext(r.Context())
		require.NoError(t, err)
		assert.Equal(t, "alice", username)

		role, err := GetRoleFromContext(r.Context())
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, role)

		w.WriteHeader(http.StatusNoContent)
	})(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireAdminBlocksListeners(t *testing.T) {
	h := testHandler()

	for _, tc := range []struct {
		role string
		want int
	}{
		{model.RoleAdmin, http.StatusNoContent},
		{model.RoleListener, http.StatusForbidden},
	} {
		token, err := h.tokens.Generate(1, "user", tc.role)
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/ingest/process", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		h.AuthMiddleware(h.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))(rec, req)

		assert.Equal(t, tc.want, rec.Code, "role %s", tc.role)
	}
}
