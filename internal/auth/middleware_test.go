package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/isdelr/devsec-blog-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoSession writes the request's session, or 204 when there is none.
func echoSession(w http.ResponseWriter, r *http.Request) {
	session, ok := FromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	_ = json.NewEncoder(w).Encode(session)
}

func serve(h http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func messageOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestRequireAuth(t *testing.T) {
	tm := NewTokenManager(testSecret)
	token, err := tm.Generate(testUser)
	require.NoError(t, err)
	h := RequireAuth(tm)(http.HandlerFunc(echoSession))

	rec := serve(h, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication required", messageOf(t, rec))

	rec = serve(h, "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication required", messageOf(t, rec))

	rec = serve(h, "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", messageOf(t, rec))

	rec = serve(h, "bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	var session Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, "user-1", session.ID)
	assert.Equal(t, models.RoleUser, session.Role)
	assert.True(t, session.IsPremium)
}

func TestOptionalAuth(t *testing.T) {
	tm := NewTokenManager(testSecret)
	token, err := tm.Generate(testUser)
	require.NoError(t, err)
	h := OptionalAuth(tm)(http.HandlerFunc(echoSession))

	assert.Equal(t, http.StatusNoContent, serve(h, "").Code)
	assert.Equal(t, http.StatusNoContent, serve(h, "Bearer garbage").Code)
	assert.Equal(t, http.StatusOK, serve(h, "Bearer "+token).Code)
}

func TestRequireAdmin(t *testing.T) {
	tm := NewTokenManager(testSecret)
	h := RequireAuth(tm)(RequireAdmin(http.HandlerFunc(echoSession)))

	userToken, err := tm.Generate(testUser)
	require.NoError(t, err)
	admin := testUser
	admin.Role = models.RoleAdmin
	adminToken, err := tm.Generate(admin)
	require.NoError(t, err)

	rec := serve(h, "Bearer "+userToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Admin access required", messageOf(t, rec))

	assert.Equal(t, http.StatusOK, serve(h, "Bearer "+adminToken).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h, "").Code)
}
