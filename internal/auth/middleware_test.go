package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProtectedHandler(t *testing.T, store CredentialStore) (http.Handler, *TokenService) {
	t.Helper()

	tokens, err := NewTokenService(testSecret, 30*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, ok := UsernameFromContext(r.Context())
		require.True(t, ok)
		w.Header().Set("X-Username", username)
		w.WriteHeader(http.StatusOK)
	})

	return Middleware(tokens, store, next), tokens
}

func getWithAuth(handler http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/codes", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareAllowsValidAccessToken(t *testing.T) {
	store := storeWithAdmin(t, "alice", "Corr3ct-Passw0rd!")
	handler, tokens := newProtectedHandler(t, store)

	access, err := tokens.IssueAccessToken("alice")
	require.NoError(t, err)

	rec := getWithAuth(handler, "Bearer "+access)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", rec.Header().Get("X-Username"))
}

func TestMiddlewareMissingHeader(t *testing.T) {
	store := storeWithAdmin(t, "alice", "Corr3ct-Passw0rd!")
	handler, _ := newProtectedHandler(t, store)

	rec := getWithAuth(handler, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
}

func TestMiddlewareBadScheme(t *testing.T) {
	store := storeWithAdmin(t, "alice", "Corr3ct-Passw0rd!")
	handler, tokens := newProtectedHandler(t, store)

	access, err := tokens.IssueAccessToken("alice")
	require.NoError(t, err)

	rec := getWithAuth(handler, "Basic "+access)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareRejectsRefreshToken(t *testing.T) {
	store := storeWithAdmin(t, "alice", "Corr3ct-Passw0rd!")
	handler, tokens := newProtectedHandler(t, store)

	refresh, err := tokens.IssueRefreshToken("alice")
	require.NoError(t, err)

	rec := getWithAuth(handler, "Bearer "+refresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
}

func TestMiddlewareRejectsGarbageToken(t *testing.T) {
	store := storeWithAdmin(t, "alice", "Corr3ct-Passw0rd!")
	handler, _ := newProtectedHandler(t, store)

	rec := getWithAuth(handler, "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareRejectsDeletedAdmin(t *testing.T) {
	store := storeWithAdmin(t, "alice", "Corr3ct-Passw0rd!")
	handler, tokens := newProtectedHandler(t, store)

	access, err := tokens.IssueAccessToken("alice")
	require.NoError(t, err)

	delete(store.admins, "alice")

	rec := getWithAuth(handler, "Bearer "+access)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
