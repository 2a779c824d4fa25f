package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagbok-backend/internal/auth"
	"github.com/dagbok-backend/internal/model"
)

type fakeUserFinder struct {
	users map[string]*model.User
}

func (f *fakeUserFinder) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return f.users[email], nil
}

func newTestAuth(t *testing.T) (*AuthMiddleware, *auth.Codec, *model.User) {
	t.Helper()

	codec := auth.NewCodec("test-secret")
	user := &model.User{
		ID:    uuid.New(),
		Email: "alice@example.com",
		Name:  "Alice",
		Role:  model.UserRoleUser,
	}
	finder := &fakeUserFinder{users: map[string]*model.User{user.Email: user}}

	return NewAuthMiddleware(codec, finder), codec, user
}

// downstream records whether it ran and what principal it saw.
func downstream(captured **model.Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = GetPrincipal(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate_MissingToken(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestAuth(t)

	var principal *model.Principal
	handler := m.Authenticate(downstream(&principal))

	req := httptest.NewRequest(http.MethodGet, "/user/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or missing token")
	assert.Nil(t, principal)
}

func TestAuthenticate_TamperedToken(t *testing.T) {
	t.Parallel()

	m, _, user := newTestAuth(t)

	otherCodec := auth.NewCodec("attacker-secret")
	tok, err := otherCodec.Issue(user.Email, time.Hour)
	require.NoError(t, err)

	var principal *model.Principal
	handler := m.Authenticate(downstream(&principal))

	req := httptest.NewRequest(http.MethodGet, "/user/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid token")
	assert.Nil(t, principal)
}

func TestAuthenticate_ExpiredTokenIsDistinct(t *testing.T) {
	t.Parallel()

	m, codec, user := newTestAuth(t)

	tok, err := codec.Issue(user.Email, -time.Minute)
	require.NoError(t, err)

	var principal *model.Principal
	handler := m.Authenticate(downstream(&principal))

	req := httptest.NewRequest(http.MethodGet, "/user/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Token expired")
	assert.Nil(t, principal)
}

func TestAuthenticate_UserDeletedAfterIssuance(t *testing.T) {
	t.Parallel()

	m, codec, _ := newTestAuth(t)

	tok, err := codec.Issue("gone@example.com", time.Hour)
	require.NoError(t, err)

	var principal *model.Principal
	handler := m.Authenticate(downstream(&principal))

	req := httptest.NewRequest(http.MethodGet, "/user/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "User not found")
	assert.Nil(t, principal)
}

func TestAuthenticate_ValidTokenFromCookie(t *testing.T) {
	t.Parallel()

	m, codec, user := newTestAuth(t)

	tok, err := codec.Issue(user.Email, time.Hour)
	require.NoError(t, err)

	var principal *model.Principal
	handler := m.Authenticate(downstream(&principal))

	req := httptest.NewRequest(http.MethodGet, "/user/me", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: tok})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, principal)
	assert.Equal(t, user.ID, principal.UserID)
	assert.Equal(t, user.Email, principal.Email)
}

func TestAuthenticate_CookiePreferredOverHeader(t *testing.T) {
	t.Parallel()

	m, codec, user := newTestAuth(t)

	cookieTok, err := codec.Issue(user.Email, time.Hour)
	require.NoError(t, err)

	var principal *model.Principal
	handler := m.Authenticate(downstream(&principal))

	req := httptest.NewRequest(http.MethodGet, "/user/me", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: cookieTok})
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, principal)
}

func TestAuthenticate_BearerHeaderFallback(t *testing.T) {
	t.Parallel()

	m, codec, user := newTestAuth(t)

	tok, err := codec.Issue(user.Email, time.Hour)
	require.NoError(t, err)

	var principal *model.Principal
	handler := m.Authenticate(downstream(&principal))

	req := httptest.NewRequest(http.MethodGet, "/api/notes/user", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, principal)
}

func TestAuthenticate_PublicPathsBypass(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestAuth(t)

	paths := []string{
		"/user/login",
		"/user/register",
		"/user/demo",
		"/token/refresh",
		"/api/health",
		"/api/status",
		"/api/public/version",
	}

	for _, path := range paths {
		var principal *model.Principal
		handler := m.Authenticate(downstream(&principal))

		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, "path %s should be public", path)
		assert.Nil(t, principal, "public path %s is anonymous", path)
	}
}

func TestGetPrincipal_EmptyContext(t *testing.T) {
	t.Parallel()

	assert.Nil(t, GetPrincipal(context.Background()))
}
