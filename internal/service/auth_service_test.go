package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/eduportal-backend/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestAuth(t *testing.T) (*AuthService, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		SessionSecret:     "test-secret",
		SessionCookieName: "portal_session",
		SessionTTL:        time.Hour,
	}
	return NewAuthService(cfg, rdb), m
}

func TestIssueAndValidateToken(t *testing.T) {
	auth, _ := newTestAuth(t)

	token, issued, err := auth.IssueToken("u-42", "u42@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, issued.ID)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-42", claims.Subject)
	assert.Equal(t, "u42@example.com", claims.Email)
	assert.Equal(t, issued.ID, claims.ID)

	_, _, err = auth.IssueToken("", "")
	assert.Error(t, err)
}

func TestValidateTokenRejects(t *testing.T) {
	auth, _ := newTestAuth(t)
	token, _, err := auth.IssueToken("u-1", "")
	require.NoError(t, err)

	other := NewAuthService(&config.Config{SessionSecret: "other", SessionTTL: time.Hour}, nil)
	_, err = other.ValidateToken(token)
	assert.Error(t, err, "wrong secret")

	_, err = auth.ValidateToken("not-a-jwt")
	assert.Error(t, err)

	auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = auth.ValidateToken(token)
	assert.Error(t, err, "expired")
}

func TestRevokeSession(t *testing.T) {
	auth, m := newTestAuth(t)
	ctx := t.Context()

	token, _, err := auth.IssueToken("u-1", "")
	require.NoError(t, err)
	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)

	require.NoError(t, auth.ValidateSession(ctx, claims))
	require.NoError(t, auth.RevokeSession(ctx, claims))

	key := config.CacheKey.RevokedSessionKey(claims.ID)
	assert.True(t, m.Exists(key))
	assert.Greater(t, m.TTL(key), 59*time.Minute)
	assert.ErrorIs(t, auth.ValidateSession(ctx, claims), ErrSessionRevoked)

	// The revocation marker expires with the token.
	m.FastForward(time.Hour)
	assert.NoError(t, auth.ValidateSession(ctx, claims))
}

func TestValidateSessionStoreDown(t *testing.T) {
	auth, m := newTestAuth(t)
	_, claims, err := auth.IssueToken("u-1", "")
	require.NoError(t, err)

	m.Close()
	assert.ErrorIs(t, auth.ValidateSession(t.Context(), claims), ErrSessionStore)
}

func requestContext(setup func(r *http.Request)) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	if setup != nil {
		setup(req)
	}
	c.Request = req
	return c
}

func TestCurrentUser(t *testing.T) {
	auth, _ := newTestAuth(t)
	token, _, err := auth.IssueToken("u-7", "u7@example.com")
	require.NoError(t, err)

	t.Run("cookie", func(t *testing.T) {
		c := requestContext(func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "portal_session", Value: token})
		})
		sess, err := auth.CurrentUser(c)
		require.NoError(t, err)
		assert.Equal(t, "u-7", sess.UserID)
		assert.Equal(t, "u7@example.com", sess.Email)
		assert.False(t, sess.ExpiresAt.IsZero())
	})

	t.Run("bearer", func(t *testing.T) {
		c := requestContext(func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		})
		sess, err := auth.CurrentUser(c)
		require.NoError(t, err)
		assert.Equal(t, "u-7", sess.UserID)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := auth.CurrentUser(requestContext(nil))
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("garbage", func(t *testing.T) {
		c := requestContext(func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer garbage")
		})
		_, err := auth.CurrentUser(c)
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("revoked", func(t *testing.T) {
		claims, err := auth.ValidateToken(token)
		require.NoError(t, err)
		require.NoError(t, auth.RevokeSession(t.Context(), claims))

		c := requestContext(func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		})
		_, err = auth.CurrentUser(c)
		assert.True(t, errors.Is(err, ErrSessionRevoked))
	})
}
