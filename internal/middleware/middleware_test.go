package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"petpal/internal/ports/auth"
	"petpal/internal/ports/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier map[string]auth.Claims

func (f fakeVerifier) Verify(_ context.Context, sid string) (auth.Claims, error) {
	c, ok := f[sid]
	if !ok {
		return auth.Claims{}, errors.New("no session")
	}
	return c, nil
}

func protected() http.Handler {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(UserID(r)))
	})
	return AuthContext(fakeVerifier{"s1": {UserID: "u1", SessionID: "s1"}})(RequireSession(h))
}

func TestRequireSession(t *testing.T) {
	t.Run("cookie session passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "s1"})
		rec := httptest.NewRecorder()
		protected().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u1", rec.Body.String())
	})

	t.Run("bearer session passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer s1")
		rec := httptest.NewRecorder()
		protected().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("browser without session is redirected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept", "text/html,application/xhtml+xml")
		rec := httptest.NewRecorder()
		protected().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/welcome", rec.Header().Get("Location"))
	})

	t.Run("api client with unknown session gets 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "nope"})
		rec := httptest.NewRecorder()
		protected().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestNoCache(t *testing.T) {
	rec := httptest.NewRecorder()
	NoCache(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "0", rec.Header().Get("Expires"))
	assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
}

type stubLimiter struct {
	d   ratelimit.Decision
	err error
}

func (s stubLimiter) Take(context.Context, string) (ratelimit.Decision, error) { return s.d, s.err }

func TestRateLimit(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	t.Run("blocked", func(t *testing.T) {
		lim := stubLimiter{d: ratelimit.Decision{Allowed: false, Limit: 5, RetryAfter: 1500 * time.Millisecond}}
		rec := httptest.NewRecorder()
		RateLimit(lim, "rl", nil)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))

		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("Retry-After"))
		assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	})

	t.Run("limiter error fails open", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RateLimit(stubLimiter{err: errors.New("down")}, "rl", nil)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestSessionCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "abc", time.Now().Add(time.Hour), true)
	ClearSessionCookie(rec, true)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, "abc", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.Equal(t, -1, cookies[1].MaxAge)
}
