package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"carmarket/auth"
	"carmarket/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubParser struct {
	claims *auth.Claims
	err    error
}

func (s stubParser) ParseAccess(string) (*auth.Claims, error) {
	return s.claims, s.err
}

func protectedRouter(parser AccessTokenParser) *gin.Engine {
	r := gin.New()
	r.GET("/me", JWTAuthMiddleware(parser), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": CurrentUserID(c)})
	})
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestJWTAuthMiddleware(t *testing.T) {
	ok := stubParser{claims: &auth.Claims{UserID: "user-1"}}

	tests := []struct {
		name       string
		parser     AccessTokenParser
		header     string
		query      string
		wantStatus int
		wantCode   models.ErrorKind
	}{
		{name: "bearer header", parser: ok, header: "Bearer abc", wantStatus: http.StatusOK},
		{name: "query token", parser: ok, query: "?token=abc", wantStatus: http.StatusOK},
		{name: "missing token", parser: ok, wantStatus: http.StatusUnauthorized, wantCode: models.KindUnauthorized},
		{name: "wrong scheme", parser: ok, header: "Basic abc", wantStatus: http.StatusUnauthorized, wantCode: models.KindUnauthorized},
		{name: "expired", parser: stubParser{err: auth.ErrExpiredToken}, header: "Bearer abc", wantStatus: http.StatusUnauthorized, wantCode: models.KindTokenExpired},
		{name: "invalid", parser: stubParser{err: auth.ErrInvalidToken}, header: "Bearer abc", wantStatus: http.StatusUnauthorized, wantCode: models.KindUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			protectedRouter(tt.parser).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
			} else {
				assert.Contains(t, w.Body.String(), "user-1")
			}
		})
	}
}

func TestJWTAuthMiddleware_RealTokens(t *testing.T) {
	tokens := auth.NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour)
	pair, err := tokens.IssuePair("507f1f77bcf86cd799439011")
	require.NoError(t, err)

	r := protectedRouter(tokens)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// a refresh token is not an access token
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAbortWithError_Internal(t *testing.T) {
	r := gin.New()
	r.GET("/boom", func(c *gin.Context) {
		AbortWithError(c, errors.New("disk on fire"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, models.KindInternal, body.Code)
	assert.Equal(t, "disk on fire", body.Message)
}

func TestIPRateLimiter(t *testing.T) {
	rl := NewIPRateLimiter(2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := rl.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, _ := rl.Allow(ctx, "a")
	assert.False(t, allowed)

	allowed, _ = rl.Allow(ctx, "b")
	assert.True(t, allowed, "keys are limited independently")
}

func TestIPRateLimiter_WindowSlides(t *testing.T) {
	rl := NewIPRateLimiter(1, 20*time.Millisecond)
	ctx := context.Background()

	allowed, _ := rl.Allow(ctx, "a")
	require.True(t, allowed)
	allowed, _ = rl.Allow(ctx, "a")
	require.False(t, allowed)

	time.Sleep(40 * time.Millisecond)
	allowed, _ = rl.Allow(ctx, "a")
	assert.True(t, allowed)
}

func TestIPRateLimiter_ForgetsIdleKeys(t *testing.T) {
	rl := NewIPRateLimiter(5, 10*time.Millisecond)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		_, err := rl.Allow(ctx, key)
		require.NoError(t, err)
	}
	time.Sleep(30 * time.Millisecond)

	_, err := rl.Allow(ctx, "d")
	require.NoError(t, err)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Len(t, rl.requests, 1)
	assert.Contains(t, rl.requests, "d")
}

func TestRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rl := NewRedisRateLimiter(rdb, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := rl.Allow(ctx, "ip:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := rl.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, allowed)

	assert.True(t, mr.Exists("rl:ip:1.2.3.4"))
	assert.Equal(t, time.Minute, mr.TTL("rl:ip:1.2.3.4"))

	mr.FastForward(time.Minute)
	allowed, err = rl.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_RestoresMissingWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	// counter whose EXPIRE never landed
	require.NoError(t, mr.Set("rl:ip:5.6.7.8", "10"))
	require.Zero(t, mr.TTL("rl:ip:5.6.7.8"))

	rl := NewRedisRateLimiter(rdb, 2, time.Minute)
	ctx := context.Background()

	allowed, err := rl.Allow(ctx, "ip:5.6.7.8")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, time.Minute, mr.TTL("rl:ip:5.6.7.8"))

	mr.FastForward(time.Minute)
	allowed, err = rl.Allow(ctx, "ip:5.6.7.8")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(NewIPRateLimiter(1, time.Minute)))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, models.KindRateLimited, decodeError(t, w).Code)
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	r := gin.New()
	r.Use(RateLimitMiddleware(NewRedisRateLimiter(rdb, 1, time.Minute)))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), RequestLogger(), Metrics())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}
