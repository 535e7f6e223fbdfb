package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func rateLimitedRouter(config RateLimiterConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewRateLimiter(config).RateLimit())
	r.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doRequest(r *gin.Engine, remoteAddr string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remoteAddr
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitExhaustsBurst(t *testing.T) {
	// Refill slower than the test runs, so only the burst is available.
	r := rateLimitedRouter(RateLimiterConfig{
		Rate:  rate.Every(time.Hour),
		Burst: 2,
	})

	assert.Equal(t, http.StatusOK, doRequest(r, "10.0.0.1:5000"))
	assert.Equal(t, http.StatusOK, doRequest(r, "10.0.0.1:5000"))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(r, "10.0.0.1:5000"))
}

func TestRateLimitIsPerClient(t *testing.T) {
	r := rateLimitedRouter(RateLimiterConfig{
		Rate:  rate.Every(time.Hour),
		Burst: 1,
	})

	assert.Equal(t, http.StatusOK, doRequest(r, "10.0.0.1:5000"))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(r, "10.0.0.1:5000"))

	// A different client has its own bucket.
	assert.Equal(t, http.StatusOK, doRequest(r, "10.0.0.2:5000"))
}

func TestRateLimiterDefaults(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{})
	assert.Equal(t, rate.Limit(100), rl.config.Rate)
	assert.Equal(t, 200, rl.config.Burst)
}
