package ratelimit

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRateLimitType(t *testing.T) {
	cases := map[string]RateLimitType{
		"/health":                              RateLimitTypeHealth,
		"/api/v1/admin/events":                 RateLimitTypeAdmin,
		"/api/v1/auth/login":                   RateLimitTypeAuth,
		"/api/v1/events/:id/reservations":      RateLimitTypeReservation,
		"/api/v1/events/:id/waitlist/position": RateLimitTypeReservation,
		"/api/v1/events/:id/seats":             RateLimitTypePublic,
		"/api/v1/me/logs":                      RateLimitTypeDefault,
	}
	for path, want := range cases {
		assert.Equal(t, want, getRateLimitType(path), path)
	}
}

func TestGetClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.RemoteAddr = "10.0.0.7:5123"
	assert.Equal(t, "10.0.0.7", getClientIP(c))

	c.Request.Header.Set("X-Real-IP", "192.0.2.4")
	assert.Equal(t, "192.0.2.4", getClientIP(c))

	c.Request.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	assert.Equal(t, "198.51.100.1", getClientIP(c))
}

func TestIsAllowedBypassesRedis(t *testing.T) {
	cfg := &Config{
		Enabled:             false,
		WindowDuration:      time.Minute,
		ReservationRequests: 20,
		WhitelistedIPs:      []string{"127.0.0.1"},
	}
	limiter := NewRateLimiter(nil, cfg)

	res, err := limiter.IsAllowed(context.Background(), "203.0.113.9", RateLimitTypeReservation)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 20, res.Limit)

	cfg.Enabled = true
	res, err = limiter.IsAllowed(context.Background(), "127.0.0.1", RateLimitTypeReservation)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
