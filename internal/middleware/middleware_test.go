package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"troublebot-backend/internal/config"
	"troublebot-backend/internal/model"
	"troublebot-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func get(r http.Handler, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitPerIP(t *testing.T) {
	r := newRouter(RateLimit(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 2}))

	assert.Equal(t, http.StatusOK, get(r, "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, get(r, "10.0.0.1:1001").Code)

	w := get(r, "10.0.0.1:1002")
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, RateLimitMessage, body.Error)
	assert.Equal(t, model.StatusError, body.Status)
	assert.NotEmpty(t, body.Timestamp)

	// a different client has its own bucket
	assert.Equal(t, http.StatusOK, get(r, "10.0.0.2:1000").Code)
}

func TestRateLimitDisabled(t *testing.T) {
	r := newRouter(RateLimit(config.RateLimitConfig{Enabled: false, RequestsPerMinute: 1, Burst: 1}))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, get(r, "10.0.0.1:1000").Code)
	}
}

func TestIPLimiterEvictsIdle(t *testing.T) {
	l := newIPLimiter(60, 1)
	now := time.Date(2025, 7, 20, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("a"))
	now = now.Add(5 * time.Minute)
	assert.True(t, l.allow("b"))
	assert.Equal(t, 2, l.size())

	now = now.Add(6 * time.Minute)
	assert.Equal(t, 1, l.evict(limiterIdleTTL))
	assert.Equal(t, 1, l.size())
}

func TestIPLimiterDefaults(t *testing.T) {
	l := newIPLimiter(0, 0)
	assert.Equal(t, 60, l.burst)
}

func TestRequestLogger(t *testing.T) {
	require.NoError(t, logger.Init("info", "json"))
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	r := newRouter(RequestLogger())
	get(r, "10.0.0.1:1000")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/ping", entry["path"])
	assert.EqualValues(t, 200, entry["status"])
	assert.Equal(t, "request handled", entry["msg"])
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/echo", func(c *gin.Context) {
		data, err := c.GetRawData()
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.String(http.StatusOK, string(data))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("short")))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "short", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("much too long")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRequireToken(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		headers map[string]string
		status  int
	}{
		{"bearer", "secret", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
		{"header", "secret", map[string]string{TokenHeader: "secret"}, http.StatusOK},
		{"missing", "secret", nil, http.StatusUnauthorized},
		{"wrong", "secret", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"basic scheme", "secret", map[string]string{"Authorization": "Basic secret"}, http.StatusUnauthorized},
		{"unconfigured", "", map[string]string{TokenHeader: ""}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(RequireToken(tt.token))

			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusUnauthorized {
				var body model.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, UnauthorizedMessage, body.Error)
			}
		})
	}
}
