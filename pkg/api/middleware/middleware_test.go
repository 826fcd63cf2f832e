package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tickcast/pkg/config"
	"tickcast/pkg/enum"
	"tickcast/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(router http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLoggerMiddlewareSetsLogger(t *testing.T) {
	router := gin.New()
	router.Use(ConfigMiddleware(&config.Config{LogLevel: logger.DEBUG, LogFormat: "json"}))
	router.Use(LoggerMiddleware("Test"))

	var found bool
	router.GET("/", func(c *gin.Context) {
		raw, ok := c.Get("logger")
		_, found = raw.(*logger.Logger)
		assert.True(t, ok)
		c.Status(http.StatusNoContent)
	})

	w := perform(router, "10.0.0.1:1234")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, found)
}

func TestLoggerMiddlewareWithoutConfig(t *testing.T) {
	router := gin.New()
	router.Use(LoggerMiddleware("Test"))
	router.GET("/", func(c *gin.Context) {
		t.Fatal("handler must not run without config")
	})

	w := perform(router, "10.0.0.1:1234")

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(enum.ConfigError), body["error"])
}

func TestRateLimiterMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RateLimiterMiddleware(2, time.Hour))
	router.GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, perform(router, "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, perform(router, "10.0.0.1:1001").Code)

	w := perform(router, "10.0.0.1:1002")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(enum.TooManyRequests), body["error"])

	// other clients have their own budget
	assert.Equal(t, http.StatusOK, perform(router, "10.0.0.2:1000").Code)
}

func TestLimiterStoreSweepsIdleVisitors(t *testing.T) {
	store := newLimiterStore(1, time.Hour)
	start := time.Now()

	assert.True(t, store.allow("a", start))
	assert.False(t, store.allow("a", start))

	later := start.Add(rateLimiterExpiry + time.Second)
	assert.True(t, store.allow("b", later))

	store.mu.Lock()
	_, kept := store.visitors["a"]
	store.mu.Unlock()
	assert.False(t, kept)
}
