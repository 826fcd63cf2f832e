package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tickcast/pkg/config"
	"tickcast/pkg/enum"
	"tickcast/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(staticDir string) *config.Config {
	return &config.Config{
		LogLevel:          logger.ERROR,
		LogFormat:         "text",
		StaticDir:         staticDir,
		ConnectRateLimit:  2,
		ConnectRateWindow: time.Hour,
	}
}

func testRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewLogger(io.Discard, "Main", logger.ERROR, "System")

	router, err := NewRouter(cfg, log, func(c *gin.Context) {
		c.String(http.StatusOK, "upgraded")
	})
	require.NoError(t, err)
	return router
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.1.1.1:4000"
	router.ServeHTTP(w, req)
	return w
}

func TestRouterStatus(t *testing.T) {
	router := testRouter(t, testConfig(""))

	w := get(router, "/status/")

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouterMetrics(t *testing.T) {
	router := testRouter(t, testConfig(""))

	w := get(router, "/metrics")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestRouterRateLimitsWebSocketUpgrades(t *testing.T) {
	router := testRouter(t, testConfig(""))

	assert.Equal(t, http.StatusOK, get(router, "/ws").Code)
	assert.Equal(t, http.StatusOK, get(router, "/ws").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(router, "/ws").Code)

	// the status probe is not limited
	assert.Equal(t, http.StatusOK, get(router, "/status/").Code)
}

func TestRouterServesStaticPage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>tickcast</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log('hi')"), 0o644))
	router := testRouter(t, testConfig(dir))

	index := get(router, "/")
	require.Equal(t, http.StatusOK, index.Code)
	assert.True(t, strings.Contains(index.Body.String(), "tickcast"))

	asset := get(router, "/static/app.js")
	require.Equal(t, http.StatusOK, asset.Code)
	assert.Contains(t, asset.Body.String(), "console.log")
}

func TestRouterWithoutStaticDir(t *testing.T) {
	router := testRouter(t, testConfig(filepath.Join(t.TempDir(), "missing")))

	w := get(router, "/")

	require.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(enum.NotFound), body["error"])
}
