package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tickcast/pkg/api/middleware"
	"tickcast/pkg/config"
	"tickcast/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	router := gin.New()
	router.Use(middleware.ConfigMiddleware(&config.Config{LogLevel: logger.ERROR}))
	RegisterStatusEndpoints(router.Group("/status"), clock)

	clock.Advance(90 * time.Second)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "2024-06-01T12:01:30Z", body.Time)
	assert.InDelta(t, 90.0, body.UptimeSeconds, 0.001)
}
