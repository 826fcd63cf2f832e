package status

import (
	"net/http"
	"time"

	"tickcast/pkg/api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

// RegisterStatusEndpoints serves a liveness probe. It reports process uptime
// and never looks at connected clients.
func RegisterStatusEndpoints(r *gin.RouterGroup, clock clockwork.Clock) {
	started := clock.Now()

	r.Use(middleware.LoggerMiddleware("Status"))
	r.GET("/", func(c *gin.Context) {
		getStatusController(c, clock, started)
	})
}

func getStatusController(c *gin.Context, clock clockwork.Clock, started time.Time) {
	now := clock.Now()
	c.JSON(http.StatusOK, StatusResponse{
		Status:        "ok",
		Time:          now.UTC().Format(time.RFC3339),
		UptimeSeconds: now.Sub(started).Seconds(),
	})
}
