package api

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"tickcast/pkg/api/errors"
	"tickcast/pkg/api/middleware"
	"tickcast/pkg/api/routes/status"
	"tickcast/pkg/config"
	"tickcast/pkg/enum"
	"tickcast/pkg/logger"

	cors "github.com/OnlyNico43/gin-cors"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the HTTP surface: status probe, websocket upgrade, metrics and
// the static page.
func NewRouter(cfg *config.Config, log *logger.Logger, wsHandler gin.HandlerFunc) (*gin.Engine, error) {
	router := gin.New()

	// Configure trusted proxies for security
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	router.RedirectTrailingSlash = true

	// without a frontend URL the page is only served same-origin from here
	if origins := cfg.AllowedOrigins(); len(origins) > 0 {
		log.PrintfInfo("Frontend URL for cors: %s", cfg.FrontendURL)
		router.Use(cors.CorsMiddleware(cors.Config{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET"},
			AllowedHeaders: []string{"Content-Length", "Content-Type"},
			ExposeHeaders:  []string{"Content-Length"},
			MaxAge:         12 * time.Hour,
		}))
	}
	router.Use(middleware.ConfigMiddleware(cfg))
	router.Use(gin.Recovery())

	statusEndpoints := router.Group("/status")
	{
		log.PrintfInfo("Registering status endpoints")
		status.RegisterStatusEndpoints(statusEndpoints, clockwork.NewRealClock())
	}

	wsEndpoints := router.Group("/ws")
	{
		log.PrintfInfo("Registering websocket endpoint")
		wsEndpoints.Use(middleware.LoggerMiddleware("WebSocket"))
		wsEndpoints.Use(middleware.RateLimiterMiddleware(cfg.ConnectRateLimit, cfg.ConnectRateWindow))
		wsEndpoints.GET("", wsHandler)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	registerStatic(router, cfg.StaticDir, log)

	router.NoRoute(func(c *gin.Context) {
		errors.Abort(c, http.StatusNotFound, enum.NotFound, c.Request.URL.Path)
	})

	return router, nil
}

func registerStatic(router *gin.Engine, dir string, log *logger.Logger) {
	if dir == "" {
		return
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		log.PrintfWarning("Static directory %q not found, page delivery disabled", dir)
		return
	}

	log.PrintfInfo("Serving static files from %s", dir)
	router.Static("/static", dir)
	index := filepath.Join(dir, "index.html")
	router.GET("/", func(c *gin.Context) {
		c.File(index)
	})
}
