package middleware

import (
	"net/http"
	"os"

	"tickcast/pkg/api/errors"
	"tickcast/pkg/config"
	"tickcast/pkg/enum"
	"tickcast/pkg/logger"

	"github.com/gin-gonic/gin"
)

func LoggerMiddleware(module_name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg, ok := c.Get("config")
		if !ok {
			errors.Abort(c, http.StatusInternalServerError, enum.ConfigError, "Config not found in context")
			return
		}

		config, ok := cfg.(*config.Config)
		if !ok {
			errors.Abort(c, http.StatusInternalServerError, enum.ConfigError, "Config is not of type *config.Config")
			return
		}

		var opts []logger.Option
		if config.LogFormat == "json" {
			opts = append(opts, logger.WithJSONFormat())
		}

		c.Set("logger", logger.NewLogger(os.Stdout, module_name, config.LogLevel, c.ClientIP(), opts...))
		c.Next()
	}
}
