package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tickcast/pkg/api"
	"tickcast/pkg/config"
	"tickcast/pkg/logger"
	"tickcast/pkg/registry"
	"tickcast/pkg/retry"
	"tickcast/pkg/scheduler"
	"tickcast/pkg/websocket"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load application configuration with default values
	cfg := config.LoadDefaultConfig()

	var logOpts []logger.Option
	if cfg.LogFormat == "json" {
		logOpts = append(logOpts, logger.WithJSONFormat())
	}
	log := logger.NewLogger(os.Stdout, "Main", cfg.LogLevel, "System", logOpts...)

	if err := cfg.Validate(); err != nil {
		log.PrintfError("%s", err)
		os.Exit(1)
	}

	if !cfg.DebugMode {
		log.PrintfInfo("Starting in release mode")
		gin.SetMode(gin.ReleaseMode)
	} else {
		log.PrintfInfo("Starting in debug mode")
		gin.SetMode(gin.DebugMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := registry.New()

	message, err := scheduler.TimestampMessage(cfg.MessageTemplate, cfg.TimeLayout)
	if err != nil {
		log.PrintfError("Invalid message format: %s", err)
		os.Exit(1)
	}

	sched := scheduler.New(
		reg,
		logger.NewLogger(os.Stdout, "Scheduler", cfg.LogLevel, "System", logOpts...),
		cfg.TickPeriod,
		scheduler.WithSendTimeout(cfg.SendTimeout),
		scheduler.WithMaxConcurrentSends(cfg.MaxConcurrentSends),
		scheduler.WithMessageFunc(message),
	)

	endpoint := websocket.NewEndpoint(reg, cfg, logger.NewLogger(os.Stdout, "WebSocket", cfg.LogLevel, "System", logOpts...))

	router, err := api.NewRouter(cfg, log, endpoint.Handle)
	if err != nil {
		log.PrintfError("Failed to build router: %s", err)
		os.Exit(1)
	}

	retryCfg := retry.DefaultRetryConfig()
	retryCfg.MaxAttempts = cfg.ListenRetryAttempts
	listen := retry.WithRetry(ctx, func() (net.Listener, error) {
		return net.Listen("tcp", ":"+cfg.Port)
	}, log, retryCfg)

	listener, err := listen()
	if err != nil {
		log.PrintfError("Failed to listen on port %s: %s", cfg.Port, err)
		os.Exit(1)
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.PrintfInfo("Starting server on port %s", cfg.Port)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	schedCtx, cancelSched := context.WithCancel(ctx)
	defer cancelSched()
	schedDone := make(chan error, 1)
	go func() {
		log.PrintfInfo("Broadcasting every %s", cfg.TickPeriod)
		schedDone <- sched.Run(schedCtx)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		log.PrintfInfo("Shutdown signal received")
	case err := <-serverErr:
		log.PrintfError("Server stopped: %s", err)
		exitCode = 1
	case err := <-schedDone:
		log.PrintfError("Scheduler stopped: %v", err)
		schedDone <- err
		exitCode = 1
	}

	cancelSched()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.PrintfWarning("HTTP server shutdown: %s", err)
	}

	endpoint.Shutdown("server shutting down")

	select {
	case <-schedDone:
	case <-shutdownCtx.Done():
		log.PrintfWarning("Scheduler did not stop within %s", cfg.ShutdownTimeout)
	}
	log.PrintfInfo("Scheduler %s, bye", sched.State())

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
