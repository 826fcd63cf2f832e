package websocket

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sync"

	apiErrors "tickcast/pkg/api/errors"
	"tickcast/pkg/config"
	"tickcast/pkg/enum"
	"tickcast/pkg/logger"
	"tickcast/pkg/metrics"
	"tickcast/pkg/registry"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Endpoint accepts WebSocket connections and keeps the registry in step with
// their lifecycle.
//
// The endpoint owns every open Client until its connection is cleaned up, so
// Shutdown also reaches clients that are no longer registered for broadcast.
type Endpoint struct {
	registry       *registry.Registry
	logger         *logger.Logger
	upgrader       websocket.Upgrader
	maxConnections int

	mu      sync.Mutex
	clients map[string]*Client
	// handshakes that hold a connection slot but are not in clients yet
	pending int
}

func NewEndpoint(reg *registry.Registry, cfg *config.Config, log *logger.Logger) *Endpoint {
	return &Endpoint{
		registry: reg,
		logger:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     NewCheckOrigin(cfg.AllowedOrigins(), cfg.DebugMode, log),
			Error:           writeUpgradeError,
		},
		maxConnections: cfg.MaxConnections,
		clients:        make(map[string]*Client),
	}
}

// Handle upgrades the request and registers the new client.
func (e *Endpoint) Handle(c *gin.Context) {
	log := e.requestLogger(c)

	if !e.reserve() {
		log.PrintfWarning("Rejecting connection: limit of %d clients reached", e.maxConnections)
		metrics.ConnectionsTotal.WithLabelValues("rejected").Inc()
		apiErrors.Abort(c, http.StatusServiceUnavailable, enum.CapacityReached, "The server has reached its connection limit")
		return
	}

	log.PrintfDebug("Upgrading connection to websocket")

	conn, err := e.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		e.release()
		// the upgrader has already replied with an HTTP error
		log.PrintfError("Failed to upgrade connection to websocket: %s", err.Error())
		metrics.ConnectionsTotal.WithLabelValues("upgrade_failed").Inc()
		c.Abort()
		return
	}

	client := newClient(uuid.NewString(), conn, e.registry, log, e.forget)
	e.track(client)
	metrics.ConnectedClients.Inc()
	e.registry.Add(client)
	metrics.ConnectionsTotal.WithLabelValues("accepted").Inc()

	go client.readMessages()
	go client.writePings()

	client.logger.PrintfInfo("Client connected")
}

// Shutdown closes every open client, registered or not, and returns how many
// were closed.
func (e *Endpoint) Shutdown(reason string) int {
	e.mu.Lock()
	clients := make([]*Client, 0, len(e.clients))
	for _, client := range e.clients {
		clients = append(clients, client)
	}
	e.mu.Unlock()

	for _, client := range clients {
		client.closeGraceful(reason)
	}
	e.logger.PrintfInfo("Closed %d client connections: %s", len(clients), reason)
	return len(clients)
}

// reserve takes a connection slot for a handshake in progress.
func (e *Endpoint) reserve() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.maxConnections > 0 && len(e.clients)+e.pending >= e.maxConnections {
		return false
	}
	e.pending++
	return true
}

func (e *Endpoint) release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending--
}

// track turns the reserved slot into an open client.
func (e *Endpoint) track(client *Client) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending--
	e.clients[client.id] = client
}

func (e *Endpoint) forget(client *Client) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.clients, client.id)
}

// Open reports how many client connections are currently open.
func (e *Endpoint) Open() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.clients)
}

// writeUpgradeError replies to a failed handshake with the ApiError envelope.
func writeUpgradeError(w http.ResponseWriter, _ *http.Request, status int, reason error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiErrors.ApiError{
		Code:    status,
		Error:   enum.UpgradeFailed,
		Details: reason.Error(),
	})
}

func (e *Endpoint) requestLogger(c *gin.Context) *logger.Logger {
	if raw, ok := c.Get("logger"); ok {
		if log, ok := raw.(*logger.Logger); ok {
			return log
		}
	}
	return e.logger
}

// NewCheckOrigin allows requests without an Origin header, requests from one of
// allowed, and localhost origins when debug is set.
func NewCheckOrigin(allowed []string, debug bool, log *logger.Logger) func(r *http.Request) bool {
	origins := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if normalized := extractOrigin(o); normalized != "" {
			origins[normalized] = struct{}{}
		}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := origins[extractOrigin(origin)]; ok {
			return true
		}
		if debug && isLocalhostOrigin(origin) {
			return true
		}
		// same-origin page served by this process
		if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
			return true
		}

		log.PrintfWarning("WebSocket origin rejected: %s from %s", origin, r.RemoteAddr)
		return false
	}
}

func extractOrigin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}
