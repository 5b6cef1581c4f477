// Package gateway is the browser-facing transport: one WebSocket per client carrying commands in
// and events out, plus a few plain HTTP endpoints.
package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/kavya5cloud/studyroom/internal/assistant"
	"github.com/kavya5cloud/studyroom/internal/lobby"
	"github.com/kavya5cloud/studyroom/internal/session"
)

type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	// AllowedOrigins of "*" accepts every origin.
	AllowedOrigins []string
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  8 * 1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		AllowedOrigins:  []string{"*"},
	}
}

type Dependencies struct {
	Lobby     *lobby.Service
	Session   session.Dependencies
	Completer assistant.Completer
	Clock     clockwork.Clock
	// RequestTimeout bounds store and relay calls made for a single command.
	RequestTimeout time.Duration
}

type Handler struct {
	deps     Dependencies
	config   ConnectionConfig
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*Client]struct{}
	closing bool
	wg      sync.WaitGroup
}

func NewHandler(deps Dependencies, config ConnectionConfig) *Handler {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Session.Clock == nil {
		deps.Session.Clock = deps.Clock
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 10 * time.Second
	}
	h := &Handler{
		deps:    deps,
		config:  config,
		clients: make(map[*Client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  config.ReadBufferSize,
		WriteBufferSize: config.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Routes mounts /ws, /api/rooms and /health.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", h.ServeWS)
	mux.HandleFunc("GET /api/rooms", h.listRooms)
	mux.HandleFunc("GET /health", h.health)
	return mux
}

func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}
	h.wg.Add(1)
	h.mu.Unlock()
	defer h.wg.Done()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("failed to upgrade websocket connection", "error", err)
		return
	}
	c := newClient(h, conn)
	h.register(c)
	defer h.unregister(c)
	c.run()
}

// Shutdown disconnects every client and waits until their room sessions are released.
func (h *Handler) Shutdown() error {
	h.mu.Lock()
	h.closing = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.disconnect()
	}
	h.wg.Wait()
	return nil
}

func (h *Handler) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Handler) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	slog.Info("websocket client connected", "connection_id", c.id, "clients", len(h.clients))
}

func (h *Handler) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	slog.Info("websocket client disconnected", "connection_id", c.id, "clients", len(h.clients))
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(h.config.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(h.config.AllowedOrigins, origin)
}

func (h *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.deps.Lobby.ListRooms(r.Context())
	if err != nil {
		slog.Error("failed to list rooms", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorPayloadFor(err))
		return
	}
	writeJSON(w, http.StatusOK, RoomsPayload{Rooms: rooms})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "clients": h.ClientCount()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}
