package ws

import (
	"net/http"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/resolverd/resolverd/internal/infrastructure/logging"
	"github.com/resolverd/resolverd/internal/infrastructure/monitoring"
	"github.com/resolverd/resolverd/internal/profile"
	"github.com/resolverd/resolverd/internal/shortcut"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// Hub pushes settled resolution results to connected WebSocket clients.
type Hub struct {
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu      sync.RWMutex
	clients map[string]chan []byte
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[string]chan []byte),
	}
}

// WithMetrics adds metrics tracking to the hub.
func (h *Hub) WithMetrics(metrics *monitoring.Metrics) *Hub {
	h.metrics = metrics
	return h
}

// BroadcastResult pushes one settled resolution to every connected client.
func (h *Hub) BroadcastResult(result shortcut.Result) {
	h.broadcast("targets", result)
}

// BroadcastProfiles pushes the current profile snapshot to every connected
// client.
func (h *Hub) BroadcastProfiles(snap profile.Snapshot) {
	h.broadcast("profiles", snap)
}

// broadcast marshals the payload once and fans it out. Slow clients miss
// updates rather than stall the broadcast.
func (h *Hub) broadcast(kind string, data any) {
	payload, err := sonic.Marshal(gin.H{
		"type": kind,
		"data": data,
	})
	if err != nil {
		h.logger.Error("Broadcast marshal failed", zap.String("type", kind), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for clientID, send := range h.clients {
		select {
		case send <- payload:
		default:
			h.logger.Debug("Dropping update for slow client", zap.String("client", clientID))
		}
	}
}

// HandleConnection handles WebSocket upgrade and the connection lifecycle.
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	clientID := uuid.NewString()
	send := make(chan []byte, 16)

	h.mu.Lock()
	h.clients[clientID] = send
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.IncWSConnections()
	}
	h.logger.Debug("WebSocket client connected", zap.String("client", clientID))

	defer func() {
		h.mu.Lock()
		delete(h.clients, clientID)
		h.mu.Unlock()
		if h.metrics != nil {
			h.metrics.DecWSConnections()
		}
		h.logger.Debug("WebSocket client disconnected", zap.String("client", clientID))
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case payload := <-send:
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
