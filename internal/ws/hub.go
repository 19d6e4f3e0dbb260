package ws

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hearthos/shell/internal/infrastructure/logging"
	"github.com/hearthos/shell/internal/infrastructure/monitoring"
	"github.com/hearthos/shell/internal/shared/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Shell UI runs on the local session
	},
}

// subscriberBuffer bounds per-client queues; a subscriber that falls
// this far behind starts losing events rather than stalling the engine.
const subscriberBuffer = 64

// Hub manages WebSocket subscribers and implements the engine's
// Notifier interface.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan types.Event
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewHub creates a new subscriber hub.
func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]chan types.Event),
		logger:  logger,
	}
}

// WithMetrics adds metrics tracking to the hub.
func (h *Hub) WithMetrics(m *monitoring.Metrics) *Hub {
	h.metrics = m
	return h
}

// Notify queues an event for every subscriber without blocking the
// caller.
func (h *Hub) Notify(ev types.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.clients {
		select {
		case ch <- ev:
		default:
			h.logger.Warn("dropping event for slow subscriber",
				zap.String("type", string(ev.Type)))
		}
	}
	if h.metrics != nil && len(h.clients) > 0 {
		h.metrics.RecordWSMessage("out", string(ev.Type))
	}
}

// Subscribers returns the number of connected observers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleConnection upgrades an HTTP request and streams events until
// the client disconnects.
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ch := h.register(conn)
	defer h.unregister(conn)

	go func() {
		for ev := range ch {
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}()

	// Drain the read side to observe disconnection.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Hub) register(conn *websocket.Conn) chan types.Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan types.Event, subscriberBuffer)
	h.clients[conn] = ch
	if h.metrics != nil {
		h.metrics.IncWSConnections()
	}
	return ch
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(ch)
		if h.metrics != nil {
			h.metrics.DecWSConnections()
		}
	}
}
