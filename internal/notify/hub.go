package notify

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub fans persisted notifications out to connected websocket clients. Each
// client registers under its resolved contact identifier (the directory
// email), giving every user a private destination.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[string]map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.With(slog.String("component", "notification_hub")),
	}
}

// Subscribe upgrades the HTTP request to a websocket and registers the
// connection under the given address. It blocks until the client closes.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, address string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	h.register(address, conn)
	defer h.unregister(address, conn)

	h.logger.Debug("client subscribed", "address", address)

	// Reads only serve to detect the close; inbound frames are discarded.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

// Push sends the payload to every connection registered for the address.
// An address with no connections is a successful no-op: real-time delivery
// is best effort for online clients, the persisted row is the source of
// truth.
func (h *Hub) Push(address string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients[address]))
	for conn := range h.clients[address] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Warn("failed to push to client, dropping connection",
				"address", address,
				"error", err)
			h.unregister(address, conn)
		}
	}
	return nil
}

func (h *Hub) register(address string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[address] == nil {
		h.clients[address] = make(map[*websocket.Conn]struct{})
	}
	h.clients[address][conn] = struct{}{}
}

func (h *Hub) unregister(address string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[address]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.clients, address)
		}
	}
	_ = conn.Close()
}
