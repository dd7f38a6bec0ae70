package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mekedron/otter-menusync/internal/logging"
)

const (
	clientSendBuffer = 16
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
)

type hubClient struct {
	id           string
	restaurantID string
	send         chan []byte
}

// Hub streams sync events to connected WebSocket clients. Clients may pass
// ?restaurant_id= to receive only events for one restaurant.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*hubClient]struct{}
}

// NewHub creates a hub. checkOrigin may be nil to accept every origin.
func NewHub(logger *slog.Logger, checkOrigin func(r *http.Request) bool) *Hub {
	if logger == nil {
		logger = logging.Discard()
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger:  logger,
		clients: map[*hubClient]struct{}{},
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish sends event to every matching client. Clients with a full buffer are dropped.
func (h *Hub) Publish(_ context.Context, event SyncEvent) error {
	payload, err := json.Marshal(Message{
		Type:      MessageTypeSync,
		Action:    string(event.Status),
		Data:      event,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode sync event: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if client.restaurantID != "" && client.restaurantID != event.RestaurantID {
			continue
		}
		select {
		case client.send <- payload:
		default:
			h.logger.Warn("dropping slow websocket client", "client_id", client.id)
			h.removeLocked(client)
		}
	}
	return nil
}

// ServeHTTP upgrades the request and streams events until the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	client := &hubClient{
		id:           uuid.NewString(),
		restaurantID: r.URL.Query().Get("restaurant_id"),
		send:         make(chan []byte, clientSendBuffer),
	}
	greeting, _ := json.Marshal(Message{
		Type:   MessageTypeConnection,
		Action: "connected",
		Data: map[string]string{
			"client_id":     client.id,
			"restaurant_id": client.restaurantID,
		},
		Timestamp: time.Now().UTC(),
	})
	client.send <- greeting

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("websocket connected", "client_id", client.id, "restaurant_id", client.restaurantID)

	go h.writePump(conn, client)
	h.readPump(conn, client)
}

// readPump discards inbound messages and detects disconnects.
func (h *Hub) readPump(conn *websocket.Conn, client *hubClient) {
	defer func() {
		h.remove(client)
		_ = conn.Close()
		h.logger.Info("websocket disconnected", "client_id", client.id)
	}()
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, client *hubClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case payload, ok := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Warn("websocket write failed", "client_id", client.id, "err", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(client *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *hubClient) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.removeLocked(client)
	}
}
