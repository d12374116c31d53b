package service

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/keeeal/quoth/server/common/log"
)

type WSClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func NewWSClient(conn *websocket.Conn) *WSClient {
	return &WSClient{conn: conn}
}

func (c *WSClient) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub fans quoth events out to subscribed websocket clients. A client whose
// write fails is dropped; subscribers are expected to reconnect.
type Hub struct {
	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: map[*WSClient]struct{}{}}
}

func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		_ = client.conn.Close()
	}
}

func (h *Hub) Broadcast(payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("marshal hub payload: %v", err)
		return
	}

	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if err := client.write(body); err != nil {
			h.Unregister(client)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
