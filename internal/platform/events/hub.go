package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// StaffTopic receives every event.
const StaffTopic = "staff"

// PatientTopic receives the events of one patient.
func PatientTopic(patientID string) string {
	return "patient:" + patientID
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one connected subscriber. Its topics are fixed at connect time
// from the principal.
type Client struct {
	ID        string
	UserID    string
	PatientID string
	TokenID   string
	Topics    []string
	Send      chan []byte
	conn      Conn
}

// Hub tracks clients by topic. All methods are safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // topic -> clients
	all     map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.all[client] = struct{}{}
	for _, topic := range client.Topics {
		if h.clients[topic] == nil {
			h.clients[topic] = make(map[*Client]struct{})
		}
		h.clients[topic][client] = struct{}{}
	}
}

// Unregister removes the client and closes its Send channel. Unknown
// clients are ignored.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unregisterLocked(client)
}

func (h *Hub) unregisterLocked(client *Client) {
	if _, ok := h.all[client]; !ok {
		return
	}
	for _, topic := range client.Topics {
		if subs, ok := h.clients[topic]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.clients, topic)
			}
		}
	}
	delete(h.all, client)
	close(client.Send)
}

// Publish sends ev to staff subscribers and to subscribers of the event's
// patient. A client on both topics receives it once. Clients with a full
// buffer are skipped. A patient.deleted event also ends the streams of that
// patient's users, whose accounts the delete removed.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	h.mu.RLock()
	sent := make(map[*Client]struct{})
	for _, topic := range []string{StaffTopic, PatientTopic(ev.PatientID)} {
		for client := range h.clients[topic] {
			if _, dup := sent[client]; dup {
				continue
			}
			sent[client] = struct{}{}
			select {
			case client.Send <- data:
			default:
			}
		}
	}
	h.mu.RUnlock()

	if ev.Type == PatientDeleted && ev.PatientID != "" {
		h.disconnect(func(c *Client) bool { return c.PatientID == ev.PatientID })
	}
	return nil
}

// DisconnectToken ends every stream opened with tokenID and returns how many
// were closed.
func (h *Hub) DisconnectToken(tokenID string) int {
	if tokenID == "" {
		return 0
	}
	return h.disconnect(func(c *Client) bool { return c.TokenID == tokenID })
}

func (h *Hub) disconnect(match func(*Client) bool) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for client := range h.all {
		if match(client) {
			h.unregisterLocked(client)
			n++
		}
	}
	return n
}

// ClientCount returns the number of connected streams.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}
