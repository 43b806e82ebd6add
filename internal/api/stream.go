package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ClassifyEvent describes websocket payloads emitted as emails are triaged.
type ClassifyEvent struct {
	Type       string    `json:"type"`
	RequestID  string    `json:"request_id"`
	Category   string    `json:"category,omitempty"`
	Intent     string    `json:"intent,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Source     string    `json:"source,omitempty"`
	Language   string    `json:"language,omitempty"`
	Message    string    `json:"message,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// wsClient wraps a websocket connection with write locking.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// ClassifyNotifier keeps track of active websocket clients and broadcasts
// classification events.
type ClassifyNotifier struct {
	mu        sync.Mutex
	clients   map[*wsClient]struct{}
	lastEvent *ClassifyEvent
}

// NewClassifyNotifier constructs a notifier instance.
func NewClassifyNotifier() *ClassifyNotifier {
	return &ClassifyNotifier{clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection and returns a client handle. New
// clients immediately receive the most recent event so dashboards have
// something to show before the next classification.
func (n *ClassifyNotifier) Register(conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	n.mu.Lock()
	n.clients[client] = struct{}{}
	last := n.lastEvent
	n.mu.Unlock()

	if last != nil {
		_ = client.writeJSON(*last)
	}
	return client
}

// Unregister removes the websocket client from the notifier and closes the socket.
func (n *ClassifyNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// Broadcast sends the supplied event to all registered websocket clients.
func (n *ClassifyNotifier) Broadcast(event ClassifyEvent) {
	event.Timestamp = time.Now().UTC()

	n.mu.Lock()
	if event.Type == "classified" {
		snapshot := event
		n.lastEvent = &snapshot
	}
	for client := range n.clients {
		if err := client.writeJSON(event); err != nil {
			delete(n.clients, client)
			_ = client.conn.Close()
		}
	}
	n.mu.Unlock()
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}

func (n *ClassifyNotifier) LastEvent() *ClassifyEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lastEvent == nil {
		return nil
	}
	copy := *n.lastEvent
	return &copy
}
