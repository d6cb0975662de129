package notifications

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/nguyenvh/custodesk/internal/models"
)

const (
	// idleTimeout reaps sockets whose peer has gone completely silent.
	// Every inbound frame pushes it forward.
	idleTimeout = 8 * time.Hour

	// writeTimeout bounds a single outbound frame.
	writeTimeout = 10 * time.Second
)

// Event names pushed over the notification stream.
const (
	EventNotificationNew  = "notification.new"
	EventNotificationRead = "notification.read"
	EventNotificationSeen = "notification.seen"
)

// Event is one payload delivered to stream subscribers.
type Event struct {
	Event          string               `json:"event"`
	Notification   *models.Notification `json:"notification,omitempty"`
	NotificationID string               `json:"notification_id,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

// Hub fans notification events out to connected dashboard sessions,
// keyed by staff username. A user may hold several connections at once
// (multiple tabs); each gets its own buffered queue and slow consumers
// drop events rather than block the rest.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*client]struct{})}
}

// Serve upgrades the HTTP connection to a WebSocket and keeps it
// registered for username until the peer goes away.
func (h *Hub) Serve(username string, w http.ResponseWriter, r *http.Request) {
	server := websocket.Server{
		Handshake: func(config *websocket.Config, req *http.Request) error {
			config.Protocol = append(config.Protocol, "json")
			return nil
		},
		Handler: func(conn *websocket.Conn) {
			cl := &client{
				conn: conn,
				send: make(chan Event, 16),
			}

			h.addClient(username, cl)
			defer h.removeClient(username, cl)

			go h.writeLoop(cl)
			h.readLoop(cl)
		},
	}

	server.ServeHTTP(w, r)
}

// NotifyUser pushes a freshly persisted notification to the user's live
// sessions. Satisfies the dispatcher's Broadcaster contract.
func (h *Hub) NotifyUser(username string, notification models.Notification) {
	h.Broadcast(username, Event{
		Event:        EventNotificationNew,
		Notification: &notification,
	})
}

// Broadcast delivers an event to every live connection for username.
func (h *Hub) Broadcast(username string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for cl := range h.clients[username] {
		select {
		case cl.send <- event:
		default:
			// Drop for this connection rather than block the others.
		}
	}
}

// ConnectedUsers returns the usernames with at least one live session.
func (h *Hub) ConnectedUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]string, 0, len(h.clients))
	for username := range h.clients {
		users = append(users, username)
	}
	return users
}

func (h *Hub) addClient(username string, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[username] == nil {
		h.clients[username] = make(map[*client]struct{})
	}
	h.clients[username][cl] = struct{}{}
}

func (h *Hub) removeClient(username string, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients := h.clients[username]; clients != nil {
		delete(clients, cl)
		if len(clients) == 0 {
			delete(h.clients, username)
		}
	}
	close(cl.send)
	_ = cl.conn.Close()
}

func (h *Hub) writeLoop(cl *client) {
	for event := range cl.send {
		_ = cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := websocket.JSON.Send(cl.conn, event); err != nil {
			break
		}
	}
}

// readLoop drains client frames until the peer goes away. The idle deadline
// is pushed forward on every frame, so a dashboard that keeps pinging stays
// connected across shifts while a vanished peer is still reaped.
func (h *Hub) readLoop(cl *client) {
	defer cl.conn.Close()

	for {
		_ = cl.conn.SetReadDeadline(time.Now().Add(idleTimeout))
		var payload any
		if err := websocket.JSON.Receive(cl.conn, &payload); err != nil {
			break
		}
	}
}
