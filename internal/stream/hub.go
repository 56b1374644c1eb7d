// Package stream broadcasts published outcomes to WebSocket subscribers.
package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"garden-volume-watch/internal/domain"
	"garden-volume-watch/internal/observability"
	"garden-volume-watch/internal/publish"
)

const (
	sendBuffer   = 16
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

// Event is the JSON frame sent to subscribers for every published outcome.
type Event struct {
	ID      string                    `json:"id"`
	Message string                    `json:"message"`
	Outcome *domain.NormalizedOutcome `json:"outcome"`
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

// Hub keeps the set of connected subscribers. It implements publish.Publisher,
// so it can sit behind a MultiPublisher next to the primary destination.
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates an empty hub. Any origin may connect.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log:     log,
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and streams events until the peer disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan Event, sendBuffer)}
	h.add(c)
	h.log.Debug("stream client connected", zap.String("remote", conn.RemoteAddr().String()))

	go h.writeLoop(c)

	// Read until close; subscribers never send anything meaningful.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
	h.log.Debug("stream client disconnected", zap.String("remote", conn.RemoteAddr().String()))
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				h.log.Debug("stream write failed", zap.Error(err))
				h.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	observability.SetStreamClients(n)
}

// remove unregisters c and closes its send channel. Safe to call twice.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	observability.SetStreamClients(n)
}

// Publish queues the post for every subscriber. Subscribers whose buffer is
// full are dropped rather than blocking the watcher.
func (h *Hub) Publish(_ context.Context, post publish.Post) (string, error) {
	ev := Event{ID: uuid.NewString(), Message: post.Message, Outcome: post.Outcome}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("dropping slow stream client", zap.String("remote", c.conn.RemoteAddr().String()))
		h.remove(c)
	}
	return ev.ID, nil
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	observability.SetStreamClients(0)
}

// Verify interface compliance
var _ publish.Publisher = (*Hub)(nil)
