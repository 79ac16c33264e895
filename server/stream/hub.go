// Package stream pushes controller snapshots to websocket clients.
package stream

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/marcopiovanello/yt-dlp-remote/server/internal"
	"github.com/marcopiovanello/yt-dlp-remote/server/internal/session"
	middlewares "github.com/marcopiovanello/yt-dlp-remote/server/middleware"
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1 << 10,
	WriteBufferSize: 1 << 10,
}

type Snapshotter interface {
	Snapshot() internal.ProcessSnapshot
}

type client struct {
	send chan internal.ProcessSnapshot
}

type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	ctrl    Snapshotter
}

func NewHub(ctrl Snapshotter) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		ctrl:    ctrl,
	}
}

// Register subscribes the hub to every controller topic.
func (h *Hub) Register(bus EventBus.Bus) error {
	for _, topic := range []string{session.TopicProgress, session.TopicState, session.TopicFinished} {
		if err := bus.Subscribe(topic, h.Broadcast); err != nil {
			return err
		}
	}
	return nil
}

// Broadcast runs on the publisher's goroutine and must never block it.
// A slow client loses its oldest queued frame.
func (h *Hub) Broadcast(snap internal.ProcessSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		c.offer(snap)
	}
}

func (c *client) offer(snap internal.ProcessSnapshot) {
	select {
	case c.send <- snap:
		return
	default:
	}

	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- snap:
	default:
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add() *client {
	c := &client{send: make(chan internal.ProcessSnapshot, sendBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	return c
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *Hub) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.Any("err", err))
		return
	}
	defer conn.Close()

	c := h.add()
	defer h.remove(c)

	// the current state goes first so a new client never starts blank
	c.offer(h.ctrl.Snapshot())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case snap := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				slog.Debug("websocket write failed", slog.Any("err", err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func ApplyRouter(h *Hub) func(chi.Router) {
	return func(r chi.Router) {
		r.Use(middlewares.ApplyAuthenticationByConfig)
		r.Get("/ws", h.WebSocket)
	}
}
