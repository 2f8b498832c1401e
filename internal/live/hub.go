// Package live fans task and project changes out to websocket clients and
// in-process listeners so open dashboards can refresh.
package live

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	writeWait  = 10 * time.Second
)

// Event is one change notification.
type Event struct {
	Type   string `json:"type"`
	Entity string `json:"entity"`
	Op     string `json:"op"`
	ID     int64  `json:"id,omitempty"`
	At     string `json:"at"`
}

func NewEvent(entity, op string, id int64) Event {
	return Event{
		Type:   "change",
		Entity: entity,
		Op:     op,
		ID:     id,
		At:     time.Now().UTC().Format(time.RFC3339Nano),
	}
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

type Hub struct {
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu        sync.RWMutex
	clients   map[*client]struct{}
	listeners map[chan struct{}]struct{}
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:    logger,
		clients:   map[*client]struct{}{},
		listeners: map[chan struct{}]struct{}{},
	}
}

// Publish sends ev to every websocket client and wakes every listener.
// Clients that fail a write are dropped.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	for ch := range h.listeners {
		notify(ch)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(ev); err != nil {
			h.logger.Printf("live: dropping client: %v", err)
			h.remove(c)
		}
	}
}

// notify does not block: a pending signal already covers this change.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Listen returns a coalescing change signal and a func that unsubscribes.
func (h *Hub) Listen() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	h.listeners[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		_ = c.conn.Close()
	}
}

// HandleWebSocket upgrades the request and keeps the client until it goes
// away. Incoming messages are ignored.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("live: upgrade: %v", err)
		return
	}
	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	if err := c.send(Event{Type: "hello", At: time.Now().UTC().Format(time.RFC3339Nano)}); err != nil {
		h.remove(c)
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer h.remove(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		t := time.NewTicker(pingPeriod)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()
}

// Dial connects to a change feed and returns a coalescing signal that
// fires once per change event. The channel closes when ctx ends or the
// connection drops.
func Dial(ctx context.Context, url string) (<-chan struct{}, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	out := make(chan struct{}, 1)
	done := make(chan struct{})

	go closeWhen(ctx, done, conn)

	go func() {
		defer close(out)
		defer close(done)
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ev Event
			if err := json.Unmarshal(msg, &ev); err != nil || ev.Type != "change" {
				continue
			}
			notify(out)
		}
	}()
	return out, nil
}

// closeWhen closes c once ctx ends or done is closed.
func closeWhen(ctx context.Context, done <-chan struct{}, c io.Closer) {
	select {
	case <-ctx.Done():
	case <-done:
	}
	_ = c.Close()
}
