package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Hub fans scheduling events out to every open SSE connection. Slow or
// closed clients are skipped rather than blocking the broadcast.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

// Register adds a connection to the broadcast set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a connection and signals its keep-alive loop to stop.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.done)
}

// ClientCount reports how many connections are currently open.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast serializes the event once and writes it to every live client.
func (h *Hub) Broadcast(event *Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case <-c.done:
		default:
			c.write(payload)
		}
	}
}

// Client is one SSE subscriber. The HTTP handler owns its lifecycle:
// NewClient, Register, KeepAlive until the request context ends, then
// Unregister.
type Client struct {
	w       http.ResponseWriter
	flusher http.Flusher
	done    chan struct{}
}

// NewClient prepares w for event streaming. Fails when the underlying
// writer cannot flush, which streaming requires.
func NewClient(_ *Hub, w http.ResponseWriter) (*Client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")

	return &Client{w: w, flusher: flusher, done: make(chan struct{})}, nil
}

func (c *Client) write(payload []byte) {
	fmt.Fprintf(c.w, "data: %s\n\n", payload)
	c.flusher.Flush()
}

// SendPing emits an SSE comment so proxies keep the connection open.
func (c *Client) SendPing() {
	select {
	case <-c.done:
	default:
		fmt.Fprint(c.w, ": ping\n\n")
		c.flusher.Flush()
	}
}

// KeepAlive pings on a fixed interval until the client is unregistered.
func (c *Client) KeepAlive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.SendPing()
		}
	}
}
