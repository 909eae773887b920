package ws

import (
	"sync"

	"golang.org/x/net/websocket"
)

type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: map[string]map[*Client]struct{}{}}
}

func (h *Hub) Subscribe(topic string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[topic]; !ok {
		h.subscribers[topic] = map[*Client]struct{}{}
	}
	h.subscribers[topic][client] = struct{}{}
	client.addTopic(topic)
}

func (h *Hub) UnsubscribeAll(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range client.listTopics() {
		if subs, ok := h.subscribers[topic]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscribers, topic)
			}
		}
	}
}

func (h *Hub) Publish(topic string, payload []byte) {
	h.mu.RLock()
	subs := h.subscribers[topic]
	h.mu.RUnlock()

	for c := range subs {
		c.send(payload)
	}
}

// Client is one websocket subscriber. Slow consumers are disconnected
// rather than allowed to block the hub.
type Client struct {
	conn *websocket.Conn
	out  chan []byte

	mu     sync.RWMutex
	closed bool
	topics map[string]struct{}
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		conn:   conn,
		out:    make(chan []byte, 64),
		topics: map[string]struct{}{},
	}
}

func (c *Client) send(payload []byte) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.out <- payload:
	default:
		_ = c.conn.Close()
	}
}

// shutdown closes the outbound channel once no publisher can reach it.
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.out)
}

func (c *Client) addTopic(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics[topic] = struct{}{}
}

func (c *Client) listTopics() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.topics))
	for topic := range c.topics {
		out = append(out, topic)
	}
	return out
}
