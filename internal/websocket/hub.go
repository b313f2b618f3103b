package websocket

import "sync"

// Hub tracks live subscription connections by topic and fans broadcast
// payloads out to them.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[*Client]struct{})}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subscribers, ok := h.topics[client.Topic]
	if !ok {
		subscribers = make(map[*Client]struct{})
		h.topics[client.Topic] = subscribers
	}
	subscribers[client] = struct{}{}
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subscribers, ok := h.topics[client.Topic]
	if !ok {
		return
	}
	if _, registered := subscribers[client]; !registered {
		return
	}
	delete(subscribers, client)
	if len(subscribers) == 0 {
		delete(h.topics, client.Topic)
	}
	close(client.Send)
}

// Broadcast sends a payload to every connection on a topic.
func (h *Hub) Broadcast(topic string, payload []byte) {
	h.mu.RLock()
	for c := range h.topics[topic] {
		c.SendMessage(payload)
	}
	h.mu.RUnlock()
}

func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
