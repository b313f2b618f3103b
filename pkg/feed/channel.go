// Package feed implements the live-event subscription used by chat sessions:
// one reconnectable websocket per (server, topic) pair. Delivery is
// at-least-once and unordered-safe; consumers must apply events
// idempotently. The channel performs no deduplication, no reordering and no
// automatic reconnect on silent network loss - owners re-open on re-entry.
package feed

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	chaterrors "github.com/lnbits/chat/pkg/errors"
	"github.com/lnbits/chat/pkg/logger"
)

// Path on which the server exposes live subscriptions.
const wsPath = "/api/v1/ws/"

// Handler consumes one raw frame. Returning an error marks the payload
// malformed: it is logged and dropped, the subscription survives.
type Handler func(payload []byte) error

// Channel is a live subscription handle for a single topic. At most one
// underlying connection is live per handle; Open on an already-open handle
// closes the previous connection first.
type Channel struct {
	topic string
	url   string
	log   *logger.Logger

	mu   sync.Mutex
	conn *websocket.Conn
	gen  int
}

// New builds a handle for topic against an http(s) base URL. No connection
// is made until Open.
func New(baseURL, topic string, log *logger.Logger) (*Channel, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("feed: parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = wsPath + topic
	if log == nil {
		log = logger.Nop()
	}
	return &Channel{topic: topic, url: u.String(), log: log}, nil
}

func (c *Channel) Topic() string { return c.topic }

// Open establishes the subscription and delivers every frame to handler
// from a dedicated goroutine. Calling Open again replaces the previous
// subscription without leaking it.
func (c *Channel) Open(ctx context.Context, handler Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.gen++

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", chaterrors.ErrTransport, c.topic, err)
	}
	c.conn = conn
	go c.readLoop(conn, c.gen, handler)
	return nil
}

// Close releases the transport. Safe to call repeatedly and on a handle
// that never opened or failed to open.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.gen++
}

func (c *Channel) readLoop(conn *websocket.Conn, gen int, handler Handler) {
	defer func() {
		c.mu.Lock()
		// Only clear state for the connection this loop owns; a re-opened
		// handle already points at a newer one.
		if c.gen == gen && c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			// Includes remote close and local Close. No automatic
			// reconnection here; the owner re-opens when it re-enters.
			return
		}
		if err := handler(payload); err != nil {
			c.log.Warnf("feed: dropping payload on %s: %v", c.topic, err)
		}
	}
}
