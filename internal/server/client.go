// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents one WebSocket session. It carries the connection state,
// the outbound send channel, and the set of rooms the session has joined.
//
// The alive flag, the closed flag, and the rooms set are owned by the hub
// goroutine: they are only ever read or written on the hub's event loop.
type Client struct {
	conn           *websocket.Conn
	send           chan []byte
	hub            *Hub
	addr           string
	alive          bool
	closed         bool
	rooms          map[string]struct{}
	maxMessageSize int64
	limiter        *frameLimiter
	rateLimit      RateLimitConfig
	readWait       time.Duration
}

// NewClient creates a new Client for the given WebSocket connection. The send
// channel is buffered so room broadcasts never block on a slow peer.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		conn:           conn,
		send:           make(chan []byte, 256),
		hub:            hub,
		addr:           addr,
		alive:          true,
		rooms:          make(map[string]struct{}),
		maxMessageSize: cfg.MaxMessageSize,
		limiter:        newFrameLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		rateLimit:      cfg.RateLimit,
		readWait:       2 * cfg.HeartbeatInterval,
	}
}

// GetSendChan returns the client's send channel for reading outgoing messages.
// This channel is read-only from the caller's perspective.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// setupReadConnection configures the read deadline and the pong handler. A
// pong both extends the deadline and reports liveness to the hub, which is
// what keeps the connection out of the next heartbeat sweep's reap list.
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.readWait)); err != nil {
		log.Printf("Error setting initial read deadline for %s: %v", c.addr, err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.readWait)); err != nil {
			log.Printf("Error setting read deadline in pong handler for %s: %v", c.addr, err)
		}
		c.hub.notifyPong(c)
		return nil
	})
}

// handleReadError logs an appropriate message for a failed read. Every read
// error terminates the pump; this only decides how loudly to report it.
func (c *Client) handleReadError(err error) {
	if errors.Is(err, websocket.ErrReadLimit) {
		log.Printf("Message from %s exceeded maximum size of %d bytes", c.addr, c.maxMessageSize)
		return
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		log.Printf("Client %s disconnected: %v", c.addr, err)
		return
	}

	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		log.Printf("Client %s connection closed: %v", c.addr, err)
		return
	}

	log.Printf("WebSocket read error from %s: %v", c.addr, err)
}

// checkRateLimit verifies the session is within its frame budget and returns
// true if the frame should reach the hub.
func (c *Client) checkRateLimit() bool {
	if c.limiter != nil && !c.limiter.allowFrame() {
		log.Printf("Frame rate limit exceeded for %s (%d frames per %s); discarding frame", c.addr, c.rateLimit.Burst, c.rateLimit.RefillInterval)
		return false
	}
	return true
}

// readPump reads inbound frames and hands them to the hub for dispatch. It
// exits on any read error (including the forced close issued by the liveness
// sweep) and unregisters the client, which cleans up its room memberships.
func (c *Client) readPump() {
	defer func() {
		// The hub may already be shut down; never block on a dead loop.
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		if err := c.conn.Close(); err != nil {
			if !isExpectedCloseError(err) {
				log.Printf("Error closing connection in readPump: %v", err)
			}
		}
	}()

	c.setupReadConnection()

	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			break
		}

		if !c.checkRateLimit() {
			continue
		}

		select {
		case c.hub.inbound <- inboundMessage{client: c, payload: rawMessage}:
		case <-c.hub.ctx.Done():
			return
		}
	}
}

// writePump drains the send channel onto the socket. All routing decisions
// happen before a payload lands in the channel, so this loop only writes.
func (c *Client) writePump() {
	defer c.closeConnection()

	for message := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
			log.Printf("Error setting write deadline for %s: %v", c.addr, err)
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			if !isExpectedCloseError(err) {
				log.Printf("Error writing message to %s: %v", c.addr, err)
			}
			return
		}
	}

	// Channel closed: the hub unregistered this client.
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err == nil {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			if !isExpectedCloseError(err) {
				log.Printf("Error writing close message to %s: %v", c.addr, err)
			}
		}
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling.
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error closing connection in writePump: %v", err)
		}
	}
}
