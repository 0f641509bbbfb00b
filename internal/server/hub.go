// Package server coordinates client registration, room membership, message
// dispatch, and connection liveness for the colab service via the Hub type.
package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// inboundMessage carries one raw client frame into the hub's event loop.
type inboundMessage struct {
	client  *Client
	payload []byte
}

// Hub owns every live connection and the room store. All mutations of either
// happen on the Run goroutine: clients deliver frames over the inbound
// channel, pongs arrive over the pong channel, and the heartbeat ticker fires
// in the same select. Nothing here needs a lock because nothing here is ever
// touched from two goroutines.
type Hub struct {
	clients    map[*Client]struct{}
	rooms      *RoomStore
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundMessage
	pong       chan *Client
	heartbeat  time.Duration
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a Hub ready to manage connections and rooms. The heartbeat
// cadence is taken from the active configuration.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      NewRoomStore(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundMessage),
		pong:       make(chan *Client, 256),
		heartbeat:  currentConfig().HeartbeatInterval,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// GetRegisterChan returns the channel used for registering new clients.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering clients.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// notifyPong reports a heartbeat reply. Called from the connection's read
// goroutine; the send must never block, and a dropped notification only
// delays liveness confirmation until the client's next pong.
func (h *Hub) notifyPong(c *Client) {
	select {
	case h.pong <- c:
	default:
	}
}

// Run is the hub's event loop. It should be started in its own goroutine and
// runs until Shutdown cancels it.
func (h *Hub) Run() {
	defer close(h.done)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				log.Printf("Received nil client registration; skipping")
				continue
			}
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case client := <-h.pong:
			if _, ok := h.clients[client]; ok {
				client.alive = true
			}

		case msg := <-h.inbound:
			h.dispatch(msg.client, msg.payload)

		case <-ticker.C:
			h.sweepConnections()
		}
	}
}

func (h *Hub) addClient(c *Client) {
	c.closed = false
	c.alive = true
	h.clients[c] = struct{}{}
	log.Printf("Client registered from %s. Total clients: %d", c.addr, len(h.clients))

	if c.conn != nil {
		h.wg.Add(2)
		go func() {
			defer h.wg.Done()
			c.writePump()
		}()
		go func() {
			defer h.wg.Done()
			c.readPump()
		}()
	}

	h.broadcastStats()
}

// removeClient discards the connection record and leaves every room the
// client belonged to, exactly as an explicit LEAVE_ROOM would. Idempotent:
// the liveness sweep and the read pump may both report the same client.
func (h *Hub) removeClient(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.closed = true

	for roomID := range c.rooms {
		h.rooms.Leave(c, roomID)
	}
	c.rooms = make(map[string]struct{})

	close(c.send)
	log.Printf("Client unregistered from %s. Total clients: %d", c.addr, len(h.clients))

	h.broadcastStats()
}

// sweepConnections is the liveness monitor tick: connections that never
// acknowledged the previous ping are terminated, everyone else is re-armed
// and pinged again. Detection latency is therefore bounded by two intervals.
func (h *Hub) sweepConnections() {
	for _, c := range h.clientSnapshot() {
		if !c.alive {
			log.Printf("Client %s failed heartbeat check; terminating", c.addr)
			if c.conn != nil {
				if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
					log.Printf("Error closing dead connection from %s: %v", c.addr, err)
				}
			}
			h.removeClient(c)
			continue
		}

		c.alive = false
		if c.conn != nil {
			deadline := time.Now().Add(10 * time.Second)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error writing ping to %s: %v", c.addr, err)
				}
			}
		}
	}
}

// dispatch validates and routes one inbound frame. Structurally invalid input
// is dropped without a reply; only semantically invalid input (an unknown
// room on join) earns an ERROR message.
func (h *Hub) dispatch(c *Client, payload []byte) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		log.Printf("Invalid message from %s: %v", c.addr, err)
		return
	}

	switch env.Type {
	case TypeCreateRoom:
		if env.Username == "" {
			return
		}
		h.handleCreateRoom(c, env)
	case TypeJoinRoom:
		if env.RoomID == "" || env.Username == "" {
			return
		}
		h.handleJoinRoom(c, env)
	case TypeSendMessage:
		if env.RoomID == "" || env.Message == nil || env.From == "" {
			return
		}
		h.handleSendMessage(c, env)
	case TypeRenameRoom:
		if env.RoomID == "" || env.NewName == "" {
			return
		}
		h.handleRenameRoom(env)
	case TypeCloseRoom:
		if env.RoomID == "" {
			return
		}
		h.handleCloseRoom(env)
	case TypeLeaveRoom:
		if env.RoomID == "" || env.Username == "" {
			return
		}
		h.handleLeaveRoom(c, env)
	case TypeCursorMoved:
		if env.RoomID == "" || env.Username == "" || len(env.Cursor) == 0 {
			return
		}
		h.handleCursorMoved(c, env)
	case TypeDisconnect:
		h.handleDisconnect(c)
	default:
		log.Printf("Unknown message type %q from %s; dropping", env.Type, c.addr)
	}
}

func (h *Hub) handleCreateRoom(c *Client, env Envelope) {
	room := h.rooms.Create(c, env.RoomName)
	c.rooms[room.ID] = struct{}{}

	h.sendTo(c, roomCreatedMsg{Type: TypeRoomCreated, RoomID: room.ID, RoomName: room.Name})
	h.broadcastStats()
}

func (h *Hub) handleJoinRoom(c *Client, env Envelope) {
	if h.isKicked(c.addr, env.RoomID) {
		h.sendTo(c, errorMsg{Type: TypeError, Message: "You have been kicked from this room."})
		return
	}

	room, err := h.rooms.Join(c, env.RoomID)
	if err != nil {
		h.sendTo(c, errorMsg{Type: TypeError, Message: "Room not found"})
		return
	}
	c.rooms[room.ID] = struct{}{}

	// Creator status is only ever reported through ROOM_CREATED; a joiner is
	// never recognized as creator, reconnects included.
	h.sendTo(c, joinedRoomMsg{
		Type:     TypeJoinedRoom,
		RoomID:   room.ID,
		Text:     room.Text,
		RoomName: room.Name,
	})
	h.broadcastToRoom(room, newMemberMsg{Type: TypeNewMember, RoomID: room.ID}, c)
	h.broadcastStats()
}

func (h *Hub) handleSendMessage(_ *Client, env Envelope) {
	room, ok := h.rooms.Get(env.RoomID)
	if !ok {
		return
	}
	h.rooms.SetText(room.ID, *env.Message)
	h.broadcastToRoom(room, messageMsg{
		Type:    TypeMessage,
		RoomID:  room.ID,
		Message: *env.Message,
		From:    env.From,
	}, nil)
}

func (h *Hub) handleRenameRoom(env Envelope) {
	room, ok := h.rooms.Get(env.RoomID)
	if !ok {
		return
	}
	h.rooms.Rename(room.ID, env.NewName)
	h.broadcastToRoom(room, roomRenamedMsg{Type: TypeRoomRenamed, RoomID: room.ID, NewName: env.NewName}, nil)
}

func (h *Hub) handleCloseRoom(env Envelope) {
	room, ok := h.rooms.Get(env.RoomID)
	if !ok {
		return
	}

	// Notify before deletion: the membership list dies with the room.
	members := room.Members()
	h.broadcastToRoom(room, roomClosedMsg{Type: TypeRoomClosed, RoomID: room.ID}, nil)
	h.rooms.Close(room.ID)
	for _, member := range members {
		delete(member.rooms, room.ID)
	}
	h.broadcastStats()
}

func (h *Hub) handleLeaveRoom(c *Client, env Envelope) {
	if _, ok := h.rooms.Get(env.RoomID); !ok {
		return
	}
	h.rooms.Leave(c, env.RoomID)
	delete(c.rooms, env.RoomID)

	h.sendTo(c, leftRoomMsg{Type: TypeLeftRoom, RoomID: env.RoomID})
	h.broadcastStats()
}

func (h *Hub) handleCursorMoved(c *Client, env Envelope) {
	room, ok := h.rooms.Get(env.RoomID)
	if !ok {
		return
	}
	// Relayed verbatim; the position is opaque to the server.
	h.broadcastToRoom(room, cursorMovedMsg{
		Type:     TypeCursorMoved,
		RoomID:   room.ID,
		Cursor:   env.Cursor,
		Username: env.Username,
	}, c)
}

// handleDisconnect leaves every joined room while keeping the socket open.
func (h *Hub) handleDisconnect(c *Client) {
	for roomID := range c.rooms {
		h.rooms.Leave(c, roomID)
	}
	c.rooms = make(map[string]struct{})
	h.broadcastStats()
}

// isKicked reports whether the address is banned from the room. Extension
// point; nothing marks anyone as kicked yet.
func (h *Hub) isKicked(addr, roomID string) bool {
	_ = addr
	_ = roomID
	return false
}

// sendTo marshals and queues one message for a single client. Sends are
// fire-and-forget: a full buffer drops the message rather than blocking the
// event loop.
func (h *Hub) sendTo(c *Client, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("Error marshaling message for %s: %v", c.addr, err)
		return
	}
	h.sendPayload(c, payload)
}

func (h *Hub) sendPayload(c *Client, payload []byte) {
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
		log.Printf("Send buffer full for %s; dropping message", c.addr)
	}
}

// broadcastToRoom sends one message to every member of the room except the
// excluded client. Iterates a membership snapshot so a mid-broadcast
// membership change cannot disturb the loop.
func (h *Hub) broadcastToRoom(room *Room, v any, except *Client) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("Error marshaling broadcast for room %s: %v", room.ID, err)
		return
	}
	for _, member := range room.Members() {
		if member == except {
			continue
		}
		h.sendPayload(member, payload)
	}
}

func (h *Hub) clientSnapshot() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// shutdownClients closes all active client connections. The send channels
// are closed here as well so every write pump drains and exits; the regular
// unregister path no longer runs once the event loop stops.
func (h *Hub) shutdownClients() {
	log.Println("Shutting down all client connections...")

	clients := h.clientSnapshot()
	for _, client := range clients {
		delete(h.clients, client)
		client.closed = true
		close(client.send)
		if client.conn != nil {
			if err := client.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error closing client connection from %s: %v", client.addr, err)
				}
			}
		}
	}

	log.Printf("Closed %d client connections", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all client
// goroutines to complete, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
