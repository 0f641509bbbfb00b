// Package server holds the authoritative room state: membership, display
// name, and the current text buffer for each active room.
package server

import (
	"errors"

	"github.com/google/uuid"
)

// ErrRoomNotFound is returned when a room identifier is unknown.
var ErrRoomNotFound = errors.New("room not found")

// Room is a shared editing session. Members are kept in join order; the text
// buffer is the entire document and is replaced wholesale on every edit.
type Room struct {
	ID      string
	Name    string
	Text    string
	members []*Client
}

// Members returns a snapshot of the current membership. Broadcast loops must
// iterate the snapshot, never the live slice.
func (r *Room) Members() []*Client {
	return append([]*Client(nil), r.members...)
}

// MemberCount returns the number of members currently in the room.
func (r *Room) MemberCount() int {
	return len(r.members)
}

// RoomStore is the in-memory table of active rooms keyed by identifier.
// It is owned by the hub goroutine: every mutation happens on the hub's
// event loop, so no locking is needed here.
type RoomStore struct {
	rooms map[string]*Room
}

// NewRoomStore creates an empty room store.
func NewRoomStore() *RoomStore {
	return &RoomStore{rooms: make(map[string]*Room)}
}

// Create allocates a room with a fresh identifier, an empty text buffer, and
// the creator as sole member. The display name falls back to the identifier
// when none is supplied.
func (s *RoomStore) Create(creator *Client, name string) *Room {
	id := uuid.NewString()
	if name == "" {
		name = id
	}
	room := &Room{
		ID:      id,
		Name:    name,
		members: []*Client{creator},
	}
	s.rooms[id] = room
	return room
}

// Get looks up a room by identifier.
func (s *RoomStore) Get(id string) (*Room, bool) {
	room, ok := s.rooms[id]
	return room, ok
}

// Join appends the client to the room's membership and returns the room so
// the caller can reply with the current buffer and name. Returns
// ErrRoomNotFound for an unknown identifier.
func (s *RoomStore) Join(c *Client, id string) (*Room, error) {
	room, ok := s.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	room.members = append(room.members, c)
	return room, nil
}

// SetText wholesale-replaces the room's buffer. Last write wins; writes
// against an unknown room are silently ignored.
func (s *RoomStore) SetText(id, text string) {
	if room, ok := s.rooms[id]; ok {
		room.Text = text
	}
}

// Rename updates the room's display name. Returns false if the room is unknown.
func (s *RoomStore) Rename(id, name string) bool {
	room, ok := s.rooms[id]
	if !ok {
		return false
	}
	room.Name = name
	return true
}

// Leave removes the client from the room's membership. A room whose
// membership reaches zero is deleted immediately, buffer and name included.
// Returns true if the room was deleted.
func (s *RoomStore) Leave(c *Client, id string) bool {
	room, ok := s.rooms[id]
	if !ok {
		return false
	}

	kept := room.members[:0]
	for _, member := range room.members {
		if member != c {
			kept = append(kept, member)
		}
	}
	room.members = kept

	if len(room.members) == 0 {
		delete(s.rooms, id)
		return true
	}
	return false
}

// Close unconditionally deletes the room regardless of membership. Callers
// must notify members before calling Close since the membership list is
// destroyed with the room. Returns false if the room is unknown.
func (s *RoomStore) Close(id string) bool {
	if _, ok := s.rooms[id]; !ok {
		return false
	}
	delete(s.rooms, id)
	return true
}

// Len returns the number of active rooms.
func (s *RoomStore) Len() int {
	return len(s.rooms)
}
