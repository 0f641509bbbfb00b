// Package server defines the wire protocol exchanged with clients and utility
// helpers that are reused across client and hub logic.
package server

import (
	"encoding/json"
	"strings"
)

// Inbound message kinds.
const (
	TypeCreateRoom  = "CREATE_ROOM"
	TypeJoinRoom    = "JOIN_ROOM"
	TypeSendMessage = "SEND_MESSAGE"
	TypeRenameRoom  = "RENAME_ROOM"
	TypeCloseRoom   = "CLOSE_ROOM"
	TypeLeaveRoom   = "LEAVE_ROOM"
	TypeCursorMoved = "CURSOR_MOVED"
	TypeDisconnect  = "DISCONNECT"
)

// Outbound message kinds.
const (
	TypeRoomCreated = "ROOM_CREATED"
	TypeJoinedRoom  = "JOINED_ROOM"
	TypeNewMember   = "NEW_MEMBER"
	TypeMessage     = "MESSAGE"
	TypeRoomRenamed = "ROOM_RENAMED"
	TypeRoomClosed  = "ROOM_CLOSED"
	TypeLeftRoom    = "LEFT_ROOM"
	TypeStatsUpdate = "STATS_UPDATE"
	TypeError       = "ERROR"
)

// Envelope is the decoded form of every inbound client message. Only the
// fields relevant to the given Type are populated; the router validates the
// required ones per kind. Message is a pointer so an explicitly sent empty
// buffer can be told apart from an absent field.
type Envelope struct {
	Type     string          `json:"type"`
	RoomID   string          `json:"roomId"`
	Username string          `json:"username"`
	RoomName string          `json:"roomName"`
	Message  *string         `json:"message"`
	From     string          `json:"from"`
	NewName  string          `json:"newName"`
	Cursor   json.RawMessage `json:"cursor"`
}

type roomCreatedMsg struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
}

type joinedRoomMsg struct {
	Type      string `json:"type"`
	RoomID    string `json:"roomId"`
	Text      string `json:"text"`
	RoomName  string `json:"roomName"`
	IsCreator bool   `json:"isCreator"`
}

type newMemberMsg struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

type messageMsg struct {
	Type    string `json:"type"`
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
	From    string `json:"from"`
}

type roomRenamedMsg struct {
	Type    string `json:"type"`
	RoomID  string `json:"roomId"`
	NewName string `json:"newName"`
}

type roomClosedMsg struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

type leftRoomMsg struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

type cursorMovedMsg struct {
	Type     string          `json:"type"`
	RoomID   string          `json:"roomId"`
	Cursor   json.RawMessage `json:"cursor"`
	Username string          `json:"username"`
}

type statsUpdateMsg struct {
	Type              string `json:"type"`
	TotalParticipants int    `json:"totalParticipants"`
	ActiveRooms       int    `json:"activeRooms"`
}

type errorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
