// Unit tests for the room store: creation, membership, buffer replacement,
// and the empty-room reaping invariant.
package server

import (
	"errors"
	"testing"
)

// TestCreateRoomDefaultsNameToIdentifier verifies that a room created without
// a display name falls back to its own identifier.
func TestCreateRoomDefaultsNameToIdentifier(t *testing.T) {
	store := NewRoomStore()
	creator := NewClient(nil, nil, "127.0.0.1:1000")

	room := store.Create(creator, "")

	if room.ID == "" {
		t.Fatal("Create returned a room with an empty identifier")
	}
	if room.Name != room.ID {
		t.Errorf("Expected default name %q, got %q", room.ID, room.Name)
	}
	if room.Text != "" {
		t.Errorf("Expected empty initial buffer, got %q", room.Text)
	}
	if room.MemberCount() != 1 {
		t.Errorf("Expected creator as sole member, got %d members", room.MemberCount())
	}
}

// TestCreateRoomWithName verifies that a supplied display name is kept and
// that identifiers are unique across rooms.
func TestCreateRoomWithName(t *testing.T) {
	store := NewRoomStore()
	creator := NewClient(nil, nil, "127.0.0.1:1000")

	first := store.Create(creator, "design docs")
	second := store.Create(creator, "design docs")

	if first.Name != "design docs" {
		t.Errorf("Expected name %q, got %q", "design docs", first.Name)
	}
	if first.ID == second.ID {
		t.Error("Two rooms received the same identifier")
	}
	if store.Len() != 2 {
		t.Errorf("Expected 2 active rooms, got %d", store.Len())
	}
}

// TestJoinUnknownRoom verifies that joining a never-created identifier fails
// with ErrRoomNotFound and creates nothing.
func TestJoinUnknownRoom(t *testing.T) {
	store := NewRoomStore()
	client := NewClient(nil, nil, "127.0.0.1:1000")

	if _, err := store.Join(client, "no-such-room"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("Expected ErrRoomNotFound, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Failed join must not create rooms, store has %d", store.Len())
	}
}

// TestJoinReturnsCurrentBuffer verifies that a joiner sees exactly the last
// written text, not any earlier version.
func TestJoinReturnsCurrentBuffer(t *testing.T) {
	store := NewRoomStore()
	creator := NewClient(nil, nil, "127.0.0.1:1000")
	joiner := NewClient(nil, nil, "127.0.0.1:2000")

	room := store.Create(creator, "notes")
	store.SetText(room.ID, "first draft")
	store.SetText(room.ID, "second draft")

	joined, err := store.Join(joiner, room.ID)
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if joined.Text != "second draft" {
		t.Errorf("Expected last write %q, got %q", "second draft", joined.Text)
	}
	if joined.MemberCount() != 2 {
		t.Errorf("Expected 2 members after join, got %d", joined.MemberCount())
	}
}

// TestSetTextUnknownRoomIsNoop verifies that writes against a missing room
// are silently ignored.
func TestSetTextUnknownRoomIsNoop(t *testing.T) {
	store := NewRoomStore()
	store.SetText("no-such-room", "hello")
	if store.Len() != 0 {
		t.Errorf("SetText against a missing room must not create it, store has %d", store.Len())
	}
}

// TestRenameRoom verifies rename against present and absent rooms.
func TestRenameRoom(t *testing.T) {
	store := NewRoomStore()
	creator := NewClient(nil, nil, "127.0.0.1:1000")
	room := store.Create(creator, "old name")

	if !store.Rename(room.ID, "new name") {
		t.Fatal("Rename of an existing room reported failure")
	}
	if room.Name != "new name" {
		t.Errorf("Expected renamed room %q, got %q", "new name", room.Name)
	}
	if store.Rename("no-such-room", "whatever") {
		t.Error("Rename of a missing room reported success")
	}
}

// TestLeaveDeletesEmptyRoom verifies the core invariant: a room whose
// membership reaches zero is removed immediately, buffer included.
func TestLeaveDeletesEmptyRoom(t *testing.T) {
	store := NewRoomStore()
	creator := NewClient(nil, nil, "127.0.0.1:1000")
	room := store.Create(creator, "")
	store.SetText(room.ID, "contents")

	if deleted := store.Leave(creator, room.ID); !deleted {
		t.Fatal("Leaving as sole member must delete the room")
	}
	if _, ok := store.Get(room.ID); ok {
		t.Error("Room still present after its last member left")
	}
	if _, err := store.Join(creator, room.ID); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Expected ErrRoomNotFound after deletion, got %v", err)
	}
}

// TestLeaveKeepsRoomWithRemainingMembers verifies that a room survives as
// long as at least one member stays.
func TestLeaveKeepsRoomWithRemainingMembers(t *testing.T) {
	store := NewRoomStore()
	creator := NewClient(nil, nil, "127.0.0.1:1000")
	joiner := NewClient(nil, nil, "127.0.0.1:2000")

	room := store.Create(creator, "")
	if _, err := store.Join(joiner, room.ID); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	if deleted := store.Leave(creator, room.ID); deleted {
		t.Fatal("Room deleted while a member remained")
	}
	if room.MemberCount() != 1 {
		t.Errorf("Expected 1 remaining member, got %d", room.MemberCount())
	}
}

// TestCloseRemovesRoomRegardlessOfMembership verifies the unconditional
// close path.
func TestCloseRemovesRoomRegardlessOfMembership(t *testing.T) {
	store := NewRoomStore()
	creator := NewClient(nil, nil, "127.0.0.1:1000")
	joiner := NewClient(nil, nil, "127.0.0.1:2000")

	room := store.Create(creator, "")
	if _, err := store.Join(joiner, room.ID); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	if !store.Close(room.ID) {
		t.Fatal("Close of an existing room reported failure")
	}
	if _, ok := store.Get(room.ID); ok {
		t.Error("Room still present after Close")
	}
	if store.Close(room.ID) {
		t.Error("Second Close of the same room reported success")
	}
}

// TestMembersReturnsSnapshot verifies that mutating membership does not
// disturb a snapshot taken before the mutation.
func TestMembersReturnsSnapshot(t *testing.T) {
	store := NewRoomStore()
	creator := NewClient(nil, nil, "127.0.0.1:1000")
	joiner := NewClient(nil, nil, "127.0.0.1:2000")

	room := store.Create(creator, "")
	if _, err := store.Join(joiner, room.ID); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	snapshot := room.Members()
	store.Leave(joiner, room.ID)

	if len(snapshot) != 2 {
		t.Errorf("Snapshot changed after membership mutation: %d entries", len(snapshot))
	}
	if room.MemberCount() != 1 {
		t.Errorf("Expected 1 live member, got %d", room.MemberCount())
	}
}
