// Package server pushes aggregate usage counters to every connected session.
package server

import (
	"encoding/json"
	"log"
)

// Stats are the aggregate counters shown on the landing page: total connected
// sessions and currently active rooms.
type Stats struct {
	TotalParticipants int
	ActiveRooms       int
}

// CurrentStats computes the counters from the hub's live state. Hub goroutine
// only.
func (h *Hub) CurrentStats() Stats {
	return Stats{
		TotalParticipants: len(h.clients),
		ActiveRooms:       h.rooms.Len(),
	}
}

// broadcastStats pushes a STATS_UPDATE to every connected session, not just
// room members. Invoked on every membership-affecting event, so its cost
// scales with session churn rather than with edits.
func (h *Hub) broadcastStats() {
	stats := h.CurrentStats()
	payload, err := json.Marshal(statsUpdateMsg{
		Type:              TypeStatsUpdate,
		TotalParticipants: stats.TotalParticipants,
		ActiveRooms:       stats.ActiveRooms,
	})
	if err != nil {
		log.Printf("Error marshaling stats update: %v", err)
		return
	}

	for _, client := range h.clientSnapshot() {
		h.sendPayload(client, payload)
	}
}
