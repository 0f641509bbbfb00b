// Package server wires the HTTP handlers into a router for the colab
// application.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes configures and returns the application router: health check,
// WebSocket endpoint, the room page, and static assets for everything else.
func SetupRoutes(hub *Hub, staticDir string) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/ws", WebSocketHandler(hub))
	r.HandleFunc("/box/{roomId}", RoomPageHandler(staticDir)).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))
	return r
}
