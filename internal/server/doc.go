// Package server implements the colab room service: the WebSocket endpoint,
// the hub that coordinates rooms, membership, and connection liveness, and
// the HTTP serving for the client pages.
//
// The implementation is organized into specialized files for configuration,
// the room store, the hub event loop, clients, routing, and HTTP handlers to
// keep the codebase maintainable and testable as the project grows.
package server
