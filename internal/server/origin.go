// Package server enforces the browser-origin allow-list for the colab
// protocol channel. Only the WebSocket handshake is gated here; once a
// session is upgraded, room access is governed by the hub.
package server

import (
	"log"
	"net/http"
	"net/url"
	"strings"
)

// normalizeOrigins canonicalizes the configured origin list into scheme://host
// keys and reports whether a wildcard entry disables the allow-list entirely.
// Entries that cannot be parsed are logged and skipped rather than silently
// widening or narrowing access.
func normalizeOrigins(origins []string) ([]string, bool) {
	if len(origins) == 0 {
		return nil, false
	}

	keys := make([]string, 0, len(origins))
	wildcard := false

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		switch {
		case trimmed == "":
			continue
		case trimmed == "*":
			wildcard = true
			continue
		}

		key, ok := originKey(trimmed)
		if !ok {
			log.Printf("Ignoring unparseable origin %q in allow-list", origin)
			continue
		}
		keys = append(keys, key)
	}

	return keys, wildcard
}

// originKey reduces an origin to its lowercase scheme://host form, the shape
// browsers put in the Origin header of the upgrade request.
func originKey(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

// normalizeOrigin is the single-origin form of originKey, used when checking
// an inbound handshake against the configured list.
func normalizeOrigin(origin string) (string, bool) {
	return originKey(origin)
}

// checkOrigin is the upgrader's CheckOrigin hook: it decides whether a
// browser may open a colab session at all. A request without a well-formed
// Origin header is rejected; the room protocol is only ever spoken by the
// bundled client page.
func checkOrigin(r *http.Request) bool {
	originHeader := r.Header.Get("Origin")
	key, ok := normalizeOrigin(originHeader)
	if !ok {
		log.Printf("Rejected colab handshake without a valid Origin header (%q)", originHeader)
		return false
	}

	configMu.RLock()
	defer configMu.RUnlock()

	if allowAllOrigins {
		return true
	}
	if _, exists := allowedOrigins[key]; exists {
		return true
	}

	log.Printf("Rejected colab handshake from disallowed origin %q", originHeader)
	return false
}
