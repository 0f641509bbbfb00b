// Package server throttles inbound protocol frames per connection. Every
// edit in a room arrives as a full-buffer SEND_MESSAGE frame, so a runaway
// client can flood the hub with keystroke-rate traffic; the limiter caps what
// one session may feed the event loop without affecting its peers.
package server

import (
	"sync"
	"time"
)

// frameLimiter is a token bucket sized in protocol frames: a session may
// burst up to `burst` frames, then is held to the refill rate. Locked because
// it runs on the connection's read goroutine while tests drive it directly.
type frameLimiter struct {
	mu     sync.Mutex
	tokens float64
	burst  float64
	perSec float64
	last   time.Time
}

func newFrameLimiter(burst int, refill time.Duration) *frameLimiter {
	if burst <= 0 {
		burst = 1
	}
	if refill <= 0 {
		refill = time.Second
	}

	perSec := float64(burst) / refill.Seconds()
	if perSec <= 0 {
		perSec = float64(burst)
	}

	return &frameLimiter{
		tokens: float64(burst),
		burst:  float64(burst),
		perSec: perSec,
		last:   time.Now(),
	}
}

// allowFrame consumes one token if available. A false return means the frame
// is discarded before it ever reaches the hub; the connection itself stays up.
func (fl *frameLimiter) allowFrame() bool {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(fl.last).Seconds()
	fl.last = now

	if elapsed > 0 {
		fl.tokens += elapsed * fl.perSec
		if fl.tokens > fl.burst {
			fl.tokens = fl.burst
		}
	}

	if fl.tokens < 1 {
		return false
	}

	fl.tokens--
	return true
}
