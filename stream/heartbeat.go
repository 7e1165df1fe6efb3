// File: stream/heartbeat.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Keep-alive liveness tracking. At most one unacknowledged ping is
// tracked at a time; staleness is reported to the caller as a
// condition, never acted on automatically. Closing remains a caller
// decision.
//
// Pings are noted by the write direction and pongs arrive on the read
// direction, which the stream allows to run on two goroutines, so the
// bookkeeping is guarded by its own mutex.

package stream

import (
	"sync"
	"time"
)

// HeartBeat decides when an automatic ping is due and whether the peer
// has gone stale. A zero interval disables automatic pings. Safe for
// use from both stream directions at once.
type HeartBeat struct {
	interval time.Duration
	timeout  time.Duration

	mu          sync.Mutex
	lastPing    time.Time
	lastPong    time.Time
	outstanding bool
}

// NewHeartBeat returns a heartbeat with the ping clock starting at now.
func NewHeartBeat(interval, timeout time.Duration, now time.Time) *HeartBeat {
	return &HeartBeat{
		interval: interval,
		timeout:  timeout,
		lastPing: now,
	}
}

// ShouldSendPing reports whether an automatic ping is due: the
// interval has elapsed since the last ping and none is outstanding.
func (h *HeartBeat) ShouldSendPing(now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.interval <= 0 || h.outstanding {
		return false
	}
	return now.Sub(h.lastPing) >= h.interval
}

// NotePingSent records that a ping went out at now.
func (h *HeartBeat) NotePingSent(now time.Time) {
	h.mu.Lock()
	h.lastPing = now
	h.outstanding = true
	h.mu.Unlock()
}

// OnPongReceived accepts a pong as satisfying the most recent ping.
// Unsolicited pongs are ignored.
func (h *HeartBeat) OnPongReceived(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.outstanding {
		return
	}
	h.outstanding = false
	h.lastPong = now
}

// IsStale reports whether an outstanding ping has waited longer than
// the pong timeout.
func (h *HeartBeat) IsStale(now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.outstanding && h.timeout > 0 && now.Sub(h.lastPing) > h.timeout
}

// LastPong returns when the most recent matching pong arrived; the
// zero time if none has.
func (h *HeartBeat) LastPong() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastPong
}
