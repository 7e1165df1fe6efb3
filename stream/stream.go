// File: stream/stream.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stream composition: one I/O handle, one read state machine, one
// write state machine, one heartbeat, and a compile-time role tag.

package stream

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"

	"github.com/wstream-io/wstream/frame"
	"github.com/wstream-io/wstream/role"
)

// Stream adapts a raw byte source/sink into WebSocket read/write
// semantics. R fixes the masking role at compile time; IO is the
// underlying source, blocking or non-blocking.
//
// The stream owns its I/O handle exclusively. Reads and writes are
// independent directions and may be driven from two goroutines if the
// handle supports it, but calls within one direction must be
// serialized by the caller: resuming partial progress requires strict
// ordering.
//
// Construction assumes the handshake already happened; see the
// handshake package.
type Stream[R role.Policy, IO io.ReadWriter] struct {
	rw   IO
	role R

	rs readState
	ws writeState
	hb *HeartBeat

	writeOp  frame.Opcode
	writeFin bool
	now      func() time.Time

	bytesReceived  atomic.Int64
	bytesSent      atomic.Int64
	framesReceived atomic.Int64
	framesSent     atomic.Int64
	pingsSent      atomic.Int64
	pongsReceived  atomic.Int64
}

// New creates a stream over an already-handshaken I/O handle.
// The role is fixed by the type argument:
//
//	st := stream.New[role.Client](conn)
func New[R role.Policy, IO io.ReadWriter](rw IO, opts ...Option) *Stream[R, IO] {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	s := &Stream[R, IO]{
		rw:       rw,
		writeOp:  cfg.opcode,
		writeFin: true,
		now:      cfg.clock,
	}
	s.hb = NewHeartBeat(cfg.pingInterval, cfg.pongTimeout, cfg.clock())
	s.ws.pending = queue.New()
	return s
}

// Conn exposes the underlying I/O handle.
func (s *Stream[R, IO]) Conn() IO { return s.rw }

// LastFrame reports the opcode of the frame that most recently
// delivered payload, and whether that delivery completed a message
// (the frame finished and carried fin).
func (s *Stream[R, IO]) LastFrame() (frame.Opcode, bool) {
	return s.rs.lastOp, s.rs.lastFin
}

// CloseReceived reports whether a close frame has been observed on the
// read side.
func (s *Stream[R, IO]) CloseReceived() bool { return s.rs.closed }

// CloseStatus returns the close code and reason carried by the
// received close frame. The code is CloseNoStatusRcvd when the frame
// had an empty payload, and zero when no close frame has arrived.
func (s *Stream[R, IO]) CloseStatus() (int, string) {
	return s.rs.closeCode, s.rs.closeReason
}

// HeartbeatDue reports whether an automatic ping is currently due.
// The write path and PumpControl queue the ping themselves; this
// accessor exists for callers that schedule their own I/O.
func (s *Stream[R, IO]) HeartbeatDue() bool {
	return s.hb.ShouldSendPing(s.now())
}

// Stale reports whether the peer failed to answer the most recent ping
// within the configured timeout. Staleness is a condition, not an
// action: the caller decides whether to close.
func (s *Stream[R, IO]) Stale() bool {
	return s.hb.IsStale(s.now())
}

// WriteInProgress reports whether an outgoing frame has started but
// not yet fully left, header included. Callers emitting empty frames
// use it to tell a finished frame from a header still being flushed.
func (s *Stream[R, IO]) WriteInProgress() bool {
	return s.ws.headLen != 0
}

// Stats returns a snapshot of transfer counters for metrics reporting.
func (s *Stream[R, IO]) Stats() map[string]int64 {
	return map[string]int64{
		"bytes_received":  s.bytesReceived.Load(),
		"bytes_sent":      s.bytesSent.Load(),
		"frames_received": s.framesReceived.Load(),
		"frames_sent":     s.framesSent.Load(),
		"pings_sent":      s.pingsSent.Load(),
		"pongs_received":  s.pongsReceived.Load(),
	}
}

// SetWriteOpcode sets the opcode used when the next frame starts.
// It does not affect a frame already in progress.
func (s *Stream[R, IO]) SetWriteOpcode(op frame.Opcode) {
	s.writeOp = op
}

// SetWriteFin sets the fin flag used when the next frame starts.
// Callers fragmenting a message themselves clear fin on all frames but
// the last and switch the opcode to continuation after the first.
func (s *Stream[R, IO]) SetWriteFin(fin bool) {
	s.writeFin = fin
}
