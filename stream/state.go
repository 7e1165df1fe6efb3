// File: stream/state.go
// Package stream implements the WebSocket data-transfer adapter.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The adapter sits directly on a byte-oriented I/O source and exposes
// plain Read/Write semantics while performing framing, masking,
// fragmentation reassembly, control-frame handling and keep-alive
// heartbeats. One call into the adapter performs at most one operation
// on the underlying source, and all in-flight state lives in the
// fixed-size structures below: no payload byte is ever buffered.

package stream

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/wstream-io/wstream/frame"
)

// writeChunk is the size of the masking scratch window. A Client-role
// write masks at most this many payload bytes per call; Server-role
// writes go out directly from the caller's buffer.
const writeChunk = 4096

// readState tracks progress through the current incoming frame.
//
// Invariants: at most one frame is in flight; header bytes are never
// re-parsed once consumed; remaining decreases monotonically to zero
// before the next header may be parsed.
type readState struct {
	// Header accumulation. Only the exact header length is ever read
	// into scratch, so no payload byte can leak into it.
	scratch    [frame.MaxHeaderLen]byte
	scratchLen int

	head     frame.Head
	haveHead bool

	remaining uint64 // payload bytes left in the current frame
	maskPos   int    // rolling unmask cursor, mod 4

	// Fragmented-message bookkeeping: a continuation frame's opcode is
	// reinterpreted as "more of fragOp".
	fragmented bool
	fragOp     frame.Opcode

	// Frame surfaced by the most recent payload delivery.
	lastOp  frame.Opcode
	lastFin bool

	// Control-frame capture. The payload is bounded to 125 bytes by
	// the wire format and collected here before the frame resolves.
	ctrl    [frame.MaxControlPayloadLen]byte
	ctrlLen int

	closed      bool // close frame observed
	closeCode   int
	closeReason string

	err error // protocol poison; fails all further reads fast
}

// controlFrame is one fully encoded control frame (header + payload)
// awaiting priority emission on the write side.
type controlFrame struct {
	buf [6 + frame.MaxControlPayloadLen]byte
	n   int
}

// writeState tracks progress through the current outgoing frame.
//
// Invariant: a new frame's header is not started until the previous
// frame's payload is fully flushed, and a queued control frame is only
// injected at such a boundary, never mid-frame.
type writeState struct {
	head     [frame.MaxHeaderLen]byte
	headLen  int // 0 means no frame in progress
	headSent int

	remaining uint64 // payload bytes left in the current frame
	masked    bool
	maskKey   [4]byte
	maskPos   int

	scratch [writeChunk]byte

	// Pending control replies (pong, ping, close). The queue is the
	// only state shared with the read side, which enqueues auto-pongs;
	// mu covers exactly that handoff.
	mu      sync.Mutex
	pending *queue.Queue

	cur     *controlFrame // control frame currently being flushed
	curSent int

	closeQueued bool
}

func (ws *writeState) pendingLen() int {
	ws.mu.Lock()
	n := ws.pending.Length()
	ws.mu.Unlock()
	return n
}
