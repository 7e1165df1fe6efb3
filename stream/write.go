// File: stream/write.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Write path: frame emission with client-side masking against a fixed
// scratch window, plus priority flushing of queued control frames.
// Control frames are injected only between data frames; a frame that
// has started always finishes before anything else goes on the wire.

package stream

import (
	"encoding/binary"

	"github.com/wstream-io/wstream/api"
	"github.com/wstream-io/wstream/frame"
)

// Write sends payload bytes as part of the current outgoing frame,
// starting a new frame (fin and opcode per the stream's settings,
// declared length len(p)) when none is in progress. It performs at
// most one operation on the underlying source and returns how many
// bytes of p were accepted.
//
// A return of (0, nil) means the call spent its I/O on the frame
// header or a queued control frame; the caller calls again with the
// same slice. After partial acceptance the caller continues with
// p[n:]: the declared frame length is fixed at frame start.
//
// An empty slice with no frame in progress starts a header-only frame
// (a legal empty data frame, such as the final continuation of a
// self-fragmented message); the frame is done once WriteInProgress
// reports false.
func (s *Stream[R, IO]) Write(p []byte) (int, error) {
	ws := &s.ws
	if s.hb.ShouldSendPing(s.now()) {
		s.Ping()
	}
	if ws.closeQueued {
		return 0, api.ErrClosed
	}
	if ws.cur != nil || (ws.headLen == 0 && ws.pendingLen() > 0) {
		return 0, s.flushControl()
	}

	if ws.headLen == 0 {
		s.startFrame(uint64(len(p)))
	}
	if ws.headSent < ws.headLen {
		n, err := s.rw.Write(ws.head[ws.headSent:ws.headLen])
		ws.headSent += n
		// payload bytes are only accepted once the header is flushed
		if ws.headSent == ws.headLen && ws.remaining == 0 {
			ws.headLen, ws.headSent = 0, 0
			s.framesSent.Add(1)
		}
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	limit := uint64(len(p))
	if ws.remaining < limit {
		limit = ws.remaining
	}
	var n int
	var err error
	if ws.masked {
		c := int(limit)
		if c > writeChunk {
			c = writeChunk
		}
		copy(ws.scratch[:c], p[:c])
		frame.Mask(ws.scratch[:c], ws.maskKey, ws.maskPos)
		n, err = s.rw.Write(ws.scratch[:c])
		// advance the cursor only past what actually went out; the
		// unsent tail is re-masked on the next call
		ws.maskPos = (ws.maskPos + n) & 3
	} else {
		n, err = s.rw.Write(p[:limit])
	}
	ws.remaining -= uint64(n)
	s.bytesSent.Add(int64(n))
	if ws.remaining == 0 {
		ws.headLen, ws.headSent = 0, 0
		s.framesSent.Add(1)
	}
	return n, err
}

// startFrame encodes the header of a new frame into the header
// scratch, generating a fresh mask key when the role requires one.
func (s *Stream[R, IO]) startFrame(total uint64) {
	ws := &s.ws
	h := frame.Head{Fin: s.writeFin, Opcode: s.writeOp, PayloadLen: total}
	if s.role.MasksOutgoing() {
		h.Masked = true
		h.MaskKey = s.role.NewMaskKey()
	}
	n, _ := frame.EncodeHead(h, ws.head[:])
	ws.headLen = n
	ws.headSent = 0
	ws.remaining = total
	ws.masked = h.Masked
	ws.maskKey = h.MaskKey
	ws.maskPos = 0
}

// flushControl writes the next chunk of the control frame at the head
// of the pending queue. One underlying write per call.
func (s *Stream[R, IO]) flushControl() error {
	ws := &s.ws
	if ws.cur == nil {
		ws.mu.Lock()
		if ws.pending.Length() == 0 {
			ws.mu.Unlock()
			return nil
		}
		ws.cur = ws.pending.Remove().(*controlFrame)
		ws.mu.Unlock()
		ws.curSent = 0
	}
	n, err := s.rw.Write(ws.cur.buf[ws.curSent:ws.cur.n])
	ws.curSent += n
	if ws.curSent == ws.cur.n {
		ws.cur = nil
		s.framesSent.Add(1)
	}
	return err
}

// PumpControl flushes pending control frames (auto-pongs, pings, a
// queued close) when the caller has no data to write. It performs at
// most one underlying write and reports whether control data is still
// pending. While a data frame is mid-flight it does nothing: control
// frames never split another frame on the wire.
func (s *Stream[R, IO]) PumpControl() (bool, error) {
	ws := &s.ws
	if s.hb.ShouldSendPing(s.now()) {
		s.Ping()
	}
	if ws.cur == nil && ws.pendingLen() == 0 {
		return false, nil
	}
	if ws.headLen != 0 {
		return true, nil
	}
	err := s.flushControl()
	return ws.cur != nil || ws.pendingLen() > 0, err
}

// queueControl encodes a complete control frame and appends it to the
// priority queue. Payloads beyond the control cap are truncated.
func (s *Stream[R, IO]) queueControl(op frame.Opcode, payload []byte) {
	if len(payload) > frame.MaxControlPayloadLen {
		payload = payload[:frame.MaxControlPayloadLen]
	}
	cf := &controlFrame{}
	h := frame.Head{Fin: true, Opcode: op, PayloadLen: uint64(len(payload))}
	if s.role.MasksOutgoing() {
		h.Masked = true
		h.MaskKey = s.role.NewMaskKey()
	}
	hn, _ := frame.EncodeHead(h, cf.buf[:])
	copy(cf.buf[hn:], payload)
	if h.Masked {
		frame.Mask(cf.buf[hn:hn+len(payload)], h.MaskKey, 0)
	}
	cf.n = hn + len(payload)
	s.ws.mu.Lock()
	s.ws.pending.Add(cf)
	s.ws.mu.Unlock()
}

// Ping queues a ping control frame and arms the heartbeat. The frame
// goes out on the next Write or PumpControl that reaches a frame
// boundary.
func (s *Stream[R, IO]) Ping() {
	s.queueControl(frame.OpPing, nil)
	s.hb.NotePingSent(s.now())
	s.pingsSent.Add(1)
}

// QueueClose queues a close frame carrying code and reason (reason is
// truncated to fit the control cap). Data writes fail with
// api.ErrClosed afterwards; PumpControl still flushes the close frame
// and any control frames queued before it.
func (s *Stream[R, IO]) QueueClose(code int, reason string) {
	var payload [frame.MaxControlPayloadLen]byte
	binary.BigEndian.PutUint16(payload[:2], uint16(code))
	rn := copy(payload[2:], reason)
	s.queueControl(frame.OpClose, payload[:2+rn])
	s.ws.closeQueued = true
}
