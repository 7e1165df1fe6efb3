// File: stream/read.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Read path: header accumulation, payload demasking straight into the
// caller's buffer, and control-frame interception. Header bytes are
// fetched by exact count (first the two base bytes, then the precise
// extension length they imply), so payload bytes never land in the
// header scratch and nothing is ever re-parsed.

package stream

import (
	"encoding/binary"
	"io"

	"github.com/wstream-io/wstream/api"
	"github.com/wstream-io/wstream/frame"
)

// Read places data-frame payload bytes into p and returns how many
// arrived. It performs at most one operation on the underlying source.
//
// A return of (0, nil) means the call made header or control progress
// and another call is needed; it is not EOF. True EOF at a frame
// boundary surfaces as io.EOF, EOF mid-frame as io.ErrUnexpectedEOF,
// and a non-ready non-blocking source as api.ErrWouldBlock with no
// loss of progress. After a close frame is observed, Read fails with
// api.ErrClosed.
func (s *Stream[R, IO]) Read(p []byte) (int, error) {
	rs := &s.rs
	if rs.err != nil {
		return 0, rs.err
	}
	if rs.closed {
		return 0, api.ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}

	var n int
	var err error
	switch {
	case !rs.haveHead:
		err = s.readHead()
	case rs.head.Opcode.IsControl():
		err = s.readControl()
	default:
		n, err = s.readPayload(p)
	}
	if err != nil && api.IsProtocol(err) {
		rs.err = err
	}
	return n, err
}

// readHead advances header accumulation by at most one read, and
// resolves the header once complete. Zero-length frames finish here
// without any further I/O.
func (s *Stream[R, IO]) readHead() error {
	rs := &s.rs
	want := 2
	if rs.scratchLen >= 2 {
		want = frame.HeadLen(rs.scratch[0], rs.scratch[1])
	}
	if rs.scratchLen < want {
		n, err := s.rw.Read(rs.scratch[rs.scratchLen:want])
		rs.scratchLen += n
		switch {
		case err == io.EOF && rs.scratchLen == 0:
			return io.EOF
		case err == io.EOF && n == 0:
			return io.ErrUnexpectedEOF
		case err != nil && err != io.EOF:
			return err
		case n == 0:
			return nil
		}
		if rs.scratchLen >= 2 {
			want = frame.HeadLen(rs.scratch[0], rs.scratch[1])
		}
		if rs.scratchLen < want {
			return nil
		}
	}

	h, _, err := frame.DecodeHead(rs.scratch[:rs.scratchLen])
	if err != nil {
		return err
	}
	rs.scratchLen = 0
	if err := s.acceptHead(h); err != nil {
		return err
	}
	if rs.remaining == 0 {
		return s.finishFrame()
	}
	return nil
}

// acceptHead validates a freshly parsed header against the role policy
// and the fragmentation state, then arms the payload counters.
func (s *Stream[R, IO]) acceptHead(h frame.Head) error {
	rs := &s.rs
	if !h.Opcode.Valid() {
		return api.NewProtocolError("reserved opcode 0x%x", byte(h.Opcode))
	}
	if h.Masked && !s.role.RequiresMaskedIncoming() {
		return api.NewProtocolError("masked %s frame where masking is forbidden", h.Opcode)
	}
	if !h.Masked && s.role.RequiresMaskedIncoming() {
		return api.NewProtocolError("unmasked %s frame where masking is required", h.Opcode)
	}
	if h.Opcode.IsControl() {
		if !h.Fin {
			return api.NewProtocolError("fragmented control frame")
		}
		if h.PayloadLen > frame.MaxControlPayloadLen {
			return api.NewProtocolError("control payload of %d bytes exceeds %d",
				h.PayloadLen, frame.MaxControlPayloadLen)
		}
	} else {
		if h.Opcode == frame.OpContinuation && !rs.fragmented {
			return api.NewProtocolError("continuation frame without a message in progress")
		}
		if h.Opcode != frame.OpContinuation && rs.fragmented {
			return api.NewProtocolError("new %s frame while a fragmented message is in progress", h.Opcode)
		}
	}
	rs.head = h
	rs.haveHead = true
	rs.remaining = h.PayloadLen
	rs.maskPos = 0
	rs.ctrlLen = 0
	return nil
}

// readControl collects the bounded control payload into the control
// scratch, one read at a time, and resolves the frame when complete.
func (s *Stream[R, IO]) readControl() error {
	rs := &s.rs
	n, err := s.rw.Read(rs.ctrl[rs.ctrlLen : rs.ctrlLen+int(rs.remaining)])
	if n > 0 {
		if rs.head.Masked {
			rs.maskPos = frame.Mask(rs.ctrl[rs.ctrlLen:rs.ctrlLen+n], rs.head.MaskKey, rs.maskPos)
		}
		rs.ctrlLen += n
		rs.remaining -= uint64(n)
		if rs.remaining == 0 {
			return s.finishFrame()
		}
		if err != nil && err != io.EOF {
			return err
		}
		return nil
	}
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

// readPayload moves data-frame payload straight from the source into
// the caller's buffer, unmasking in place with the rolling cursor.
func (s *Stream[R, IO]) readPayload(p []byte) (int, error) {
	rs := &s.rs
	limit := uint64(len(p))
	if rs.remaining < limit {
		limit = rs.remaining
	}
	n, err := s.rw.Read(p[:limit])
	if n > 0 {
		if rs.head.Masked {
			rs.maskPos = frame.Mask(p[:n], rs.head.MaskKey, rs.maskPos)
		}
		rs.remaining -= uint64(n)
		s.bytesReceived.Add(int64(n))
		eff := rs.head.Opcode
		if eff == frame.OpContinuation {
			eff = rs.fragOp
		}
		rs.lastOp = eff
		rs.lastFin = false
		if rs.remaining == 0 {
			if ferr := s.finishFrame(); ferr != nil {
				return n, ferr
			}
		}
		if err != nil && err != io.EOF {
			return n, err
		}
		return n, nil
	}
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	return 0, nil
}

// finishFrame clears the in-flight header so the next call may parse a
// new one, updates fragmentation state, and dispatches completed
// control frames.
func (s *Stream[R, IO]) finishFrame() error {
	rs := &s.rs
	h := rs.head
	rs.haveHead = false
	s.framesReceived.Add(1)

	if h.Opcode.IsControl() {
		return s.finishControl(h.Opcode)
	}

	eff := h.Opcode
	if eff == frame.OpContinuation {
		eff = rs.fragOp
	}
	rs.lastOp = eff
	rs.lastFin = h.Fin
	if h.Fin {
		rs.fragmented = false
	} else {
		rs.fragmented = true
		rs.fragOp = eff
	}
	return nil
}

// finishControl reacts to a fully collected control frame: ping queues
// an auto-pong on the write side, pong feeds the heartbeat, close
// records the peer's status and stops further reads.
func (s *Stream[R, IO]) finishControl(op frame.Opcode) error {
	rs := &s.rs
	switch op {
	case frame.OpPing:
		s.queueControl(frame.OpPong, rs.ctrl[:rs.ctrlLen])
	case frame.OpPong:
		s.pongsReceived.Add(1)
		s.hb.OnPongReceived(s.now())
	case frame.OpClose:
		rs.closed = true
		switch {
		case rs.ctrlLen == 0:
			rs.closeCode = frame.CloseNoStatusRcvd
		case rs.ctrlLen == 1:
			return api.NewProtocolError("close payload of one byte")
		default:
			rs.closeCode = int(binary.BigEndian.Uint16(rs.ctrl[:2]))
			rs.closeReason = string(rs.ctrl[2:rs.ctrlLen])
		}
	}
	return nil
}
