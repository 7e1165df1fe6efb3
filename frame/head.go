// File: frame/head.go
// Package frame implements the WebSocket frame-header wire format.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The package is a pure codec: it decodes a header from a byte window,
// encodes a header into a byte window, and applies the rolling XOR
// mask. It never touches an I/O source and never allocates.

package frame

// Opcode identifies the frame type carried in header bits 4-7.
type Opcode byte

const (
	OpContinuation Opcode = 0x0
	OpText         Opcode = 0x1
	OpBinary       Opcode = 0x2
	OpClose        Opcode = 0x8
	OpPing         Opcode = 0x9
	OpPong         Opcode = 0xA
)

// IsControl reports whether op is a control opcode (close/ping/pong).
func (op Opcode) IsControl() bool {
	return op >= OpClose
}

// IsData reports whether op carries application payload.
func (op Opcode) IsData() bool {
	return op == OpText || op == OpBinary
}

// Valid reports whether op is one of the opcodes RFC 6455 assigns.
// All other values are reserved and must be rejected.
func (op Opcode) Valid() bool {
	switch op {
	case OpContinuation, OpText, OpBinary, OpClose, OpPing, OpPong:
		return true
	}
	return false
}

func (op Opcode) String() string {
	switch op {
	case OpContinuation:
		return "continuation"
	case OpText:
		return "text"
	case OpBinary:
		return "binary"
	case OpClose:
		return "close"
	case OpPing:
		return "ping"
	case OpPong:
		return "pong"
	default:
		return "reserved"
	}
}

const (
	// MaxHeaderLen is the longest possible encoded header:
	// 2 base bytes + 8 extended-length bytes + 4 mask-key bytes.
	MaxHeaderLen = 14

	// MaxControlPayloadLen caps control-frame payloads per RFC 6455 §5.5.
	MaxControlPayloadLen = 125

	// Bit masks of the two base header bytes.
	FinBit  = 0x80
	RsvMask = 0x70
	MaskBit = 0x80
)

// Close status codes per RFC 6455 §7.4.1.
const (
	CloseNormalClosure      = 1000
	CloseGoingAway          = 1001
	CloseProtocolError      = 1002
	CloseUnsupportedData    = 1003
	CloseNoStatusRcvd       = 1005
	CloseAbnormalClosure    = 1006
	CloseInvalidPayloadData = 1007
	ClosePolicyViolation    = 1008
	CloseMessageTooBig      = 1009
	CloseInternalServerErr  = 1011
)

// Head is one decoded frame header.
type Head struct {
	Fin        bool
	Opcode     Opcode
	Masked     bool
	MaskKey    [4]byte
	PayloadLen uint64
}
