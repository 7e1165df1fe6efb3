// File: api/errors.go
// Package api defines the shared contracts and error taxonomy of wstream.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Errors fall into three kinds: protocol violations (ProtocolError),
// I/O failures propagated verbatim from the underlying source, and the
// closed condition (ErrClosed). A non-blocking source that is not ready
// reports ErrWouldBlock, which is a retry signal rather than a failure.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	// ErrWouldBlock is returned by non-blocking I/O sources when no
	// progress can be made right now. State machines lose nothing on
	// this outcome; the caller retries when the source is ready.
	ErrWouldBlock = fmt.Errorf("operation would block")

	// ErrClosed is returned once a close frame has been observed on the
	// read side or queued on the write side.
	ErrClosed = fmt.Errorf("stream is closed")

	ErrNotSupported    = fmt.Errorf("operation not supported")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// ProtocolError reports a violation of the WebSocket framing rules:
// reserved opcodes or RSV bits, a mask flag that contradicts the peer's
// role, an oversized control payload, or a malformed length encoding.
//
// A ProtocolError permanently poisons the stream direction that
// observed it; further calls on that direction fail fast without I/O.
type ProtocolError struct {
	Reason string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return "websocket protocol error: " + e.Reason
}

// NewProtocolError creates a ProtocolError with a formatted reason.
func NewProtocolError(format string, args ...any) *ProtocolError {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}

// IsProtocol reports whether err is (or wraps) a ProtocolError.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
