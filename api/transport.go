// File: api/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Defines the byte-oriented connection abstraction consumed by the
// stream adapter. Any io.ReadWriter works as a stream's I/O source;
// NetConn is the richer form used by the transport package when the
// caller needs lifecycle control or raw descriptor access.

package api

// NetConn abstracts a full-duplex network connection object
// that may or may not be backed by Go's net.Conn.
//
// Read must signal EOF with io.EOF and a non-ready non-blocking
// source with ErrWouldBlock. A successful zero-byte read is treated
// by the stream layer as "no progress", never as EOF.
type NetConn interface {
	// Read reads into a preallocated buffer.
	Read(p []byte) (n int, err error)

	// Write writes buffer contents into the connection.
	Write(p []byte) (n int, err error)

	// Close shuts down the connection and notifies upstream layers.
	Close() error

	// RawFD returns the underlying OS-level file descriptor,
	// or 0 when the connection is not descriptor-backed.
	RawFD() uintptr
}
