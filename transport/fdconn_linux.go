//go:build linux

// File: transport/fdconn_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-blocking descriptor binding for Linux. A not-ready socket
// surfaces api.ErrWouldBlock instead of blocking, which the stream
// state machines absorb without losing progress; the caller retries
// after its poller reports readiness.

package transport

import (
	"io"

	"golang.org/x/sys/unix"

	"github.com/wstream-io/wstream/api"
)

// FDConn performs non-blocking reads and writes on a raw socket
// descriptor. It takes ownership of fd and switches it to
// non-blocking mode.
type FDConn struct {
	fd int
}

// NewFDConn wraps fd as a non-blocking connection.
func NewFDConn(fd int) (*FDConn, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, err
	}
	return &FDConn{fd: fd}, nil
}

// Read fills buf with whatever the socket has ready. A zero-byte
// result from the kernel means the peer closed; it is reported as
// io.EOF per the stream adapter's contract.
func (c *FDConn) Read(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	n, err := unix.Read(c.fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, api.ErrWouldBlock
		}
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write sends as much of buf as the socket accepts.
func (c *FDConn) Write(buf []byte) (int, error) {
	n, err := unix.Write(c.fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, api.ErrWouldBlock
		}
		return 0, err
	}
	return n, nil
}

// Close closes the descriptor.
func (c *FDConn) Close() error {
	return unix.Close(c.fd)
}

// RawFD returns the descriptor for registration with a poller.
func (c *FDConn) RawFD() uintptr {
	return uintptr(c.fd)
}
