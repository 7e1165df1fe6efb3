// File: transport/netconn.go
// Package transport adapts OS connections to the stream adapter's I/O
// contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"net"
	"syscall"
)

// NetConn wraps a net.Conn as a blocking api.NetConn. Reads block the
// calling goroutine; used with the stream adapter this is the
// blocking binding of the state machines.
type NetConn struct {
	conn net.Conn
}

// NewNetConn initializes a new NetConn.
func NewNetConn(conn net.Conn) *NetConn {
	return &NetConn{conn: conn}
}

// Read fills buf from the connection.
func (n *NetConn) Read(buf []byte) (int, error) {
	return n.conn.Read(buf)
}

// Write sends buf into the connection.
func (n *NetConn) Write(buf []byte) (int, error) {
	return n.conn.Write(buf)
}

// Close closes the connection.
func (n *NetConn) Close() error {
	return n.conn.Close()
}

// RawFD returns the OS descriptor when the connection exposes one,
// otherwise 0.
func (n *NetConn) RawFD() uintptr {
	sc, ok := n.conn.(syscall.Conn)
	if !ok {
		return 0
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0
	}
	var fd uintptr
	_ = raw.Control(func(f uintptr) { fd = f })
	return fd
}
