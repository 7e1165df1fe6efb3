//go:build !linux

// File: transport/fdconn_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Portable stub: raw-descriptor non-blocking I/O is only wired on
// Linux. Other platforms use NetConn with deadlines instead.

package transport

import "github.com/wstream-io/wstream/api"

// FDConn is unavailable on this platform.
type FDConn struct{}

// NewFDConn reports api.ErrNotSupported.
func NewFDConn(fd int) (*FDConn, error) {
	return nil, api.ErrNotSupported
}

func (c *FDConn) Read(buf []byte) (int, error)  { return 0, api.ErrNotSupported }
func (c *FDConn) Write(buf []byte) (int, error) { return 0, api.ErrNotSupported }
func (c *FDConn) Close() error                  { return api.ErrNotSupported }
func (c *FDConn) RawFD() uintptr                { return 0 }
