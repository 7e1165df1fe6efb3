// File: role/role.go
// Package role selects the masking obligations of one connection side.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Role dispatch is resolved at compile time: the stream is generic
// over a Policy type parameter instantiated with one of the zero-size
// tags below, so no runtime state is carried per stream.

package role

import "crypto/rand"

// Policy answers the two masking questions of RFC 6455 §5.3 and
// produces mask keys for outgoing frames. It is the constraint of the
// stream's role type parameter; Client and Server are the only
// implementations.
type Policy interface {
	// MasksOutgoing reports whether frames originated by this side
	// must carry a mask key.
	MasksOutgoing() bool

	// RequiresMaskedIncoming reports whether frames received by this
	// side must carry a mask key. A mismatch either way is a protocol
	// violation.
	RequiresMaskedIncoming() bool

	// NewMaskKey generates a fresh 4-byte mask key. Only meaningful
	// when MasksOutgoing reports true.
	NewMaskKey() [4]byte
}

// Client masks every frame it originates with a fresh random key and
// rejects masked frames from the server.
type Client struct{}

func (Client) MasksOutgoing() bool          { return true }
func (Client) RequiresMaskedIncoming() bool { return false }
func (Client) NewMaskKey() [4]byte          { return newKey() }

// Server sends unmasked frames and rejects unmasked frames from the
// client.
type Server struct{}

func (Server) MasksOutgoing() bool          { return false }
func (Server) RequiresMaskedIncoming() bool { return true }
func (Server) NewMaskKey() [4]byte          { return [4]byte{} }

func newKey() [4]byte {
	var k [4]byte
	// crypto/rand.Read does not fail on supported platforms
	if _, err := rand.Read(k[:]); err != nil {
		panic("role: mask key generation failed: " + err.Error())
	}
	return k
}
