// File: stream/options.go
// Package stream defines functional options for stream construction.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package stream

import (
	"time"

	"github.com/wstream-io/wstream/frame"
)

type config struct {
	pingInterval time.Duration
	pongTimeout  time.Duration
	opcode       frame.Opcode
	clock        func() time.Time
}

func defaultConfig() config {
	return config{
		pingInterval: 10 * time.Second,
		pongTimeout:  30 * time.Second,
		opcode:       frame.OpBinary,
		clock:        time.Now,
	}
}

// Option customizes stream initialization.
type Option func(*config)

// WithPingInterval sets how often an automatic ping becomes due.
// Zero disables automatic pings.
func WithPingInterval(d time.Duration) Option {
	return func(c *config) {
		c.pingInterval = d
	}
}

// WithPongTimeout sets how long an outstanding ping may wait for its
// pong before the stream reports itself stale.
func WithPongTimeout(d time.Duration) Option {
	return func(c *config) {
		c.pongTimeout = d
	}
}

// WithOpcode sets the opcode of caller-initiated frames.
// The default is binary.
func WithOpcode(op frame.Opcode) Option {
	return func(c *config) {
		c.opcode = op
	}
}

// WithClock overrides the time source used by the heartbeat.
func WithClock(clock func() time.Time) Option {
	return func(c *config) {
		c.clock = clock
	}
}
