// Copyright 2025 momentics@gmail.com
// License: Apache 2.0

// nonblock_test.go — the state machines lose no progress when the
// underlying source reports "not ready" between arbitrary calls.
package stream_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/wstream-io/wstream/api"
	"github.com/wstream-io/wstream/frame"
	"github.com/wstream-io/wstream/role"
	"github.com/wstream-io/wstream/stream"
)

// flakyRW interposes api.ErrWouldBlock on every other operation.
type flakyRW struct {
	inner *limitRW
	tick  int
}

func (f *flakyRW) Read(p []byte) (int, error) {
	f.tick++
	if f.tick%2 == 1 {
		return 0, api.ErrWouldBlock
	}
	return f.inner.Read(p)
}

func (f *flakyRW) Write(p []byte) (int, error) {
	f.tick++
	if f.tick%2 == 1 {
		return 0, api.ErrWouldBlock
	}
	return f.inner.Write(p)
}

func TestWouldBlockLosesNoProgress(t *testing.T) {
	payload := bytes.Repeat([]byte{0x7E}, 300)

	inner := &limitRW{rlimit: 19, wlimit: 37}
	rw := &flakyRW{inner: inner}
	wr := stream.New[role.Client](rw, stream.WithPingInterval(0))
	rd := stream.New[role.Server](rw, stream.WithPingInterval(0))

	toWrite := payload
	for len(toWrite) > 0 {
		n, err := wr.Write(toWrite)
		if err != nil && !errors.Is(err, api.ErrWouldBlock) {
			t.Fatalf("write: %v", err)
		}
		toWrite = toWrite[n:]
	}

	var got []byte
	buf := make([]byte, 64)
	for inner.cursor < len(inner.buf) {
		n, err := rd.Read(buf)
		if err != nil && !errors.Is(err, api.ErrWouldBlock) {
			t.Fatalf("read: %v", err)
		}
		got = append(got, buf[:n]...)
	}

	if !bytes.Equal(got, payload) {
		t.Fatal("payload corrupted across would-block interruptions")
	}
	op, fin := rd.LastFrame()
	if op != frame.OpBinary || !fin {
		t.Fatalf("LastFrame = (%s, %v), want (binary, true)", op, fin)
	}
}
