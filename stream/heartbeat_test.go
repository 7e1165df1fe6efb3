// Copyright 2025 momentics@gmail.com
// License: Apache 2.0

// heartbeat_test.go — liveness bookkeeping under a controlled clock.
package stream_test

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/wstream-io/wstream/frame"
	"github.com/wstream-io/wstream/role"
	"github.com/wstream-io/wstream/stream"
)

func TestHeartBeatDueExactlyAtInterval(t *testing.T) {
	t0 := time.Unix(1000, 0)
	hb := stream.NewHeartBeat(10*time.Second, 30*time.Second, t0)

	if hb.ShouldSendPing(t0.Add(9 * time.Second)) {
		t.Fatal("ping due before the interval elapsed")
	}
	if !hb.ShouldSendPing(t0.Add(10 * time.Second)) {
		t.Fatal("ping not due at the interval")
	}

	hb.NotePingSent(t0.Add(10 * time.Second))
	if hb.ShouldSendPing(t0.Add(25 * time.Second)) {
		t.Fatal("second ping due while one is outstanding")
	}
}

func TestHeartBeatPongClearsStaleness(t *testing.T) {
	t0 := time.Unix(1000, 0)
	hb := stream.NewHeartBeat(10*time.Second, 30*time.Second, t0)

	hb.NotePingSent(t0)
	if hb.IsStale(t0.Add(30 * time.Second)) {
		t.Fatal("stale exactly at the timeout boundary")
	}
	if !hb.IsStale(t0.Add(31 * time.Second)) {
		t.Fatal("not stale past the timeout")
	}

	hb.OnPongReceived(t0.Add(5 * time.Second))
	if hb.IsStale(t0.Add(time.Hour)) {
		t.Fatal("still stale after a matching pong")
	}
	if !hb.LastPong().Equal(t0.Add(5 * time.Second)) {
		t.Fatal("pong arrival not recorded")
	}
}

func TestHeartBeatIgnoresUnsolicitedPong(t *testing.T) {
	t0 := time.Unix(1000, 0)
	hb := stream.NewHeartBeat(10*time.Second, 30*time.Second, t0)

	hb.OnPongReceived(t0.Add(time.Second))
	if !hb.LastPong().IsZero() {
		t.Fatal("unsolicited pong accepted")
	}
}

func TestHeartBeatDisabledWithZeroInterval(t *testing.T) {
	t0 := time.Unix(1000, 0)
	hb := stream.NewHeartBeat(0, 30*time.Second, t0)
	if hb.ShouldSendPing(t0.Add(time.Hour)) {
		t.Fatal("disabled heartbeat produced a ping")
	}
}

// lockedPipeRW serializes raw reads and writes so the two stream
// directions can run on separate goroutines.
type lockedPipeRW struct {
	mu  sync.Mutex
	in  limitRW
	out limitRW
}

func (p *lockedPipeRW) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.in.Read(b)
}

func (p *lockedPipeRW) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.Write(b)
}

// One goroutine per direction: the reader drains a stream of masked
// pongs while the writer sends data frames with an aggressive ping
// interval, so ping bookkeeping and pong bookkeeping hit the shared
// heartbeat from both sides at once. Run with -race.
func TestHeartBeatSharedAcrossDirections(t *testing.T) {
	const pongs = 500
	rw := &lockedPipeRW{}
	rw.in.rlimit, rw.in.wlimit = 512, 512
	rw.out.rlimit, rw.out.wlimit = 512, 512
	for i := 0; i < pongs; i++ {
		rw.in.buf = append(rw.in.buf, clientFrame(t, frame.OpPong, true, nil)...)
	}

	st := stream.New[role.Server](rw,
		stream.WithPingInterval(time.Nanosecond),
		stream.WithPongTimeout(time.Nanosecond),
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		buf := make([]byte, 64)
		for {
			if _, err := st.Read(buf); err != nil {
				if !errors.Is(err, io.EOF) {
					t.Errorf("read: %v", err)
				}
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		payload := []byte("beat")
		for i := 0; i < pongs; i++ {
			p := payload
			for len(p) > 0 {
				n, err := st.Write(p)
				if err != nil {
					t.Errorf("write: %v", err)
					return
				}
				p = p[n:]
			}
			st.Stale()
			st.HeartbeatDue()
		}
	}()
	wg.Wait()
}

func TestStreamEmitsPingAndAcceptsPong(t *testing.T) {
	now := time.Unix(2000, 0)
	clock := func() time.Time { return now }

	in := &limitRW{rlimit: 512, wlimit: 512}
	out := &limitRW{rlimit: 512, wlimit: 512}
	st := stream.New[role.Server](&pipeRW{in: in, out: out},
		stream.WithPingInterval(10*time.Second),
		stream.WithPongTimeout(30*time.Second),
		stream.WithClock(clock),
	)

	now = now.Add(11 * time.Second)
	if !st.HeartbeatDue() {
		t.Fatal("heartbeat not due after the interval")
	}
	for {
		more, err := st.PumpControl()
		if err != nil {
			t.Fatal(err)
		}
		if !more {
			break
		}
	}
	h, consumed, err := frame.DecodeHead(out.buf)
	if err != nil || consumed == 0 || h.Opcode != frame.OpPing {
		t.Fatalf("expected a ping on the wire, got %+v err=%v", h, err)
	}

	now = now.Add(31 * time.Second)
	if !st.Stale() {
		t.Fatal("stream not stale with the ping unanswered")
	}

	// a masked pong from the peer clears staleness
	in.buf = clientFrame(t, frame.OpPong, true, nil)
	buf := make([]byte, 8)
	for in.cursor < len(in.buf) {
		if _, err := st.Read(buf); err != nil {
			t.Fatalf("read: %v", err)
		}
	}
	if st.Stale() {
		t.Fatal("still stale after the pong arrived")
	}
}
