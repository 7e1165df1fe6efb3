// Copyright 2025 momentics@gmail.com
// License: Apache 2.0

// codec_test.go — header codec round-trips across all length classes,
// incremental decode windows, and mask application.
package frame_test

import (
	"bytes"
	"testing"

	"github.com/wstream-io/wstream/api"
	"github.com/wstream-io/wstream/frame"
)

func TestHeadRoundTripLengthClasses(t *testing.T) {
	lengths := []uint64{0, 1, 125, 126, 65535, 65536, 1 << 32}
	for _, masked := range []bool{false, true} {
		for _, plen := range lengths {
			h := frame.Head{
				Fin:        true,
				Opcode:     frame.OpBinary,
				Masked:     masked,
				PayloadLen: plen,
			}
			if masked {
				h.MaskKey = [4]byte{0xDE, 0xAD, 0xBE, 0xEF}
			}
			var buf [frame.MaxHeaderLen]byte
			n, err := frame.EncodeHead(h, buf[:])
			if err != nil {
				t.Fatalf("EncodeHead(len=%d masked=%v): %v", plen, masked, err)
			}

			got, consumed, err := frame.DecodeHead(buf[:n])
			if err != nil {
				t.Fatalf("DecodeHead(len=%d masked=%v): %v", plen, masked, err)
			}
			if consumed != n {
				t.Fatalf("consumed %d bytes, encoded %d", consumed, n)
			}
			if got != h {
				t.Fatalf("head mismatch: got %+v want %+v", got, h)
			}
		}
	}
}

func TestDecodeHeadNeedsMoreBytes(t *testing.T) {
	h := frame.Head{
		Fin:        true,
		Opcode:     frame.OpText,
		Masked:     true,
		MaskKey:    [4]byte{1, 2, 3, 4},
		PayloadLen: 70000,
	}
	var buf [frame.MaxHeaderLen]byte
	n, err := frame.EncodeHead(h, buf[:])
	if err != nil {
		t.Fatal(err)
	}
	// every strict prefix must report "need more" without error
	for w := 0; w < n; w++ {
		_, consumed, err := frame.DecodeHead(buf[:w])
		if err != nil {
			t.Fatalf("window %d: unexpected error %v", w, err)
		}
		if consumed != 0 {
			t.Fatalf("window %d: consumed %d from incomplete header", w, consumed)
		}
	}
}

func TestDecodeHeadRejectsReservedBits(t *testing.T) {
	buf := []byte{frame.FinBit | 0x40 | byte(frame.OpBinary), 0}
	_, _, err := frame.DecodeHead(buf)
	if !api.IsProtocol(err) {
		t.Fatalf("want protocol error for RSV bits, got %v", err)
	}
}

func TestEncodeHeadShortBuffer(t *testing.T) {
	h := frame.Head{Fin: true, Opcode: frame.OpBinary, PayloadLen: 70000}
	var buf [4]byte
	if _, err := frame.EncodeHead(h, buf[:]); err == nil {
		t.Fatal("want error for short destination buffer")
	}
}

func TestMaskRoundTripWithRollingCursor(t *testing.T) {
	key := [4]byte{0x11, 0x22, 0x33, 0x44}
	data := []byte("rolling mask cursor across chunk boundaries")
	orig := append([]byte(nil), data...)

	// mask in uneven chunks, carrying the cursor across calls
	pos := 0
	for i := 0; i < len(data); {
		end := i + 1 + i%5
		if end > len(data) {
			end = len(data)
		}
		pos = frame.Mask(data[i:end], key, pos)
		i = end
	}
	// a single-shot unmask must restore the original
	frame.Mask(data, key, 0)
	if !bytes.Equal(data, orig) {
		t.Fatal("chunked mask + full unmask did not restore plaintext")
	}
}

func TestOpcodeClassification(t *testing.T) {
	for op, want := range map[frame.Opcode]bool{
		frame.OpClose: true, frame.OpPing: true, frame.OpPong: true,
		frame.OpText: false, frame.OpBinary: false, frame.OpContinuation: false,
	} {
		if op.IsControl() != want {
			t.Errorf("%s: IsControl = %v, want %v", op, op.IsControl(), want)
		}
	}
	if frame.Opcode(0x3).Valid() || frame.Opcode(0xB).Valid() {
		t.Error("reserved opcodes must not validate")
	}
}
