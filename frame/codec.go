// File: frame/codec.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Incremental header codec. DecodeHead works on whatever window of
// bytes the caller has accumulated so far and reports "need more" by
// consuming zero bytes, so a header split across many tiny reads can
// be resumed without re-parsing.

package frame

import (
	"encoding/binary"
	"io"

	"github.com/wstream-io/wstream/api"
)

// HeadLen reports the total encoded header length implied by the first
// two header bytes.
func HeadLen(b0, b1 byte) int {
	n := 2
	switch b1 & 0x7F {
	case 126:
		n += 2
	case 127:
		n += 8
	}
	if b1&MaskBit != 0 {
		n += 4
	}
	return n
}

// DecodeHead parses one frame header from the beginning of buf.
// It returns the decoded head and the number of bytes consumed.
// A consumed count of zero with a nil error means buf does not yet
// hold a complete header; the caller should supply more bytes.
func DecodeHead(buf []byte) (Head, int, error) {
	var h Head
	if len(buf) < 2 {
		return h, 0, nil
	}
	if buf[0]&RsvMask != 0 {
		return h, 0, api.NewProtocolError("nonzero RSV bits 0x%02x", buf[0]&RsvMask)
	}
	need := HeadLen(buf[0], buf[1])
	if len(buf) < need {
		return h, 0, nil
	}

	h.Fin = buf[0]&FinBit != 0
	h.Opcode = Opcode(buf[0] & 0x0F)
	h.Masked = buf[1]&MaskBit != 0

	off := 2
	switch buf[1] & 0x7F {
	case 126:
		h.PayloadLen = uint64(binary.BigEndian.Uint16(buf[off:]))
		off += 2
	case 127:
		h.PayloadLen = binary.BigEndian.Uint64(buf[off:])
		if h.PayloadLen>>63 != 0 {
			return Head{}, 0, api.NewProtocolError("64-bit payload length with high bit set")
		}
		off += 8
	default:
		h.PayloadLen = uint64(buf[1] & 0x7F)
	}
	if h.Masked {
		copy(h.MaskKey[:], buf[off:off+4])
		off += 4
	}
	return h, off, nil
}

// EncodeHead serializes h into dst using the smallest length class that
// fits h.PayloadLen. It returns the number of bytes produced, or
// io.ErrShortBuffer when dst cannot hold the encoded header.
func EncodeHead(h Head, dst []byte) (int, error) {
	need := 2
	switch {
	case h.PayloadLen <= 125:
	case h.PayloadLen <= 0xFFFF:
		need += 2
	default:
		need += 8
	}
	if h.Masked {
		need += 4
	}
	if len(dst) < need {
		return 0, io.ErrShortBuffer
	}

	b0 := byte(h.Opcode) & 0x0F
	if h.Fin {
		b0 |= FinBit
	}
	dst[0] = b0

	var mb byte
	if h.Masked {
		mb = MaskBit
	}
	off := 2
	switch {
	case h.PayloadLen <= 125:
		dst[1] = byte(h.PayloadLen) | mb
	case h.PayloadLen <= 0xFFFF:
		dst[1] = 126 | mb
		binary.BigEndian.PutUint16(dst[off:], uint16(h.PayloadLen))
		off += 2
	default:
		dst[1] = 127 | mb
		binary.BigEndian.PutUint64(dst[off:], h.PayloadLen)
		off += 8
	}
	if h.Masked {
		copy(dst[off:], h.MaskKey[:])
		off += 4
	}
	return off, nil
}

// Mask XORs buf in place against key, starting at rolling cursor pos,
// and returns the cursor after buf. Applying a mask twice restores the
// original bytes, so the same routine masks and unmasks.
func Mask(buf []byte, key [4]byte, pos int) int {
	for i := range buf {
		buf[i] ^= key[(pos+i)&3]
	}
	return (pos + len(buf)) & 3
}
