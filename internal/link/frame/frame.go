// Package frame implements the HDLC-style framing layer of the link:
// flag-delimited, byte-stuffed bodies with a CRC32 integrity trailer.
//
// Wire format:
//
//	FLAG (0x7E)
//	[stuffed bytes of]
//	  body  : opaque link bytes (the ARQ layer owns the layout)
//	  crc32 : uint32 LE, IEEE 802.3 polynomial, over body
//	FLAG (0x7E)
//
// All occurrences of FLAG (0x7E) and ESC (0x7D) inside body+crc are
// escaped as: ESC, byte^0x20. A correctly stuffed frame therefore never
// contains an unescaped FLAG except as its two delimiters.
package frame

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

const (
	Flag   byte = 0x7E
	Escape byte = 0x7D

	escapeXOR byte = 0x20

	crcLen = 4

	// MaxBody bounds the unescaped body of one frame. At the link's
	// slot rates a frame must stay small enough to transmit inside one
	// ack timeout window.
	MaxBody = 160
)

var (
	ErrCRCMismatch  = errors.New("frame: crc mismatch")
	ErrTruncated    = errors.New("frame: truncated frame")
	ErrBadEscape    = errors.New("frame: dangling escape byte")
	ErrBodyTooLarge = errors.New("frame: body too large")
)

// Encode wraps body in a complete wire frame: CRC trailer appended,
// special bytes stuffed, flag delimiters added.
func Encode(body []byte) ([]byte, error) {
	if len(body) > MaxBody {
		return nil, ErrBodyTooLarge
	}

	inner := make([]byte, 0, len(body)+crcLen)
	inner = append(inner, body...)
	var crc [crcLen]byte
	binary.LittleEndian.PutUint32(crc[:], crc32.ChecksumIEEE(body))
	inner = append(inner, crc[:]...)

	out := make([]byte, 0, len(inner)+2)
	out = append(out, Flag)
	out = append(out, stuff(inner)...)
	out = append(out, Flag)
	return out, nil
}

// Decode validates one fully buffered candidate frame and returns its
// body. raw must start and end with FLAG; everything between is
// unstuffed, the trailing 4 bytes split off as CRC32 and recomputed
// over the rest. Any mismatch discards the frame whole.
func Decode(raw []byte) ([]byte, error) {
	if len(raw) < 2 || raw[0] != Flag || raw[len(raw)-1] != Flag {
		return nil, ErrTruncated
	}
	inner, err := unstuff(raw[1 : len(raw)-1])
	if err != nil {
		return nil, err
	}
	if len(inner) < crcLen {
		return nil, ErrTruncated
	}
	body := inner[:len(inner)-crcLen]
	want := binary.LittleEndian.Uint32(inner[len(inner)-crcLen:])
	if crc32.ChecksumIEEE(body) != want {
		return nil, ErrCRCMismatch
	}
	return body, nil
}

func stuff(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, b := range data {
		if b == Flag || b == Escape {
			out = append(out, Escape, b^escapeXOR)
			continue
		}
		out = append(out, b)
	}
	return out
}

func unstuff(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != Escape {
			out = append(out, data[i])
			continue
		}
		if i+1 >= len(data) {
			return nil, ErrBadEscape
		}
		i++
		out = append(out, data[i]^escapeXOR)
	}
	return out, nil
}

// Scanner accumulates link bytes one at a time and reports each
// FLAG-delimited candidate frame as it completes. Bytes observed before
// the first opening FLAG are discarded; back-to-back FLAG bytes restart
// the candidate rather than yielding an empty frame.
type Scanner struct {
	buf     []byte
	inFrame bool
}

// Push feeds one decoded byte. When b closes a non-empty candidate, the
// raw frame (flags included) is returned and the scanner rearms for the
// next frame.
func (s *Scanner) Push(b byte) ([]byte, bool) {
	if b != Flag {
		if s.inFrame {
			s.buf = append(s.buf, b)
		}
		return nil, false
	}
	if s.inFrame && len(s.buf) > 0 {
		raw := make([]byte, 0, len(s.buf)+2)
		raw = append(raw, Flag)
		raw = append(raw, s.buf...)
		raw = append(raw, Flag)
		s.buf = s.buf[:0]
		return raw, true
	}
	s.inFrame = true
	s.buf = s.buf[:0]
	return nil, false
}

// Pending reports whether the scanner is mid-frame with buffered bytes.
func (s *Scanner) Pending() bool {
	return s.inFrame && len(s.buf) > 0
}

// Reset drops any partial candidate. Called at reception window
// boundaries so a stalled frame cannot contaminate the next one.
func (s *Scanner) Reset() {
	s.buf = s.buf[:0]
	s.inFrame = false
}
