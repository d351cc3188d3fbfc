// Package stream implements the ByteStream primitive that the blackbox log
// decoder treats as an external collaborator (spec §6): a positioned cursor
// over log bytes offering byte/char reads, variable-byte integer reads, and
// the tag-encoded group reads used by the frame decoder.
//
// A Reader never allocates a copy of the input; it holds only a position
// into the caller-owned buffer.
package stream

import (
	"github.com/flightlog/blackboxlog/errs"
)

// EOF is the distinguished non-byte sentinel returned by ReadChar and
// PeekChar when the cursor is at or past End.
const EOF = -1

// Reader is a positioned cursor over a byte slice. It is not safe for
// concurrent use; callers that need to parse multiple logs concurrently
// should use one Reader per buffer (spec §5).
type Reader struct {
	data []byte

	// Start, Pos and End bound the window the Reader operates over. Pos is
	// the next byte to be read. End is exclusive and may be narrowed at
	// runtime (e.g. by a LOG_END event, spec §4.6).
	Start int
	Pos   int
	End   int

	// EOFHit is set the first time a read runs past End. It is never
	// cleared automatically; the dispatcher clears it explicitly when it
	// resynchronizes (spec §4.5).
	EOFHit bool

	pushedBack bool
	pushback   byte
}

// NewReader creates a Reader over data[start:end].
func NewReader(data []byte, start, end int) (*Reader, error) {
	if end < start {
		return nil, errs.ErrNegativeRange
	}

	return &Reader{
		data:  data,
		Start: start,
		Pos:   start,
		End:   end,
	}, nil
}

// SetEnd narrows the exclusive end of the readable window. Used by the
// LOG_END event handler to clamp the stream (spec §4.6, S6).
func (r *Reader) SetEnd(end int) {
	if end < r.End {
		r.End = end
	}
}

// Seek repositions the cursor without touching Start/End/EOFHit bookkeeping
// beyond what the caller explicitly requests. Used by the resynchronizer to
// rewind one byte past a corrupt frame's start (spec §4.5).
func (r *Reader) Seek(pos int) {
	r.Pos = pos
	r.pushedBack = false
}

// AtEnd reports whether the cursor has reached the exclusive end of the
// readable window.
func (r *Reader) AtEnd() bool {
	return r.Pos >= r.End
}

// ReadByte consumes and returns the next byte, or 0 with EOFHit set if the
// stream is exhausted.
func (r *Reader) ReadByte() byte {
	if r.pushedBack {
		r.pushedBack = false
		r.Pos++

		return r.pushback
	}

	if r.Pos >= r.End {
		r.EOFHit = true

		return 0
	}

	b := r.data[r.Pos]
	r.Pos++

	return b
}

// ReadChar consumes and returns the next byte as an int, or EOF if the
// stream is exhausted. It never sets EOFHit: callers use ReadChar to probe
// for the end of a header line, which is a normal, non-corrupt condition.
func (r *Reader) ReadChar() int {
	if r.pushedBack {
		r.pushedBack = false
		r.Pos++

		return int(r.pushback)
	}

	if r.Pos >= r.End {
		return EOF
	}

	c := r.data[r.Pos]
	r.Pos++

	return int(c)
}

// UnreadChar pushes back a single character so the next ReadChar or
// ReadByte returns it again. Only one level of pushback is supported.
func (r *Reader) UnreadChar(c byte) {
	r.pushback = c
	r.pushedBack = true
	r.Pos--
}

// PeekChar returns the next byte as an int without consuming it, or EOF.
func (r *Reader) PeekChar() int {
	c := r.ReadChar()
	if c != EOF {
		r.UnreadChar(byte(c))
	}

	return c
}

// ReadS8 reads one byte as a signed 8-bit integer.
func (r *Reader) ReadS8() int8 {
	return int8(r.ReadByte())
}

// ReadS16 reads two bytes, little-endian, as a signed 16-bit integer.
func (r *Reader) ReadS16() int16 {
	lo := r.ReadByte()
	hi := r.ReadByte()

	return int16(uint16(lo) | uint16(hi)<<8)
}

// ReadUnsignedVB reads an unsigned LEB128-style variable-byte integer: each
// byte contributes 7 bits, with the high bit signalling continuation.
func (r *Reader) ReadUnsignedVB() uint32 {
	var result uint32

	for shift := uint(0); shift < 35; shift += 7 {
		b := r.ReadByte()
		result |= uint32(b&0x7f) << shift

		if b&0x80 == 0 {
			break
		}
	}

	return result
}

// ReadSignedVB reads a ZigZag-encoded variable-byte integer: the unsigned
// value 2*v encodes a non-negative v and 2*|v|-1 encodes a negative v.
func (r *Reader) ReadSignedVB() int32 {
	uv := r.ReadUnsignedVB()

	return int32(uv>>1) ^ -int32(uv&1)
}

// Slice returns a read-only view of the underlying buffer covering
// [start, start+length), clamped to the buffer's actual bounds. Used by the
// dispatcher to hand a frame's raw bytes to the stats digest (spec §8
// testable properties #5, #9).
func (r *Reader) Slice(start, length int) []byte {
	end := start + length
	if end > len(r.data) {
		end = len(r.data)
	}

	if start < 0 || start > end {
		return nil
	}

	return r.data[start:end]
}

// ReadString reads exactly n bytes and returns them as a new slice.
func (r *Reader) ReadString(n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = r.ReadByte()
	}

	return out
}
