// Package bytebuf provides the two byte-buffer shapes the packet encoders
// build frames in: a growing buffer for variable-length construction, and
// a fixed-capacity buffer for frame types with a hard maximum size (the
// Ethernet frame builder uses the fixed variant so double-tagged frames
// can never overflow their backing array).
package bytebuf

import (
	"bytes"
	"errors"
	"encoding/binary"
)

// ErrOverflow is returned when an append to a Fixed buffer would exceed
// its capacity.
var ErrOverflow = errors.New("bytebuf: fixed buffer overflow")

// Growing wraps bytes.Buffer; Go's implementation already grows in
// amortized chunks, which is the idiomatic equivalent of the original's
// explicit 2 KiB chunked allocator.
type Growing struct {
	buf bytes.Buffer
}

// NewGrowing returns an empty Growing buffer.
func NewGrowing() *Growing {
	return &Growing{}
}

// Append writes p to the end of the buffer.
func (g *Growing) Append(p []byte) {
	g.buf.Write(p)
}

// AppendU16BE appends a big-endian 16-bit integer.
func (g *Growing) AppendU16BE(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	g.buf.Write(b[:])
}

// AppendU32BE appends a big-endian 32-bit integer.
func (g *Growing) AppendU32BE(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	g.buf.Write(b[:])
}

// Bytes returns the accumulated bytes. The returned slice aliases the
// buffer's internal storage and must not be retained across further
// appends.
func (g *Growing) Bytes() []byte {
	return g.buf.Bytes()
}

// Len returns the number of bytes written so far.
func (g *Growing) Len() int {
	return g.buf.Len()
}

// Fixed is a caller-sized buffer that rejects appends past its capacity,
// matching the original's fixed cByteArray used for frames with a hard
// maximum size (e.g. a double-tagged Ethernet frame).
type Fixed struct {
	data []byte
	n    int
}

// NewFixed allocates a Fixed buffer with the given capacity.
func NewFixed(capacity int) *Fixed {
	return &Fixed{data: make([]byte, capacity)}
}

// Append writes p at the current write position, growing Len() by
// len(p). Returns ErrOverflow without modifying the buffer if p would not
// fit.
func (f *Fixed) Append(p []byte) error {
	if f.n+len(p) > len(f.data) {
		return ErrOverflow
	}
	copy(f.data[f.n:], p)
	f.n += len(p)
	return nil
}

// InsertAt shifts the bytes from offset onward right by len(p) and writes
// p at offset. Used to splice a VLAN tag into an already-built frame.
func (f *Fixed) InsertAt(offset int, p []byte) error {
	if f.n+len(p) > len(f.data) {
		return ErrOverflow
	}
	copy(f.data[offset+len(p):f.n+len(p)], f.data[offset:f.n])
	copy(f.data[offset:], p)
	f.n += len(p)
	return nil
}

// WriteAt overwrites len(p) bytes at offset without changing Len().
func (f *Fixed) WriteAt(offset int, p []byte) error {
	if offset+len(p) > f.n {
		return ErrOverflow
	}
	copy(f.data[offset:], p)
	return nil
}

// Bytes returns the written portion of the buffer.
func (f *Fixed) Bytes() []byte {
	return f.data[:f.n]
}

// Len returns the number of bytes written so far.
func (f *Fixed) Len() int {
	return f.n
}

// Cap returns the buffer's total capacity.
func (f *Fixed) Cap() int {
	return len(f.data)
}
