// Package vxlan builds VXLAN-encapsulated frames (RFC 7348) over UDP,
// grounded on vxlanpacket.hpp/.cpp and adapted from the teacher's
// MarshalVXLANHeader wire-format helper.
package vxlan

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pumptool/tcppump/internal/ip"
	"github.com/pumptool/tcppump/internal/l4/udp"
)

// HeaderSize is the fixed VXLAN header size in bytes (RFC 7348 §5).
const HeaderSize = 8

// DefaultPort is the IANA-assigned VXLAN UDP destination port.
const DefaultPort uint16 = 4789

// flagVNI is the "I" flag (bit 4) marking the VNI field valid; the
// original always sets it.
const flagVNI uint8 = 0x08

// ErrVNIOverflow reports a VNI outside the 24-bit range.
var ErrVNIOverflow = fmt.Errorf("vxlan: VNI exceeds 24-bit range")

// Sentinel errors for the standalone Header marshal/unmarshal helpers,
// used by sinks that forward an already-compiled frame as the VXLAN
// inner payload rather than building it through Frame.
var (
	ErrHeaderTooShort = errors.New("vxlan: header too short: need 8 bytes")
	ErrHeaderNoIFlag  = errors.New("vxlan: I flag (VNI valid) not set")
)

// Header is a parsed VXLAN header (RFC 7348 §5).
type Header struct {
	VNI uint32
}

// MarshalHeader encodes a VXLAN header into buf (must be >= HeaderSize).
// Used by sinks that prepend the header to an arbitrary byte payload
// rather than building the envelope through Frame.Compile.
func MarshalHeader(buf []byte, vni uint32) (int, error) {
	if len(buf) < HeaderSize {
		return 0, ErrHeaderTooShort
	}
	if vni > 0x00ffffff {
		return 0, fmt.Errorf("vni=%d: %w", vni, ErrVNIOverflow)
	}

	buf[0] = flagVNI
	buf[1] = 0
	buf[2] = 0
	buf[3] = 0
	binary.BigEndian.PutUint32(buf[4:8], vni<<8)

	return HeaderSize, nil
}

// UnmarshalHeader parses a VXLAN header from buf (must be >= HeaderSize).
func UnmarshalHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrHeaderTooShort
	}
	if buf[0]&flagVNI == 0 {
		return Header{}, ErrHeaderNoIFlag
	}
	return Header{VNI: binary.BigEndian.Uint32(buf[4:8]) >> 8}, nil
}

// Frame is a VXLAN-over-UDP builder bound to an IP envelope.
type Frame struct {
	seg *udp.Segment
	vni uint32
}

// New returns a VXLAN builder whose UDP destination port defaults to
// DefaultPort (4789).
func New(env ip.Envelope) *Frame {
	seg := udp.New(env)
	seg.SetDestinationPort(DefaultPort)
	return &Frame{seg: seg}
}

func (f *Frame) SetSourcePort(p uint16)      { f.seg.SetSourcePort(p) }
func (f *Frame) SetDestinationPort(p uint16) { f.seg.SetDestinationPort(p) }

// SetVNI sets the 24-bit VXLAN Network Identifier.
func (f *Frame) SetVNI(vni uint32) error {
	if vni > 0x00ffffff {
		return ErrVNIOverflow
	}
	f.vni = vni
	return nil
}

// Compile prepends the 8-byte VXLAN header to payload and hands the
// result to the UDP segment.
func (f *Frame) Compile(payload []byte) error {
	header := make([]byte, HeaderSize)
	header[0] = flagVNI
	binary.BigEndian.PutUint32(header[4:8], f.vni<<8)

	buf := make([]byte, 0, HeaderSize+len(payload))
	buf = append(buf, header...)
	buf = append(buf, payload...)
	return f.seg.Compile(buf)
}
