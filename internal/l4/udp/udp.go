// Package udp builds UDP segments over an IPv4 or IPv6 envelope,
// grounded on the original udppacket.cpp.
package udp

import (
	"encoding/binary"

	"github.com/pumptool/tcppump/internal/checksum"
	"github.com/pumptool/tcppump/internal/eth"
	"github.com/pumptool/tcppump/internal/ip"
)

// ProtocolNumber is the IP protocol number for UDP (17).
const ProtocolNumber = 17

const headerLen = 8

// Segment is a UDP segment builder bound to an IP envelope.
type Segment struct {
	env ip.Envelope

	srcPort, dstPort uint16
	hasChecksum      bool
	checksum         uint16
}

// New returns a UDP builder over env (an *ip.V4 or *ip.V6).
func New(env ip.Envelope) *Segment { return &Segment{env: env} }

func (s *Segment) SetSourcePort(p uint16)      { s.srcPort = p }
func (s *Segment) SetDestinationPort(p uint16) { s.dstPort = p }

// SetChecksum overrides the computed checksum (spec.md §4: "user-supplied
// checksum overrides the computation").
func (s *Segment) SetChecksum(c uint16) {
	s.checksum = c
	s.hasChecksum = true
}

// Compile assembles the UDP header over payload and hands the segment to
// the IP envelope for fragmentation/serialization.
func (s *Segment) Compile(payload []byte) error {
	hdr := make([]byte, headerLen)
	binary.BigEndian.PutUint16(hdr[0:2], s.srcPort)
	binary.BigEndian.PutUint16(hdr[2:4], s.dstPort)
	binary.BigEndian.PutUint16(hdr[4:6], uint16(headerLen+len(payload)))
	// checksum field left zero for the pseudo-header computation below

	if err := s.env.Compile(ProtocolNumber, hdr, payload); err != nil {
		return err
	}

	cs := s.checksum
	if !s.hasChecksum {
		pseudo := s.env.PseudoHeader(ProtocolNumber, headerLen+len(payload))
		cs = checksum.RFC1071(pseudo, hdr, payload)
		if cs == 0 {
			cs = 0xffff
		}
	}
	binary.BigEndian.PutUint16(hdr[6:8], cs)
	patchChecksum(s.env.Frames()[0], cs)
	return nil
}

// patchChecksum overwrites the 2-byte checksum field the IP envelope
// already serialized into the first fragment's payload, at the fixed
// offset (envelope header length + 6 bytes into the UDP header).
func patchChecksum(f *eth.Frame, cs uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], cs)
	f.UpdatePayloadAt(udpChecksumOffset(f), b[:])
}

// udpChecksumOffset locates the checksum field within the first
// fragment's payload: the IP header occupies the bytes before the UDP
// header, whose checksum sits 6 bytes in.
func udpChecksumOffset(f *eth.Frame) int {
	return ipHeaderLenFromFrame(f) + 6
}

// ipHeaderLenFromFrame reads the IHL nibble from the already-serialized
// IPv4 header, or returns the fixed 40-byte IPv6 header length when the
// first nibble indicates IP version 6.
func ipHeaderLenFromFrame(f *eth.Frame) int {
	verIHL := f.PayloadAt8(0)
	if verIHL>>4 == 6 {
		return 40
	}
	return int(verIHL&0x0f) * 4
}
