// Package gre builds GRE (RFC 2784/2890) encapsulated datagrams over IPv4
// or IPv6, grounded on grepacket.hpp/.cpp.
package gre

import (
	"encoding/binary"

	"github.com/pumptool/tcppump/internal/checksum"
	"github.com/pumptool/tcppump/internal/ip"
)

// ProtocolNumber is the IP protocol number for GRE (47).
const ProtocolNumber = 47

const basicHeaderLen = 4

const (
	flagChecksum uint8 = 0x80
	flagKey      uint8 = 0x20
	flagSequence uint8 = 0x10
)

// Datagram is a GRE builder bound to an IP envelope (v4 or v6 - GRE's
// header layout does not depend on the outer IP version).
type Datagram struct {
	env ip.Envelope

	protocol uint16

	hasChecksum bool
	checksum    uint16
	hasKey      bool
	key         uint32
	hasSeq      bool
	seq         uint32
}

// New returns a GRE builder over env.
func New(env ip.Envelope) *Datagram {
	return &Datagram{env: env}
}

// SetProtocolType sets the EtherType of the encapsulated payload.
func (d *Datagram) SetProtocolType(proto uint16) { d.protocol = proto }

// SetKey attaches the optional 32-bit key field.
func (d *Datagram) SetKey(key uint32) {
	d.key = key
	d.hasKey = true
}

// SetSequence attaches the optional 32-bit sequence number field.
func (d *Datagram) SetSequence(seq uint32) {
	d.seq = seq
	d.hasSeq = true
}

// SetChecksum attaches an explicit checksum and disables automatic
// computation. A zero value re-enables automatic computation, matching
// the original's `chksum == 0` convention.
func (d *Datagram) SetChecksum(c uint16) {
	d.checksum = c
	d.hasChecksum = true
}

// Compile assembles the GRE header (basic header plus whichever of the
// checksum/key/sequence words are enabled, in that fixed order) and
// hands it with payload to the IP envelope.
func (d *Datagram) Compile(payload []byte) error {
	calcChecksum := d.hasChecksum && d.checksum == 0

	headerLen := basicHeaderLen
	if d.hasChecksum {
		headerLen += 4
	}
	if d.hasKey {
		headerLen += 4
	}
	if d.hasSeq {
		headerLen += 4
	}

	hdr := make([]byte, headerLen)
	var flags uint8
	if d.hasChecksum {
		flags |= flagChecksum
	}
	if d.hasKey {
		flags |= flagKey
	}
	if d.hasSeq {
		flags |= flagSequence
	}
	hdr[0] = flags
	hdr[1] = 0 // version
	binary.BigEndian.PutUint16(hdr[2:4], d.protocol)

	off := basicHeaderLen
	checksumOffset := -1
	if d.hasChecksum {
		checksumOffset = off
		binary.BigEndian.PutUint16(hdr[off:off+2], d.checksum)
		// reserved word following the checksum stays zero
		off += 4
	}
	if d.hasKey {
		binary.BigEndian.PutUint32(hdr[off:off+4], d.key)
		off += 4
	}
	if d.hasSeq {
		binary.BigEndian.PutUint32(hdr[off:off+4], d.seq)
		off += 4
	}

	if calcChecksum {
		cs := checksum.RFC1071(hdr, payload)
		binary.BigEndian.PutUint16(hdr[checksumOffset:checksumOffset+2], cs)
	}

	return d.env.Compile(ProtocolNumber, hdr, payload)
}
