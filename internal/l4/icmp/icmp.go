// Package icmp builds ICMPv4 messages: the raw type/code/checksum
// builder, the embedded-inet-header unreachable/quench/time-exceeded
// family, redirect, and echo/echo-reply, grounded on icmppacket.hpp/.cpp
// and spec.md §4.6 (authoritative where the two disagree).
package icmp

import (
	"encoding/binary"

	"github.com/pumptool/tcppump/internal/addr"
	"github.com/pumptool/tcppump/internal/checksum"
	"github.com/pumptool/tcppump/internal/ip"
)

// ProtocolNumber is the IP protocol number for ICMP (1).
const ProtocolNumber = 1

// Message types used by the canned instruction shortcuts.
const (
	TypeEchoReply      = 0
	TypeUnreachable     = 3
	TypeSourceQuench    = 4
	TypeRedirect        = 5
	TypeEcho            = 8
	TypeTimeExceeded    = 11
	TypeParameterProblem = 12
)

const headerLen = 4

// Datagram is an ICMPv4 message builder bound to an IPv4 envelope -
// ICMP only ever rides over IPv4 in this implementation, matching the
// absence of an ICMPv6 variant in the protocol table.
type Datagram struct {
	env *ip.V4
}

// New returns an ICMPv4 builder over env.
func New(env *ip.V4) *Datagram { return &Datagram{env: env} }

// CompileRaw fills the 4-byte header and hands header+payload to the IP
// envelope. When payload is nil and typ is one of the embedded-inet-
// header types (3, 4, 5, 11, 12), a synthetic inner IPv4+UDP header is
// generated with source/destination reversed relative to the outer
// envelope, protocol 17, TTL 64, and a zero-length UDP payload.
// checksumOverride, if non-nil, replaces the computed checksum in the
// already-serialized frame (spec.md's `chksum` parameter).
func (d *Datagram) CompileRaw(typ, code uint8, payload []byte, checksumOverride *uint16) error {
	if payload == nil && hasEmbeddedInetHeader(typ) {
		payload = d.syntheticInnerHeader()
	}
	return d.compile(typ, code, payload, checksumOverride)
}

// CompileWithEmbedded wraps an already-built embedded packet (real bytes
// the script supplied) as the ICMP payload, without synthesizing one.
func (d *Datagram) CompileWithEmbedded(typ, code uint8, embedded []byte) error {
	return d.compile(typ, code, embedded, nil)
}

// CompileRedirect builds a type-5 redirect: the 4-byte gateway address
// followed by the embedded header the script supplied.
func (d *Datagram) CompileRedirect(code uint8, gw addr.IPv4, embedded []byte) error {
	payload := make([]byte, 0, 4+len(embedded))
	payload = append(payload, gw.Bytes()...)
	payload = append(payload, embedded...)
	return d.compile(TypeRedirect, code, payload, nil)
}

// CompilePing builds an echo request (reply=false, type 8) or echo reply
// (reply=true, type 0) with a 2-byte identifier, 2-byte sequence number,
// and caller-supplied data.
func (d *Datagram) CompilePing(reply bool, id, seq uint16, data []byte) error {
	typ := uint8(TypeEcho)
	if reply {
		typ = TypeEchoReply
	}
	payload := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(payload[0:2], id)
	binary.BigEndian.PutUint16(payload[2:4], seq)
	copy(payload[4:], data)
	return d.compile(typ, 0, payload, nil)
}

func (d *Datagram) compile(typ, code uint8, payload []byte, checksumOverride *uint16) error {
	hdr := make([]byte, headerLen)
	hdr[0] = typ
	hdr[1] = code
	cs := checksum.RFC1071(hdr, payload)
	binary.BigEndian.PutUint16(hdr[2:4], cs)

	if err := d.env.Compile(ProtocolNumber, hdr, payload); err != nil {
		return err
	}

	if checksumOverride != nil {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], *checksumOverride)
		d.env.Frames()[0].UpdatePayloadAt(d.env.HeaderLen()+2, b[:])
	}
	return nil
}

// syntheticInnerHeader builds the 20-byte IPv4 header + 8-byte UDP
// header the original embeds when no real inner packet is supplied for
// an embedded-inet-header type: source and destination swapped relative
// to the outer envelope, protocol UDP, TTL 64, zero-length payload.
func (d *Datagram) syntheticInnerHeader() []byte {
	const udpProtocol = 17
	inner := make([]byte, 28) // 20-byte IPv4 header + 8-byte UDP header
	inner[0] = 0x45
	binary.BigEndian.PutUint16(inner[2:4], 28)
	inner[8] = 64
	inner[9] = udpProtocol
	copy(inner[12:16], d.env.Destination().Bytes()) // reversed: outer dst becomes inner src
	copy(inner[16:20], d.env.Source().Bytes())      // outer src becomes inner dst
	cs := checksum.RFC1071(inner[0:20])
	binary.BigEndian.PutUint16(inner[10:12], cs)
	binary.BigEndian.PutUint16(inner[24:26], 8) // udp length, header only
	return inner
}

func hasEmbeddedInetHeader(typ uint8) bool {
	switch typ {
	case TypeUnreachable, TypeSourceQuench, TypeRedirect, TypeTimeExceeded, TypeParameterProblem:
		return true
	}
	return false
}
