// Package vrrp builds VRRPv2 (RFC 3768) and VRRPv3 (RFC 5798)
// advertisements, grounded on vrrppacket.hpp/.cpp.
package vrrp

import (
	"encoding/binary"

	"github.com/pumptool/tcppump/internal/addr"
	"github.com/pumptool/tcppump/internal/checksum"
	"github.com/pumptool/tcppump/internal/ip"
)

// ProtocolNumber is the IP protocol number for VRRP (112).
const ProtocolNumber = 112

const headerLen = 8

var multicastDest = mustIP("224.0.0.18")

func mustIP(s string) addr.IPv4 {
	a, err := addr.ParseIPv4(s, nil)
	if err != nil {
		panic(err)
	}
	return a
}

// Advertisement is a VRRP builder bound to an IPv4 envelope.
type Advertisement struct {
	env *ip.V4

	version    int
	typ        uint8
	vrid       uint8
	prio       uint8
	authType   uint8 // v2 only
	adverInt8  uint8 // v2: whole-second interval
	adverInt12 uint16 // v3: centisecond interval, 12 bits

	virtualIPs []addr.IPv4

	hasChecksum bool
	checksum    uint16
}

// New returns a VRRP builder for the given protocol version (2 or 3).
func New(env *ip.V4, version int) *Advertisement {
	return &Advertisement{env: env, version: version, typ: 1} // type 1 = Advertisement
}

func (a *Advertisement) SetVRID(vrid uint8) { a.vrid = vrid }
func (a *Advertisement) SetPriority(p uint8) { a.prio = p }
func (a *Advertisement) SetType(t uint8)     { a.typ = t }

// SetInterval sets the advertisement interval: whole seconds for v2
// (truncated to 8 bits), centiseconds for v3 (truncated to 12 bits).
func (a *Advertisement) SetInterval(interval uint16) {
	a.adverInt8 = uint8(interval)
	a.adverInt12 = interval & 0x0fff
}

func (a *Advertisement) SetChecksum(c uint16) {
	a.checksum = c
	a.hasChecksum = true
}

// AddVirtualIP appends a virtual (protected) IPv4 address.
func (a *Advertisement) AddVirtualIP(vip addr.IPv4) {
	a.virtualIPs = append(a.virtualIPs, vip)
}

// Compile assembles the VRRP header and virtual-IP list, sets the
// IETF-reserved destination MAC 00:00:5e:00:01:VRID, forces TTL 255 and
// destination 224.0.0.18, and (for v2) appends two zero IPv4 addresses
// as the obsolete authentication-data padding - present in the wire
// payload but never counted in the header's address count.
func (a *Advertisement) Compile() error {
	a.env.EthernetFrame().SetDestMAC(addr.MAC{0x00, 0x00, 0x5e, 0x00, 0x01, a.vrid})
	a.env.SetTTL(255)
	a.env.SetDestination(multicastDest)

	count := len(a.virtualIPs)

	hdr := make([]byte, headerLen)
	hdr[0] = byte((a.version&0x0f)<<4) | (a.typ & 0x0f)
	hdr[1] = a.vrid
	hdr[2] = a.prio
	hdr[3] = byte(count)
	if a.version == 2 {
		hdr[4] = a.authType
		hdr[5] = a.adverInt8
	} else {
		binary.BigEndian.PutUint16(hdr[4:6], a.adverInt12)
	}

	var addrBytes []byte
	for _, vip := range a.virtualIPs {
		addrBytes = append(addrBytes, vip.Bytes()...)
	}
	if a.version == 2 {
		addrBytes = append(addrBytes, 0, 0, 0, 0, 0, 0, 0, 0)
	}

	cs := a.checksum
	if !a.hasChecksum {
		if a.version == 2 {
			cs = checksum.RFC1071(hdr, addrBytes)
		} else {
			pseudo := a.env.PseudoHeader(ProtocolNumber, headerLen+len(addrBytes))
			cs = checksum.RFC1071(pseudo, hdr, addrBytes)
		}
	}
	binary.BigEndian.PutUint16(hdr[6:8], cs)

	return a.env.Compile(ProtocolNumber, hdr, addrBytes)
}
