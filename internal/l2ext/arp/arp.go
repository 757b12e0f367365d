// Package arp builds ARP request/reply frames, including the RFC 5227
// probe and gratuitous-announce shortcuts, grounded on arppacket.hpp/.cpp.
package arp

import (
	"encoding/binary"

	"github.com/pumptool/tcppump/internal/addr"
	"github.com/pumptool/tcppump/internal/eth"
)

// Opcode values.
const (
	OpRequest uint16 = 1
	OpReply   uint16 = 2
)

const packetLen = 28 // hwType+protType+hwAddrSize+protAddrSize+opcode+2*(mac+ip)

var broadcastMAC = addr.MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// Frame builds a single ARP packet over a bare Ethernet frame (ARP has
// no IP envelope of its own).
type Frame struct {
	eth *eth.Frame

	opcode       uint16
	srcMAC       addr.MAC
	srcIP, dstIP addr.IPv4
	dstMAC       addr.MAC
}

// New returns an ARP frame builder.
func New() *Frame {
	return &Frame{eth: eth.New()}
}

// EthernetFrame exposes the underlying Ethernet frame for VLAN tagging.
func (f *Frame) EthernetFrame() *eth.Frame { return f.eth }

// SetAll configures every field of a generic ARP packet (request or
// reply, depending on opcode).
func (f *Frame) SetAll(opcode uint16, srcMAC addr.MAC, srcIP addr.IPv4, dstMAC addr.MAC, dstIP addr.IPv4) {
	f.opcode = opcode
	f.srcMAC = srcMAC
	f.srcIP = srcIP
	f.dstMAC = dstMAC
	f.dstIP = dstIP
}

// Probe builds an RFC 5227 ARP probe: opcode request, zero sender IP,
// zero (unset) target MAC, target IP set to the address being probed.
func (f *Frame) Probe(srcMAC addr.MAC, probedIP addr.IPv4) {
	f.opcode = OpRequest
	f.srcMAC = srcMAC
	f.srcIP = addr.IPv4{}
	f.dstMAC = addr.MAC{}
	f.dstIP = probedIP
}

// Announce builds a gratuitous ARP announcement: opcode request, sender
// and target IP both set to the announced address.
func (f *Frame) Announce(srcMAC addr.MAC, announcedIP addr.IPv4) {
	f.opcode = OpRequest
	f.srcMAC = srcMAC
	f.srcIP = announcedIP
	f.dstMAC = addr.MAC{}
	f.dstIP = announcedIP
}

// Compile serializes the ARP packet: Ethernet destination falls back to
// the broadcast address whenever the target MAC is the null address
// (the probe and announce shortcuts always leave it null).
func (f *Frame) Compile() error {
	dstMAC := f.dstMAC
	if dstMAC == (addr.MAC{}) {
		dstMAC = broadcastMAC
	}

	f.eth.SetSourceMAC(f.srcMAC)
	f.eth.SetDestMAC(dstMAC)
	f.eth.SetEthertype(eth.EthertypeARP)

	p := make([]byte, packetLen)
	binary.BigEndian.PutUint16(p[0:2], 1)                  // hwType: Ethernet
	binary.BigEndian.PutUint16(p[2:4], eth.EthertypeIPv4)  // protType
	p[4] = 6                                               // hwAddrSize
	p[5] = 4                                               // protAddrSize
	binary.BigEndian.PutUint16(p[6:8], f.opcode)
	copy(p[8:14], f.srcMAC[:])
	copy(p[14:18], f.srcIP.Bytes())
	copy(p[18:24], dstMAC[:])
	copy(p[24:28], f.dstIP.Bytes())

	f.eth.SetPayload(p)
	return nil
}
