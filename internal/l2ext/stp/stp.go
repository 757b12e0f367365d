// Package stp builds IEEE 802.1D Spanning Tree and 802.1w Rapid Spanning
// Tree BPDUs, carried over an 802.3 LLC frame (DSAP=SSAP=0x42).
package stp

import (
	"encoding/binary"

	"github.com/pumptool/tcppump/internal/addr"
	"github.com/pumptool/tcppump/internal/eth"
)

// BPDU types.
const (
	TypeConfig = 0x00
	TypeTCN    = 0x80
	TypeRST    = 0x02
)

// Protocol version identifiers.
const (
	VersionSTP  = 0
	VersionRSTP = 2
)

// RSTP flag bits.
const (
	FlagTopologyChange uint8 = 0x01
	FlagProposal       uint8 = 0x02
	FlagPortRoleMask   uint8 = 0x0c // bits 2-3
	FlagLearning       uint8 = 0x10
	FlagForwarding     uint8 = 0x20
	FlagAgreement      uint8 = 0x40
	FlagTopologyChangeAck uint8 = 0x80
)

// Port roles, packed into FlagPortRoleMask.
const (
	PortRoleAlternate uint8 = 0x01 << 2
	PortRoleRoot      uint8 = 0x02 << 2
	PortRoleDesignated uint8 = 0x03 << 2
)

var defaultDestMAC = addr.MAC{0x01, 0x80, 0xc2, 0x00, 0x00, 0x00}

// BridgeID is an 8-byte bridge/root identifier: 4-bit priority multiplier,
// 12-bit system ID extension (typically a VLAN ID), 6-byte MAC.
type BridgeID struct {
	Priority uint8 // 0-15, placed in the top nibble of the priority word
	SystemID uint16 // 12 bits
	MAC      addr.MAC
}

func (b BridgeID) marshal() [8]byte {
	var out [8]byte
	word := uint16(b.Priority&0x0f)<<12 | (b.SystemID & 0x0fff)
	binary.BigEndian.PutUint16(out[0:2], word)
	copy(out[2:8], b.MAC[:])
	return out
}

// BPDU builds one spanning-tree frame.
type BPDU struct {
	eth *eth.Frame

	rstp bool
	typ  uint8

	flags uint8

	root       BridgeID
	rootCost   uint32
	bridge     BridgeID
	portID     uint16
	messageAge float64
	maxAge     float64
	helloTime  float64
	fwdDelay   float64
}

// New returns an STP (802.1D) BPDU builder.
func New() *BPDU {
	f := &BPDU{eth: eth.New(), typ: TypeConfig}
	f.eth.SetDestMAC(defaultDestMAC)
	f.eth.SetLLC(eth.LLC{DSAP: 0x42, SSAP: 0x42, Control: 0x03})
	return f
}

// NewRSTP returns an 802.1w Rapid Spanning Tree BPDU builder.
func NewRSTP() *BPDU {
	b := New()
	b.rstp = true
	b.typ = TypeRST
	return b
}

// EthernetFrame exposes the underlying frame for MAC/VLAN overrides.
func (b *BPDU) EthernetFrame() *eth.Frame { return b.eth }

// SetTCN marks this BPDU as a Topology Change Notification - the
// smallest possible BPDU, carrying only protocol ID, version and type.
func (b *BPDU) SetTCN() { b.typ = TypeTCN }

func (b *BPDU) SetRoot(id BridgeID)      { b.root = id }
func (b *BPDU) SetRootPathCost(c uint32) { b.rootCost = c }
func (b *BPDU) SetBridge(id BridgeID)    { b.bridge = id }
func (b *BPDU) SetPortID(priority uint8, port uint16) {
	b.portID = uint16(priority&0x0f)<<12 | (port & 0x0fff)
}
func (b *BPDU) SetMessageAge(seconds float64)  { b.messageAge = seconds }
func (b *BPDU) SetMaxAge(seconds float64)      { b.maxAge = seconds }
func (b *BPDU) SetHelloTime(seconds float64)   { b.helloTime = seconds }
func (b *BPDU) SetForwardDelay(seconds float64) { b.fwdDelay = seconds }

func (b *BPDU) SetTopologyChange(v bool)    { b.setFlag(FlagTopologyChange, v) }
func (b *BPDU) SetTopologyChangeAck(v bool) { b.setFlag(FlagTopologyChangeAck, v) }
func (b *BPDU) SetProposal(v bool)          { b.setFlag(FlagProposal, v) }
func (b *BPDU) SetAgreement(v bool)         { b.setFlag(FlagAgreement, v) }
func (b *BPDU) SetLearning(v bool)          { b.setFlag(FlagLearning, v) }
func (b *BPDU) SetForwarding(v bool)        { b.setFlag(FlagForwarding, v) }

// SetPortRole sets the 2-bit RSTP port role field (alternate/root/designated).
func (b *BPDU) SetPortRole(role uint8) {
	b.flags = (b.flags &^ FlagPortRoleMask) | (role & FlagPortRoleMask)
}

func (b *BPDU) setFlag(mask uint8, v bool) {
	if v {
		b.flags |= mask
	} else {
		b.flags &^= mask
	}
}

// timeToUnits encodes seconds in 1/256-second fixed-point units.
func timeToUnits(seconds float64) uint16 {
	v := seconds * 256
	if v < 0 {
		v = 0
	}
	if v > 0xffff {
		v = 0xffff
	}
	return uint16(v)
}

// Compile assembles the BPDU payload and hands it to the Ethernet layer.
func (b *BPDU) Compile() error {
	var payload []byte
	switch b.typ {
	case TypeTCN:
		payload = []byte{0x00, 0x00, VersionSTP, TypeTCN}
	default:
		version := uint8(VersionSTP)
		length := 35
		if b.rstp {
			version = VersionRSTP
			length = 36
		}
		payload = make([]byte, length)
		binary.BigEndian.PutUint16(payload[0:2], 0x0000)
		payload[2] = version
		payload[3] = b.typ
		payload[4] = b.flags
		root := b.root.marshal()
		copy(payload[5:13], root[:])
		binary.BigEndian.PutUint32(payload[13:17], b.rootCost)
		bridge := b.bridge.marshal()
		copy(payload[17:25], bridge[:])
		binary.BigEndian.PutUint16(payload[25:27], b.portID)
		binary.BigEndian.PutUint16(payload[27:29], timeToUnits(b.messageAge))
		binary.BigEndian.PutUint16(payload[29:31], timeToUnits(b.maxAge))
		binary.BigEndian.PutUint16(payload[31:33], timeToUnits(b.helloTime))
		binary.BigEndian.PutUint16(payload[33:35], timeToUnits(b.fwdDelay))
		if b.rstp {
			payload[35] = 0x00 // version 1 length
		}
	}

	b.eth.SetPayload(payload)
	return nil
}
