// Package eth builds Ethernet II / 802.3 / LLC / SNAP frames: the MAC
// header, up to two VLAN tags, an optional LLC/SNAP header, and the
// payload area, tracking the moving ethertype/length field offset as
// VLAN tags are spliced in.
package eth

import (
	"encoding/binary"

	"github.com/pumptool/tcppump/internal/addr"
	"github.com/pumptool/tcppump/internal/bytebuf"
)

// Ethertype/length constants used by the protocol encoders.
const (
	EthertypeIPv4 = 0x0800
	EthertypeARP  = 0x0806
	EthertypeIPv6 = 0x86DD
	EthertypeVLAN = 0x8100 // C-tag
	EthertypeQinQ = 0x88A8 // S-tag
	EthertypeLLDP = 0x88CC
)

// MaxFrameSize bounds a double-tagged frame without FCS (14-byte header +
// 2*4 VLAN + 1500-byte payload).
const MaxFrameSize = 1522

// VLANTag is one 802.1Q/802.1ad tag.
type VLANTag struct {
	TPID uint16 // EthertypeVLAN or EthertypeQinQ
	VID  uint16 // 12 bits
	Prio uint8  // 3 bits
	DEI  bool
}

// LLC carries the optional 802.2 LLC/SNAP header.
type LLC struct {
	DSAP, SSAP uint8
	Control    uint16 // low two bits select 1- vs 2-byte control field
	HasSNAP    bool
	OUI        [3]byte
	SNAPProto  uint16
}

// Frame is an Ethernet II/802.3 frame builder.
type Frame struct {
	srcMAC, dstMAC addr.MAC
	hasDstMAC      bool
	vlans          []VLANTag
	llc            *LLC
	ethertype      uint16
	hasEthertype   bool
	payload        []byte
	raw            []byte
	isRaw          bool
}

// New returns an empty frame builder.
func New() *Frame {
	return &Frame{}
}

// FromRawBytes wraps an already fully-formed frame (MAC header included,
// e.g. from the `raw` instruction without noEthHeader) so it can flow
// through the same []*Frame pipeline as every other encoder's output.
func FromRawBytes(b []byte) *Frame {
	return &Frame{raw: b, isRaw: true}
}

// SetSourceMAC sets the frame's source address.
func (f *Frame) SetSourceMAC(m addr.MAC) { f.srcMAC = m }

// SetDestMAC sets the frame's destination address.
func (f *Frame) SetDestMAC(m addr.MAC) {
	f.dstMAC = m
	f.hasDstMAC = true
}

// HasDestMAC reports whether SetDestMAC has been called, used by the IP
// layer to decide whether multicast-to-MAC auto-derivation applies.
func (f *Frame) HasDestMAC() bool { return f.hasDstMAC }

// SourceMAC/DestMAC return the configured addresses.
func (f *Frame) SourceMAC() addr.MAC { return f.srcMAC }
func (f *Frame) DestMAC() addr.MAC   { return f.dstMAC }

// AddVLANTag appends a VLAN tag in declaration order (up to two total).
func (f *Frame) AddVLANTag(t VLANTag) {
	f.vlans = append(f.vlans, t)
}

// SetLLC installs an LLC/SNAP header.
func (f *Frame) SetLLC(l LLC) { f.llc = &l }

// SetEthertype sets an explicit ethertype/length field value.
func (f *Frame) SetEthertype(et uint16) {
	f.ethertype = et
	f.hasEthertype = true
}

// SetPayload replaces the frame's payload bytes.
func (f *Frame) SetPayload(p []byte) { f.payload = p }

// AppendPayload appends to the frame's payload bytes.
func (f *Frame) AppendPayload(p []byte) { f.payload = append(f.payload, p...) }

// PayloadLength returns the current payload length.
func (f *Frame) PayloadLength() int { return len(f.payload) }

// UpdatePayloadAt overwrites len(p) bytes of the payload starting at
// offset, without changing its length - used to patch in a checksum
// computed after the rest of the header was written.
func (f *Frame) UpdatePayloadAt(offset int, p []byte) {
	copy(f.payload[offset:], p)
}

// PayloadAt8/16 read back already-written payload bytes, used by the IP
// layer's fragment-splitting byte-at-offset accessors.
func (f *Frame) PayloadAt8(offset int) uint8 {
	return f.payload[offset]
}

func (f *Frame) PayloadAt16(offset int) uint16 {
	return binary.BigEndian.Uint16(f.payload[offset : offset+2])
}

// llcLen returns 3 (one-byte control, U-frame, low two bits both set) or
// 4 (two-byte control, I/S-frame, otherwise), plus 5 when a SNAP header
// follows.
func (l *LLC) llcLen() int {
	base := 2 // dsap + ssap
	if l.Control&0x03 == 0x03 {
		base += 1 // U-frame: one-byte control
	} else {
		base += 2 // I/S-frame: two-byte control
	}
	if l.HasSNAP {
		base += 5 // 3-byte OUI + 2-byte protocol id
	}
	return base
}

// Bytes renders the complete frame: MAC header, VLAN tags in declaration
// order, optional LLC/SNAP, then payload. Ethertype/length precedence
// (spec.md §4.4): LLC present -> payload length; else explicit ethertype;
// else payload length (802.3 short form).
func (f *Frame) Bytes() []byte {
	if f.isRaw {
		return f.raw
	}
	buf := bytebuf.NewFixed(MaxFrameSize)
	_ = buf.Append(f.dstMAC.Bytes())
	_ = buf.Append(f.srcMAC.Bytes())

	for _, v := range f.vlans {
		tci := (uint16(v.Prio&0x7) << 13) | uint16(v.VID&0x0fff)
		if v.DEI {
			tci |= 1 << 12
		}
		var tagBytes [4]byte
		binary.BigEndian.PutUint16(tagBytes[0:2], v.TPID)
		binary.BigEndian.PutUint16(tagBytes[2:4], tci)
		_ = buf.Append(tagBytes[:])
	}

	etOffset := buf.Len()
	_ = buf.Append([]byte{0, 0}) // placeholder, patched below

	if f.llc != nil {
		llcLen := f.llc.llcLen()
		var hdr []byte
		hdr = append(hdr, f.llc.DSAP, f.llc.SSAP)
		if f.llc.Control&0x03 == 0x03 {
			hdr = append(hdr, byte(f.llc.Control))
		} else {
			hdr = append(hdr, byte(f.llc.Control>>8), byte(f.llc.Control))
		}
		if f.llc.HasSNAP {
			hdr = append(hdr, f.llc.OUI[:]...)
			var proto [2]byte
			binary.BigEndian.PutUint16(proto[:], f.llc.SNAPProto)
			hdr = append(hdr, proto[:]...)
		}
		_ = buf.Append(hdr)
		etVal := uint16(llcLen + len(f.payload))
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], etVal)
		_ = buf.WriteAt(etOffset, b[:])
	} else if f.hasEthertype {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], f.ethertype)
		_ = buf.WriteAt(etOffset, b[:])
	} else {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(len(f.payload)))
		_ = buf.WriteAt(etOffset, b[:])
	}

	_ = buf.Append(f.payload)
	return buf.Bytes()
}
