// Package ip assembles the IPv4/IPv6 layer-3 envelope: header fields,
// the router-alert option, pseudo-header production for L4 checksums,
// and IPv4 fragmentation. An envelope owns one or more Ethernet frames -
// more than one only when fragmentation splits a datagram - following the
// "IP owns Ethernet" composition spec.md §9 asks for in place of the
// original's class-inheritance chain.
package ip

import (
	"encoding/binary"
	"errors"

	"github.com/pumptool/tcppump/internal/addr"
	"github.com/pumptool/tcppump/internal/checksum"
	"github.com/pumptool/tcppump/internal/compilectx"
	"github.com/pumptool/tcppump/internal/eth"
)

// Errors surfaced by IPv4 compilation.
var (
	ErrFragmentationImpossible = errors.New("ip: L4 header alone exceeds the MTU")
	ErrPacketTooLarge          = errors.New("ip: datagram exceeds 65535 bytes")
)

const (
	ipv4BaseHeaderLen = 20
	routerAlertOptLen = 4
	flagDF            = 0x4000
	flagMF            = 0x2000
	fragOffsetMask    = 0x1fff
)

// RouterAlertOption is the fixed 4-byte IPv4 router-alert option
// (0x94 0x04 0x00 0x00).
var RouterAlertOption = [4]byte{0x94, 0x04, 0x00, 0x00}

// V4 is an IPv4 datagram builder.
type V4 struct {
	ctx *compilectx.Context

	src, dst    addr.IPv4
	dscp, ecn   uint8
	ttl         uint8
	df          bool
	routerAlert bool
	hasID       bool
	id          uint16

	template *eth.Frame
	frames   []*eth.Frame
}

// NewV4 returns an IPv4 builder whose first (template) Ethernet frame is
// pre-configured with EthertypeIPv4 and no destination MAC yet.
func NewV4(ctx *compilectx.Context) *V4 {
	f := eth.New()
	f.SetEthertype(eth.EthertypeIPv4)
	f.SetSourceMAC(ctx.OwnMAC)
	return &V4{ctx: ctx, src: ctx.OwnIPv4, ttl: 64, template: f}
}

// EthernetFrame returns the (first, template) Ethernet frame so callers
// may set the destination MAC, VLAN tags, or LLC/SNAP before Compile.
func (v *V4) EthernetFrame() *eth.Frame { return v.template }

// Frames returns every emitted Ethernet frame, one per IP fragment, after
// Compile has run - the Linkable surface (spec.md §3) every protocol
// encoder's output ultimately exposes to the driver.
func (v *V4) Frames() []*eth.Frame { return v.frames }

func (v *V4) SetSource(ip addr.IPv4)      { v.src = ip }
func (v *V4) SetDestination(ip addr.IPv4) { v.dst = ip }
func (v *V4) Source() addr.IPv4           { return v.src }
func (v *V4) Destination() addr.IPv4      { return v.dst }
func (v *V4) SetDSCP(d uint8)             { v.dscp = d & 0x3f }
func (v *V4) SetECN(e uint8)              { v.ecn = e & 0x3 }
func (v *V4) SetTTL(ttl uint8)            { v.ttl = ttl }
func (v *V4) SetDontFragment(df bool)     { v.df = df }
func (v *V4) SetIdentification(id uint16) { v.id = id; v.hasID = true }

// AddRouterAlertOption appends the 4-byte router-alert option, used by
// IGMP per spec.md §4.6.
func (v *V4) AddRouterAlertOption() { v.routerAlert = true }

func (v *V4) headerLen() int {
	if v.routerAlert {
		return ipv4BaseHeaderLen + routerAlertOptLen
	}
	return ipv4BaseHeaderLen
}

// Compile assembles one or more Ethernet frames carrying protocol over
// l4hdr+payload, fragmenting as needed per the MTU in v.ctx. This is a
// direct port of the original cIPv4Packet::compile fragmentation
// algorithm (spec.md §4.5).
func (v *V4) Compile(protocol uint8, l4hdr, payload []byte) error {
	ipHeaderLen := v.headerLen()
	l4Len, payloadLen := len(l4hdr), len(payload)

	if l4Len+payloadLen+ipHeaderLen > 65535 {
		return ErrPacketTooLarge
	}
	if l4Len > v.ctx.MTU-ipHeaderLen {
		return ErrFragmentationImpossible
	}

	if !v.template.HasDestMAC() && v.dst.IsMulticast() {
		b := v.dst
		v.template.SetDestMAC(addr.MAC{0x01, 0x00, 0x5e, b[1] & 0x7f, b[2], b[3]})
	}

	mtu := v.ctx.MTU
	fragCnt := (l4Len+payloadLen-1)/(mtu-ipHeaderLen) + 1
	if l4Len+payloadLen == 0 {
		fragCnt = 1
	}

	id := v.id
	if fragCnt > 1 && !v.hasID {
		id = v.ctx.NextIPv4Identification()
	}

	v.frames = make([]*eth.Frame, fragCnt)
	offset := 0
	remaining := payloadLen
	payloadCursor := 0

	for n := 0; n < fragCnt; n++ {
		frame := cloneFrame(v.template)
		v.frames[n] = frame

		var fragLen int
		if n == 0 {
			if l4Len+payloadLen+ipHeaderLen > mtu {
				fragLen = mtu - ipHeaderLen
			} else {
				fragLen = l4Len + payloadLen
			}
		} else {
			if remaining+ipHeaderLen > mtu {
				fragLen = mtu - ipHeaderLen
			} else {
				fragLen = remaining
			}
		}
		if n+1 != fragCnt {
			fragLen = (fragLen / 8) * 8
		}

		hdr := make([]byte, ipHeaderLen)
		hdr[0] = 0x40 | byte(ipHeaderLen/4)
		hdr[1] = (v.dscp << 2) | v.ecn
		binary.BigEndian.PutUint16(hdr[2:4], uint16(ipHeaderLen+fragLen))
		binary.BigEndian.PutUint16(hdr[4:6], id)
		flags := uint16(0)
		if v.df {
			flags |= flagDF
		}
		if n+1 != fragCnt {
			flags |= flagMF
		}
		binary.BigEndian.PutUint16(hdr[6:8], flags|uint16(offset/8)&fragOffsetMask)
		hdr[8] = v.ttl
		hdr[9] = protocol
		// hdr[10:12] checksum, filled below
		copy(hdr[12:16], v.src.Bytes())
		copy(hdr[16:20], v.dst.Bytes())
		if v.routerAlert {
			copy(hdr[20:24], RouterAlertOption[:])
		}
		cs := checksum.RFC1071(hdr)
		binary.BigEndian.PutUint16(hdr[10:12], cs)

		frame.SetPayload(hdr)

		if n == 0 {
			dataLen := fragLen - l4Len
			if l4Len > 0 {
				frame.AppendPayload(l4hdr)
			}
			if dataLen > 0 {
				frame.AppendPayload(payload[payloadCursor : payloadCursor+dataLen])
				payloadCursor += dataLen
				remaining -= dataLen
			}
			offset += fragLen
		} else {
			frame.AppendPayload(payload[payloadCursor : payloadCursor+fragLen])
			payloadCursor += fragLen
			remaining -= fragLen
			offset += fragLen
		}
	}

	return nil
}

// cloneFrame copies the template's MAC/VLAN/LLC configuration into a
// fresh frame so each IP fragment gets its own payload area, mirroring
// the original's per-fragment cEthernetPacket copies.
func cloneFrame(tmpl *eth.Frame) *eth.Frame {
	f := *tmpl
	f.SetPayload(nil)
	return &f
}

// updateHeaderChecksum recomputes the IPv4 header checksum of hdr in
// place; no caller uses it at present.
func (v *V4) updateHeaderChecksum(hdr []byte) {
	hdr[10], hdr[11] = 0, 0
	cs := checksum.RFC1071(hdr)
	binary.BigEndian.PutUint16(hdr[10:12], cs)
}

// PseudoHeader returns the 12-byte IPv4 pseudo-header used by UDP/TCP/
// VRRPv3 checksums: src, dst, zero, protocol, L4 length.
func (v *V4) PseudoHeader(protocol uint8, l4Length int) []byte {
	b := make([]byte, 12)
	copy(b[0:4], v.src.Bytes())
	copy(b[4:8], v.dst.Bytes())
	b[8] = 0
	b[9] = protocol
	binary.BigEndian.PutUint16(b[10:12], uint16(l4Length))
	return b
}

// HeaderLen returns the configured header length in bytes (20, or 24 with
// the router-alert option).
func (v *V4) HeaderLen() int { return v.headerLen() }

// MTU returns the context MTU this envelope fragments against.
func (v *V4) MTU() int { return v.ctx.MTU }

// DeriveMulticastMAC exposes the 224/4 -> 01:00:5E:.. mapping for callers
// (e.g. VRRP, IGMP) that need to apply it before Compile runs.
func DeriveMulticastMAC(dst addr.IPv4) addr.MAC {
	return addr.MAC{0x01, 0x00, 0x5e, dst[1] & 0x7f, dst[2], dst[3]}
}
