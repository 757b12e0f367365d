package ip

import (
	"encoding/binary"

	"github.com/pumptool/tcppump/internal/addr"
	"github.com/pumptool/tcppump/internal/compilectx"
	"github.com/pumptool/tcppump/internal/eth"
)

const ipv6HeaderLen = 40

// V6 is a one-shot (never fragmented, per spec.md §4.5) IPv6 datagram
// builder.
type V6 struct {
	ctx *compilectx.Context

	src, dst   addr.IPv6
	dscp, ecn  uint8
	flowLabel  uint32
	hopLimit   uint8

	frame *eth.Frame
}

// NewV6 returns an IPv6 builder with a fresh Ethernet frame pre-set to
// EthertypeIPv6.
func NewV6(ctx *compilectx.Context) *V6 {
	f := eth.New()
	f.SetEthertype(eth.EthertypeIPv6)
	f.SetSourceMAC(ctx.OwnMAC)
	return &V6{ctx: ctx, src: ctx.OwnIPv6, hopLimit: 64, frame: f}
}

// EthernetFrame returns the underlying frame for VLAN/LLC/MAC setup prior
// to Compile.
func (v *V6) EthernetFrame() *eth.Frame { return v.frame }

// Frames returns the single emitted frame, wrapped in a slice for
// interface parity with V4.Frames.
func (v *V6) Frames() []*eth.Frame { return []*eth.Frame{v.frame} }

func (v *V6) SetSource(ip addr.IPv6)      { v.src = ip }
func (v *V6) SetDestination(ip addr.IPv6) { v.dst = ip }
func (v *V6) Source() addr.IPv6           { return v.src }
func (v *V6) Destination() addr.IPv6      { return v.dst }
func (v *V6) SetDSCP(d uint8)             { v.dscp = d & 0x3f }
func (v *V6) SetECN(e uint8)              { v.ecn = e & 0x3 }
func (v *V6) SetFlowLabel(fl uint32)      { v.flowLabel = fl & 0xfffff }
func (v *V6) SetHopLimit(hl uint8)        { v.hopLimit = hl }

// HeaderLen returns the fixed 40-byte IPv6 header length.
func (v *V6) HeaderLen() int { return ipv6HeaderLen }

// Compile assembles the single Ethernet frame carrying nextHeader over
// l4hdr+payload. IPv6 never fragments in this implementation (spec.md
// §4.5), so the caller is responsible for keeping l4hdr+payload within
// the MTU; Compile does not attempt to split it.
func (v *V6) Compile(nextHeader uint8, l4hdr, payload []byte) error {
	if !v.frame.HasDestMAC() && v.dst.IsMulticast() {
		b := v.dst.Bytes()
		v.frame.SetDestMAC(addr.MAC{0x33, 0x33, b[12], b[13], b[14], b[15]})
	}

	hdr := make([]byte, ipv6HeaderLen)
	trafficClass := (v.dscp << 2) | v.ecn
	vtcfl := (uint32(6) << 28) | (uint32(trafficClass) << 20) | v.flowLabel
	binary.BigEndian.PutUint32(hdr[0:4], vtcfl)
	payloadLen := len(l4hdr) + len(payload)
	binary.BigEndian.PutUint16(hdr[4:6], uint16(payloadLen))
	hdr[6] = nextHeader
	hdr[7] = v.hopLimit
	copy(hdr[8:24], v.src.Bytes())
	copy(hdr[24:40], v.dst.Bytes())

	v.frame.SetPayload(hdr)
	if len(l4hdr) > 0 {
		v.frame.AppendPayload(l4hdr)
	}
	if len(payload) > 0 {
		v.frame.AppendPayload(payload)
	}
	return nil
}

// PseudoHeader returns the 40-byte IPv6 pseudo-header used by UDP6/TCP6:
// src(16), dst(16), upper-layer length(4), zero(3), next header(1).
func (v *V6) PseudoHeader(nextHeader uint8, l4Length int) []byte {
	b := make([]byte, 40)
	copy(b[0:16], v.src.Bytes())
	copy(b[16:32], v.dst.Bytes())
	binary.BigEndian.PutUint32(b[32:36], uint32(l4Length))
	b[39] = nextHeader
	return b
}

// MTU returns the context MTU (informational only for IPv6, which does
// not fragment here).
func (v *V6) MTU() int { return v.ctx.MTU }
