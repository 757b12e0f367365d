// Package igmp builds IGMPv1/v2/v3 query, report, and leave messages,
// grounded on igmppacket.hpp/.cpp and spec.md §4.6.
package igmp

import (
	"encoding/binary"

	"github.com/pumptool/tcppump/internal/addr"
	"github.com/pumptool/tcppump/internal/checksum"
	"github.com/pumptool/tcppump/internal/ip"
)

// ProtocolNumber is the IP protocol number for IGMP (2).
const ProtocolNumber = 2

const (
	typeV12Query  = 0x11
	typeV2Report  = 0x16
	typeV2Leave   = 0x17
)

var (
	generalQueryDest = mustIP("224.0.0.1")
	leaveGroupDest   = mustIP("224.0.0.2")
)

func mustIP(s string) addr.IPv4 {
	ip, err := addr.ParseIPv4(s, nil)
	if err != nil {
		panic(err)
	}
	return ip
}

// Datagram is an IGMP message builder bound to an IPv4 envelope.
type Datagram struct {
	env     *ip.V4
	sources []addr.IPv4
}

// New returns an IGMP builder over env. setIPHeaderOptions's fixed
// values (TTL 1, DSCP 48, DF, router-alert) are applied by every Compile*
// method, matching the original's unconditional setIpHeaderOptions call.
func New(env *ip.V4) *Datagram { return &Datagram{env: env} }

// AddSource appends an allow/block source address for a v3 group-
// specific or general query's source list.
func (d *Datagram) AddSource(src addr.IPv4) { d.sources = append(d.sources, src) }

func (d *Datagram) applyIPHeaderOptions() {
	d.env.SetTTL(1)
	d.env.SetDSCP(48)
	d.env.SetDontFragment(true)
	d.env.AddRouterAlertOption()
}

// CompileGeneralQuery builds a v1/v2 (type 0x11, zero group) or v3
// general query to 224.0.0.1.
func (d *Datagram) CompileGeneralQuery(v3 bool, maxRespTimeSeconds float64, s bool, qrv uint8, qqicSeconds float64) error {
	d.env.SetDestination(generalQueryDest)
	maxRespCode := maxRespTimeSeconds * 10
	if v3 {
		return d.compileV3Query(maxRespCode, s, qrv, qqicSeconds*10, addr.IPv4{})
	}
	return d.compileV12(typeV12Query, floatToTime(maxRespCode), addr.IPv4{})
}

// CompileGroupQuery builds a v1/v2 or v3 group-specific query to group.
func (d *Datagram) CompileGroupQuery(v3 bool, maxRespTimeSeconds float64, s bool, qrv uint8, qqicSeconds float64, group addr.IPv4) error {
	d.env.SetDestination(group)
	maxRespCode := maxRespTimeSeconds * 10
	if v3 {
		return d.compileV3Query(maxRespCode, s, qrv, qqicSeconds*10, group)
	}
	return d.compileV12(typeV12Query, floatToTime(maxRespCode), group)
}

// CompileReport builds a v1/v2 membership report (type 0x16) for group.
func (d *Datagram) CompileReport(group addr.IPv4) error {
	d.env.SetDestination(group)
	return d.compileV12(typeV2Report, 0, group)
}

// CompileLeaveGroup builds a v2 leave-group message (type 0x17) to
// 224.0.0.2.
func (d *Datagram) CompileLeaveGroup(group addr.IPv4) error {
	d.env.SetDestination(leaveGroupDest)
	return d.compileV12(typeV2Leave, 0, group)
}

func (d *Datagram) compileV12(typ, maxRespTime uint8, group addr.IPv4) error {
	d.applyIPHeaderOptions()

	hdr := make([]byte, 8)
	hdr[0] = typ
	hdr[1] = maxRespTime
	copy(hdr[4:8], group.Bytes())
	cs := checksum.RFC1071(hdr)
	binary.BigEndian.PutUint16(hdr[2:4], cs)

	return d.env.Compile(ProtocolNumber, hdr, nil)
}

func (d *Datagram) compileV3Query(maxRespCode float64, s bool, qrv uint8, qqic float64, group addr.IPv4) error {
	d.applyIPHeaderOptions()

	hdr := make([]byte, 12)
	hdr[0] = typeV12Query
	hdr[1] = floatToTime(maxRespCode)
	copy(hdr[4:8], group.Bytes())
	flags := qrv & 0x7
	if s {
		flags |= 0x08
	}
	hdr[8] = flags
	hdr[9] = floatToTime(qqic)
	binary.BigEndian.PutUint16(hdr[10:12], uint16(len(d.sources)))

	var sourceBytes []byte
	for _, src := range d.sources {
		sourceBytes = append(sourceBytes, src.Bytes()...)
	}

	if len(d.sources) > 0 {
		cs := checksum.RFC1071(hdr, sourceBytes)
		binary.BigEndian.PutUint16(hdr[2:4], cs)
		return d.env.Compile(ProtocolNumber, hdr, sourceBytes)
	}
	cs := checksum.RFC1071(hdr)
	binary.BigEndian.PutUint16(hdr[2:4], cs)
	return d.env.Compile(ProtocolNumber, hdr, nil)
}

// floatToTime implements the IGMPv3 exponential max-resp-code/QQIC
// encoding: values below 128 are literal, values at or above 31744
// saturate to 255, otherwise the mantissa is halved until it fits 5 bits
// and the result is 0x80 | (exp<<4) | mant.
func floatToTime(d float64) uint8 {
	if d < 128 {
		return uint8(d)
	}
	if d >= 31744 {
		return 255
	}
	exp := 0
	mant := uint(d) >> 3
	for mant > 31 {
		exp++
		mant >>= 1
	}
	return 0x80 | uint8((exp&7)<<4) | uint8(mant)
}
