// Package lldp builds LLDP (IEEE 802.1AB) frames: the core mandatory
// TLVs plus 802.1, 802.3 and Profinet organization-specific extensions,
// grounded on lldppacket.hpp/.cpp.
package lldp

import (
	"crypto/md5"
	"encoding/binary"

	"github.com/pumptool/tcppump/internal/addr"
	"github.com/pumptool/tcppump/internal/eth"
)

// Core TLV types.
const (
	TypeEnd        uint8 = 0
	TypeChassisID  uint8 = 1
	TypePortID     uint8 = 2
	TypeTTL        uint8 = 3
	TypePortDescr  uint8 = 4
	TypeSysName    uint8 = 5
	TypeSysDescr   uint8 = 6
	TypeSysCap     uint8 = 7
	TypeMgmtAddr   uint8 = 8
	TypeOUI        uint8 = 127
)

// 802.1 organization-specific subtypes.
const (
	Sub8021PVID                  uint8 = 1
	Sub8021ProtocolVID           uint8 = 2
	Sub8021VLANName              uint8 = 3
	Sub8021ProtocolIdentity      uint8 = 4
	Sub8021VIDUsageDigest        uint8 = 5
	Sub8021ManagementVID         uint8 = 6
	Sub8021LinkAggregation       uint8 = 7
	Sub8021CongestionNotification uint8 = 8
	Sub8021ETSConfig             uint8 = 9
	Sub8021ETSRecommendation     uint8 = 10
	Sub8021PFCConfig             uint8 = 11
	Sub8021ApplicationPriority   uint8 = 12
	Sub8021EVB                   uint8 = 13
	Sub8021CDCP                  uint8 = 14
	Sub8021ApplicationVLAN       uint8 = 16
)

// 802.3 organization-specific subtypes.
const (
	Sub8023MacPhy             uint8 = 1
	Sub8023PowerViaMDI        uint8 = 2
	Sub8023MaxFrameSize       uint8 = 4
	Sub8023EnergyEfficientEth uint8 = 5
	Sub8023EEEFastWake        uint8 = 6
)

// Profinet organization-specific subtypes.
const (
	SubPNDelay              uint8 = 1
	SubPNPortStatus         uint8 = 2
	SubPNAlias              uint8 = 3
	SubPNMrpPortStatus      uint8 = 4
	SubPNChassisMac         uint8 = 5
	SubPNPtcpStatus         uint8 = 6
	SubPNMauTypeExtension   uint8 = 7
	SubPNMrpInterconnect    uint8 = 8
	SubPNNmeDomainUUID      uint8 = 9
	SubPNNmeManagementAddr  uint8 = 10
	SubPNNmeNameUUID        uint8 = 11
	SubPNNmeParameterUUID   uint8 = 12
)

var (
	oid8021 = [3]byte{0x00, 0x80, 0xc2}
	oid8023 = [3]byte{0x00, 0x12, 0x0f}
	oidPNO  = [3]byte{0x00, 0x0e, 0xcf}

	defaultDestMAC = addr.MAC{0x01, 0x80, 0xc2, 0x00, 0x00, 0x0e}
)

type tlv struct {
	typ   uint8
	value []byte
}

// Frame accumulates LLDP TLVs in addition order.
type Frame struct {
	eth  *eth.Frame
	tlvs []tlv
}

// New returns an empty LLDP frame builder.
func New() *Frame {
	return &Frame{eth: eth.New()}
}

// EthernetFrame exposes the underlying frame for MAC/VLAN overrides.
func (f *Frame) EthernetFrame() *eth.Frame { return f.eth }

func (f *Frame) addTLV(typ uint8, value []byte) {
	f.tlvs = append(f.tlvs, tlv{typ: typ, value: value})
}

func (f *Frame) addOUITLV(oui [3]byte, subtype uint8, value []byte) {
	v := make([]byte, 0, 4+len(value))
	v = append(v, oui[:]...)
	v = append(v, subtype)
	v = append(v, value...)
	f.addTLV(TypeOUI, v)
}

// AddRawTLV appends an arbitrary TLV by type, for protocols this builder
// has no dedicated setter for.
func (f *Frame) AddRawTLV(typ uint8, value []byte) { f.addTLV(typ, value) }

// AddOUITLV appends an organization-specific TLV with an arbitrary OUI
// and subtype.
func (f *Frame) AddOUITLV(oui [3]byte, subtype uint8, value []byte) {
	f.addOUITLV(oui, subtype, value)
}

// ---- Core mandatory/optional TLVs ----

func (f *Frame) AddChassisIDMAC(mac addr.MAC) { f.addChassisOrPortID(TypeChassisID, 4, mac[:]) }
func (f *Frame) AddChassisIDIPv4(ip addr.IPv4) {
	f.addChassisOrPortID(TypeChassisID, 5, withSubtypePrefix(1, ip.Bytes()))
}
func (f *Frame) AddChassisIDIPv6(ip addr.IPv6) {
	f.addChassisOrPortID(TypeChassisID, 5, withSubtypePrefix(2, ip.Bytes()))
}
func (f *Frame) AddChassisID(subtype uint8, id []byte) { f.addChassisOrPortID(TypeChassisID, subtype, id) }

func (f *Frame) AddPortIDMAC(mac addr.MAC) { f.addChassisOrPortID(TypePortID, 3, mac[:]) }
func (f *Frame) AddPortIDIPv4(ip addr.IPv4) {
	f.addChassisOrPortID(TypePortID, 4, withSubtypePrefix(1, ip.Bytes()))
}
func (f *Frame) AddPortIDIPv6(ip addr.IPv6) {
	f.addChassisOrPortID(TypePortID, 4, withSubtypePrefix(1, ip.Bytes()))
}
func (f *Frame) AddPortID(subtype uint8, id []byte) { f.addChassisOrPortID(TypePortID, subtype, id) }

// addChassisOrPortID writes a 1-byte subtype followed by the raw ID -
// the chassis and port ID TLVs share this layout.
func (f *Frame) addChassisOrPortID(tlvType, subtype uint8, id []byte) {
	v := make([]byte, 0, 1+len(id))
	v = append(v, subtype)
	v = append(v, id...)
	f.addTLV(tlvType, v)
}

func withSubtypePrefix(subtype uint8, id []byte) []byte {
	v := make([]byte, 0, 1+len(id))
	v = append(v, subtype)
	v = append(v, id...)
	return v
}

func (f *Frame) AddTTL(ttl uint16) {
	v := make([]byte, 2)
	binary.BigEndian.PutUint16(v, ttl)
	f.addTLV(TypeTTL, v)
}

func (f *Frame) AddPortDescription(s []byte) { f.addTLV(TypePortDescr, append([]byte{}, s...)) }
func (f *Frame) AddSystemName(s []byte)       { f.addTLV(TypeSysName, append([]byte{}, s...)) }
func (f *Frame) AddSystemDescription(s []byte) { f.addTLV(TypeSysDescr, append([]byte{}, s...)) }

func (f *Frame) AddSystemCapabilities(system, enabled uint16) {
	v := make([]byte, 4)
	binary.BigEndian.PutUint16(v[0:2], system)
	binary.BigEndian.PutUint16(v[2:4], enabled)
	f.addTLV(TypeSysCap, v)
}

// AddManagementAddress builds the variable-length Management Address TLV:
// a length-prefixed subtyped address, an interface-numbering subtype,
// the interface number, and an optional OID.
func (f *Frame) AddManagementAddress(addrSubtype uint8, mgmtAddr []byte, ifNbSubtype uint8, ifNumber uint32, oid []byte) {
	v := make([]byte, 0, 2+len(mgmtAddr)+1+4+1+len(oid))
	v = append(v, uint8(len(mgmtAddr)+1), addrSubtype)
	v = append(v, mgmtAddr...)
	v = append(v, ifNbSubtype)
	var ifn [4]byte
	binary.BigEndian.PutUint32(ifn[:], ifNumber)
	v = append(v, ifn[:]...)
	v = append(v, uint8(len(oid)))
	v = append(v, oid...)
	f.addTLV(TypeMgmtAddr, v)
}

func (f *Frame) AddManagementAddressMAC(mac addr.MAC, ifNbSubtype uint8, ifNumber uint32, oid []byte) {
	f.AddManagementAddress(6, mac[:], ifNbSubtype, ifNumber, oid)
}
func (f *Frame) AddManagementAddressIPv4(ip addr.IPv4, ifNbSubtype uint8, ifNumber uint32, oid []byte) {
	f.AddManagementAddress(1, ip.Bytes(), ifNbSubtype, ifNumber, oid)
}
func (f *Frame) AddManagementAddressIPv6(ip addr.IPv6, ifNbSubtype uint8, ifNumber uint32, oid []byte) {
	f.AddManagementAddress(2, ip.Bytes(), ifNbSubtype, ifNumber, oid)
}

// ---- 802.1 organization-specific TLVs ----

func (f *Frame) AddPortVID(pvid uint16) {
	v := make([]byte, 2)
	binary.BigEndian.PutUint16(v, pvid)
	f.addOUITLV(oid8021, Sub8021PVID, v)
}

func (f *Frame) AddProtocolVID(ppvid uint16, supported, enabled bool) {
	var flags uint8
	if supported {
		flags |= 2
	}
	if enabled {
		flags |= 4
	}
	v := make([]byte, 3)
	v[0] = flags
	binary.BigEndian.PutUint16(v[1:3], ppvid)
	f.addOUITLV(oid8021, Sub8021ProtocolVID, v)
}

func (f *Frame) AddVLANName(vid uint16, name []byte) {
	v := make([]byte, 0, 3+len(name))
	var vidBytes [2]byte
	binary.BigEndian.PutUint16(vidBytes[:], vid)
	v = append(v, vidBytes[:]...)
	v = append(v, uint8(len(name)))
	v = append(v, name...)
	f.addOUITLV(oid8021, Sub8021VLANName, v)
}

func (f *Frame) AddProtocolIdentity(protocol []byte) {
	v := make([]byte, 0, 1+len(protocol))
	v = append(v, uint8(len(protocol)))
	v = append(v, protocol...)
	f.addOUITLV(oid8021, Sub8021ProtocolIdentity, v)
}

func (f *Frame) AddVIDUsageDigest(digest uint32) {
	v := make([]byte, 4)
	binary.BigEndian.PutUint32(v, digest)
	f.addOUITLV(oid8021, Sub8021VIDUsageDigest, v)
}

func (f *Frame) AddManagementVID(vid uint16) {
	v := make([]byte, 2)
	binary.BigEndian.PutUint16(v, vid)
	f.addOUITLV(oid8021, Sub8021ManagementVID, v)
}

func (f *Frame) AddLinkAggregation(capability, status bool, portType uint8, portID uint32) {
	var flags uint8
	if capability {
		flags |= 1
	}
	if status {
		flags |= 2
	}
	flags |= (portType & 3) << 2
	v := make([]byte, 5)
	v[0] = flags
	binary.BigEndian.PutUint32(v[1:5], portID)
	f.addOUITLV(oid8021, Sub8021LinkAggregation, v)
}

func (f *Frame) AddCongestionNotification(cnpv, ready uint8) {
	f.addOUITLV(oid8021, Sub8021CongestionNotification, []byte{cnpv, ready})
}

func (f *Frame) AddETSConfig(willing, cbs bool, maxTCs uint8, prioTable uint32, tcBandwidthTable, tsaAssignmentTable uint64) {
	var flags uint8
	if willing {
		flags |= 0x80
	}
	if cbs {
		flags |= 0x40
	}
	flags |= maxTCs & 7
	v := make([]byte, 1+4+8+8)
	v[0] = flags
	binary.BigEndian.PutUint32(v[1:5], prioTable)
	binary.BigEndian.PutUint64(v[5:13], tcBandwidthTable)
	binary.BigEndian.PutUint64(v[13:21], tsaAssignmentTable)
	f.addOUITLV(oid8021, Sub8021ETSConfig, v)
}

func (f *Frame) AddETSRecommendation(prioTable uint32, tcBandwidthTable, tsaAssignmentTable uint64) {
	v := make([]byte, 1+4+8+8)
	binary.BigEndian.PutUint32(v[1:5], prioTable)
	binary.BigEndian.PutUint64(v[5:13], tcBandwidthTable)
	binary.BigEndian.PutUint64(v[13:21], tsaAssignmentTable)
	f.addOUITLV(oid8021, Sub8021ETSRecommendation, v)
}

func (f *Frame) AddPFCConfig(willing, mbc bool, pfcCap, pfcEnable uint8) {
	var flags uint8
	if willing {
		flags |= 0x80
	}
	if mbc {
		flags |= 0x40
	}
	flags |= pfcCap & 0x0f
	f.addOUITLV(oid8021, Sub8021PFCConfig, []byte{flags, pfcEnable})
}

// AddApplicationPriority appends one entry (3-bit priority, 3-bit
// selector, 16-bit protocol) per element of the three equal-length
// slices.
func (f *Frame) AddApplicationPriority(prio, sel []uint8, proto []uint16) {
	v := make([]byte, 1, 1+len(prio)*3)
	for i := range prio {
		v = append(v, ((prio[i]&7)<<5)|(sel[i]&7))
		var p [2]byte
		binary.BigEndian.PutUint16(p[:], proto[i])
		v = append(v, p[:]...)
	}
	f.addOUITLV(oid8021, Sub8021ApplicationPriority, v)
}

func (f *Frame) AddEVB(bridgeStatus, stationStatus, r, rte, evb uint8, rolRwd bool, rwd uint8, rolRka bool, rka uint8) {
	v := make([]byte, 5)
	v[0] = bridgeStatus
	v[1] = stationStatus
	v[2] = (r&7)<<5 | (rte & 0x1f)
	b3 := (evb & 3) << 6
	if rolRwd {
		b3 |= 0x20
	}
	v[3] = b3 | (rwd & 0x1f)
	b4 := uint8(0)
	if rolRka {
		b4 |= 0x20
	}
	v[4] = b4 | (rka & 0x1f)
	f.addOUITLV(oid8021, Sub8021EVB, v)
}

func (f *Frame) AddCDCP(role, sComp bool, chnCap uint16, scidSvid [][2]uint16) {
	v := make([]byte, 4, 4+len(scidSvid)*3)
	var b0 uint8
	if role {
		b0 |= 0x80
	}
	if sComp {
		b0 |= 0x08
	}
	v[0] = b0
	v[1] = 0
	v[2] = uint8((chnCap >> 8) & 0x0f)
	v[3] = uint8(chnCap & 0xff)
	for _, pair := range scidSvid {
		scid, svid := pair[0], pair[1]
		v = append(v, uint8(scid>>4), uint8((scid&0xf)<<4)|uint8((svid>>8)&0x0f), uint8(svid))
	}
	f.addOUITLV(oid8021, Sub8021CDCP, v)
}

// AddApplicationVLAN appends one 32-bit entry (10-bit VID, 3-bit
// selector, 16-bit protocol) per element of the three equal-length
// slices.
func (f *Frame) AddApplicationVLAN(vid []uint16, sel []uint8, proto []uint16) {
	v := make([]byte, 0, len(vid)*4)
	for i := range vid {
		entry := (uint32(vid[i]&0x3ff) << 22) | (uint32(sel[i]&7) << 16) | uint32(proto[i])
		var e [4]byte
		binary.BigEndian.PutUint32(e[:], entry)
		v = append(v, e[:]...)
	}
	f.addOUITLV(oid8021, Sub8021ApplicationVLAN, v)
}

// ---- 802.3 organization-specific TLVs ----

func (f *Frame) AddMacPhyStatus(autonegSup, autonegStatus bool, autonegAdvCap, mauType uint16) {
	var flags uint8
	if autonegSup {
		flags |= 1
	}
	if autonegStatus {
		flags |= 2
	}
	v := make([]byte, 5)
	v[0] = flags
	binary.BigEndian.PutUint16(v[1:3], autonegAdvCap)
	binary.BigEndian.PutUint16(v[3:5], mauType)
	f.addOUITLV(oid8023, Sub8023MacPhy, v)
}

func (f *Frame) preparePowerViaMDI(portClassPSE, pwrSupSupported, pwrSupState, pwrSupPairsCtrl bool, psePowerPair, powerClass uint8) []byte {
	var flags uint8
	if portClassPSE {
		flags |= 1
	}
	if pwrSupSupported {
		flags |= 2
	}
	if pwrSupState {
		flags |= 4
	}
	if pwrSupPairsCtrl {
		flags |= 8
	}
	return []byte{flags, psePowerPair, powerClass}
}

func (f *Frame) AddBasicPowerViaMDI(portClassPSE, pwrSupSupported, pwrSupState, pwrSupPairsCtrl bool, psePowerPair, powerClass uint8) {
	v := f.preparePowerViaMDI(portClassPSE, pwrSupSupported, pwrSupState, pwrSupPairsCtrl, psePowerPair, powerClass)
	f.addOUITLV(oid8023, Sub8023PowerViaMDI, v)
}

func doubleToPowerValue(power float64) uint16 {
	units := power / 0.1
	if units > 65535 {
		return 65535
	}
	return uint16(units)
}

// AddExtPowerViaMDI appends the 802.3at/bt extended power-via-MDI TLV on
// top of the basic fields.
func (f *Frame) AddExtPowerViaMDI(portClassPSE, pwrSupSupported, pwrSupState, pwrSupPairsCtrl bool, psePowerPair, powerClass,
	powerType, powerSource, pd4pid, powerPrio uint8, pdRequestedPower, pseRequestedPower float64) {
	v := f.preparePowerViaMDI(portClassPSE, pwrSupSupported, pwrSupState, pwrSupPairsCtrl, psePowerPair, powerClass)
	ptsp := (powerType&3)<<6 | (powerSource&3)<<4 | (pd4pid&1)<<2 | (powerPrio & 3)
	v = append(v, ptsp)
	var pd, pse [2]byte
	binary.BigEndian.PutUint16(pd[:], doubleToPowerValue(pdRequestedPower))
	binary.BigEndian.PutUint16(pse[:], doubleToPowerValue(pseRequestedPower))
	v = append(v, pd[:]...)
	v = append(v, pse[:]...)
	f.addOUITLV(oid8023, Sub8023PowerViaMDI, v)
}

func (f *Frame) AddMaxFrameSize(size uint16) {
	v := make([]byte, 2)
	binary.BigEndian.PutUint16(v, size)
	f.addOUITLV(oid8023, Sub8023MaxFrameSize, v)
}

func (f *Frame) AddEEE(txTw, rxTw, fbTw, echoTxTw, echoRxTw uint16) {
	v := make([]byte, 10)
	binary.BigEndian.PutUint16(v[0:2], txTw)
	binary.BigEndian.PutUint16(v[2:4], rxTw)
	binary.BigEndian.PutUint16(v[4:6], fbTw)
	binary.BigEndian.PutUint16(v[6:8], echoTxTw)
	binary.BigEndian.PutUint16(v[8:10], echoRxTw)
	f.addOUITLV(oid8023, Sub8023EnergyEfficientEth, v)
}

func (f *Frame) AddEEEFastWake(tx, rx, echoTx, echoRx bool) {
	asB := func(b bool) byte {
		if b {
			return 1
		}
		return 0
	}
	f.addOUITLV(oid8023, Sub8023EEEFastWake, []byte{asB(tx), asB(rx), asB(echoTx), asB(echoRx)})
}

// ---- Profinet organization-specific TLVs ----

func (f *Frame) AddPnDelay(portRxDelayLocal, portRxDelayRemote, portTxDelayLocal, portTxDelayRemote, cableDelay uint32) {
	v := make([]byte, 20)
	binary.BigEndian.PutUint32(v[0:4], portRxDelayLocal)
	binary.BigEndian.PutUint32(v[4:8], portRxDelayRemote)
	binary.BigEndian.PutUint32(v[8:12], portTxDelayLocal)
	binary.BigEndian.PutUint32(v[12:16], portTxDelayRemote)
	binary.BigEndian.PutUint32(v[16:20], cableDelay)
	f.addOUITLV(oidPNO, SubPNDelay, v)
}

func (f *Frame) AddPnPortStatus(rtc2PortStatus uint16, rtc3State uint8, rtc3Frag, rtc3ShortPreamble, rtc3Optimized bool) {
	rtc3 := uint16(rtc3State & 7)
	if rtc3Frag {
		rtc3 |= 0x1000
	}
	if rtc3ShortPreamble {
		rtc3 |= 0x2000
	}
	if rtc3Optimized {
		rtc3 |= 0x8000
	}
	v := make([]byte, 4)
	binary.BigEndian.PutUint16(v[0:2], rtc2PortStatus)
	binary.BigEndian.PutUint16(v[2:4], rtc3)
	f.addOUITLV(oidPNO, SubPNPortStatus, v)
}

func (f *Frame) AddPnAlias(alias []byte) { f.addOUITLV(oidPNO, SubPNAlias, alias) }

// DomainUUID returns the raw MD5 digest of the given domain name. The
// parser's MRP port-status path does not use it; it derives the UUID with
// addr.MD5DomainUUID, which also sets the version-3 and variant bits.
func DomainUUID(domain string) [16]byte {
	return md5.Sum([]byte(domain))
}

func (f *Frame) AddPnMrpPortStatus(domainUUID [16]byte, mrrtPortState uint16) {
	v := make([]byte, 18)
	copy(v[0:16], domainUUID[:])
	binary.BigEndian.PutUint16(v[16:18], mrrtPortState&3)
	f.addOUITLV(oidPNO, SubPNMrpPortStatus, v)
}

func (f *Frame) AddPnChassisMAC(mac addr.MAC) { f.addOUITLV(oidPNO, SubPNChassisMac, mac[:]) }

func (f *Frame) AddPnPtcpStatus(masterSourceMac addr.MAC, ptcpSubdomainUUID, irdataUUID [16]byte,
	lengthOfPeriod uint32, lengthOfPeriodValid bool,
	redOrangePeriodBegin uint32, redOrangePeriodBeginValid bool,
	orangePeriodBegin uint32, orangePeriodBeginValid bool,
	greenPeriodBegin uint32, greenPeriodBeginValid bool) {
	v := make([]byte, 0, 6+16+16+16)
	v = append(v, masterSourceMac[:]...)
	v = append(v, ptcpSubdomainUUID[:]...)
	v = append(v, irdataUUID[:]...)
	v = append(v, packValidated(lengthOfPeriod, lengthOfPeriodValid)...)
	v = append(v, packValidated(redOrangePeriodBegin, redOrangePeriodBeginValid)...)
	v = append(v, packValidated(orangePeriodBegin, orangePeriodBeginValid)...)
	v = append(v, packValidated(greenPeriodBegin, greenPeriodBeginValid)...)
	f.addOUITLV(oidPNO, SubPNPtcpStatus, v)
}

func packValidated(value uint32, valid bool) []byte {
	if valid {
		value |= 0x80000000
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], value)
	return b[:]
}

func (f *Frame) AddPnMauTypeExtension(mauTypeExtension uint16) {
	v := make([]byte, 2)
	binary.BigEndian.PutUint16(v, mauTypeExtension)
	f.addOUITLV(oidPNO, SubPNMauTypeExtension, v)
}

func (f *Frame) AddPnMrpInterconnectPortStatus(domainID, role, position uint16) {
	v := make([]byte, 6)
	binary.BigEndian.PutUint16(v[0:2], domainID)
	binary.BigEndian.PutUint16(v[2:4], role)
	binary.BigEndian.PutUint16(v[4:6], position)
	f.addOUITLV(oidPNO, SubPNMrpInterconnect, v)
}

func (f *Frame) AddPnNmeDomainUUID(uuid [16]byte) { f.addOUITLV(oidPNO, SubPNNmeDomainUUID, uuid[:]) }

func (f *Frame) AddPnNmeManagementAddr(subtype uint8, addrBytes []byte) {
	v := make([]byte, 0, 1+len(addrBytes))
	v = append(v, subtype)
	v = append(v, addrBytes...)
	f.addOUITLV(oidPNO, SubPNNmeManagementAddr, v)
}

func (f *Frame) AddPnNmeNameUUID(uuid [16]byte) { f.addOUITLV(oidPNO, SubPNNmeNameUUID, uuid[:]) }

func (f *Frame) AddPnNmeParameterUUID(uuid [16]byte) {
	f.addOUITLV(oidPNO, SubPNNmeParameterUUID, uuid[:])
}

// Compile serializes every accumulated TLV in addition order, using the
// standard LLDP multicast destination unless one has already been set,
// and appends the End-of-LLDPDU TLV unless withEndTLV is false.
func (f *Frame) Compile(withEndTLV bool) error {
	if !f.eth.HasDestMAC() {
		f.eth.SetDestMAC(defaultDestMAC)
	}
	f.eth.SetEthertype(eth.EthertypeLLDP)

	var payload []byte
	for _, t := range f.tlvs {
		typeLen := (uint16(t.typ&0x7f) << 9) | (uint16(len(t.value)) & 0x1ff)
		var tl [2]byte
		binary.BigEndian.PutUint16(tl[:], typeLen)
		payload = append(payload, tl[:]...)
		payload = append(payload, t.value...)
	}
	if withEndTLV {
		payload = append(payload, 0, 0)
	}

	f.eth.SetPayload(payload)
	return nil
}
