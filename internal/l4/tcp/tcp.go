// Package tcp builds TCP segments over an IP envelope, including the
// canned handshake/teardown shortcuts, grounded on tcppacket.hpp/.cpp and
// the compileTCP* family in the original instruction parser.
package tcp

import (
	"encoding/binary"

	"github.com/pumptool/tcppump/internal/checksum"
	"github.com/pumptool/tcppump/internal/compilectx"
	"github.com/pumptool/tcppump/internal/ip"
)

// ProtocolNumber is the IP protocol number for TCP (6).
const ProtocolNumber = 6

const headerLen = 20 // no options: data offset is fixed at 5 32-bit words

// Flag bits, matching the wire layout of the 8-bit TCP flags byte.
const (
	FlagFIN = 1 << 0
	FlagSYN = 1 << 1
	FlagRST = 1 << 2
	FlagPSH = 1 << 3
	FlagACK = 1 << 4
	FlagURG = 1 << 5
	FlagECE = 1 << 6
	FlagCWR = 1 << 7
)

// Segment is a TCP segment builder bound to an IP envelope and the
// compiler context that owns the process-wide sequence counter.
type Segment struct {
	ctx *compilectx.Context
	env ip.Envelope

	srcPort, dstPort uint16
	hasSeq           bool
	seq              uint32
	ack              uint32
	window           uint16
	urgentPtr        uint16
	flags            uint8
	nonce            bool

	hasChecksum bool
	checksum    uint16
}

// New returns a TCP builder with the defaults the original initializes:
// window 1024, sequence drawn from the context's running counter.
func New(ctx *compilectx.Context, env ip.Envelope) *Segment {
	return &Segment{ctx: ctx, env: env, window: 1024}
}

func (s *Segment) SetSourcePort(p uint16)      { s.srcPort = p }
func (s *Segment) SetDestinationPort(p uint16) { s.dstPort = p }
func (s *Segment) SetWindow(w uint16)          { s.window = w }
func (s *Segment) SetUrgentPointer(p uint16)   { s.urgentPtr = p }
func (s *Segment) SetAckNumber(ack uint32)     { s.ack = ack }

// SetSeqNumber forces an explicit sequence number. Per the original, this
// also rebases the process-wide running counter so the next segment in
// the stream continues from here.
func (s *Segment) SetSeqNumber(seq uint32) {
	s.seq = seq
	s.hasSeq = true
}

func (s *Segment) SetFlag(mask uint8, v bool) {
	if v {
		s.flags |= mask
	} else {
		s.flags &^= mask
	}
}
func (s *Segment) SetNonce(v bool) { s.nonce = v }

func (s *Segment) SetChecksum(c uint16) {
	s.checksum = c
	s.hasChecksum = true
}

// Compile assembles the TCP header over payload and hands it to the IP
// envelope. When calcChecksum is false, the caller-supplied checksum
// (via SetChecksum) is used verbatim, matching the original's `compile
// (payload, len, calcChksum)` third argument.
func (s *Segment) Compile(payload []byte, calcChecksum bool) error {
	seq := s.seq
	if s.hasSeq {
		s.ctx.SetTCPSequence(seq)
	} else {
		seq = s.ctx.AdvanceTCPSequence(0)
	}

	hdr := make([]byte, headerLen)
	binary.BigEndian.PutUint16(hdr[0:2], s.srcPort)
	binary.BigEndian.PutUint16(hdr[2:4], s.dstPort)
	binary.BigEndian.PutUint32(hdr[4:8], seq)
	binary.BigEndian.PutUint32(hdr[8:12], s.ack)
	dataOffset := byte(5 << 4)
	if s.nonce {
		dataOffset |= 1
	}
	hdr[12] = dataOffset
	hdr[13] = s.flags
	binary.BigEndian.PutUint16(hdr[14:16], s.window)
	// hdr[16:18] checksum, filled below
	binary.BigEndian.PutUint16(hdr[18:20], s.urgentPtr)

	if err := s.env.Compile(ProtocolNumber, hdr, payload); err != nil {
		return err
	}

	cs := s.checksum
	if calcChecksum {
		pseudo := s.env.PseudoHeader(ProtocolNumber, headerLen+len(payload))
		cs = checksum.RFC1071(pseudo, hdr, payload)
		if cs == 0 {
			cs = 0xffff
		}
	}
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], cs)
	s.env.Frames()[0].UpdatePayloadAt(ipHeaderLenFromFrame(s.env)+16, b[:])

	synBit := uint32(0)
	if s.flags&FlagSYN != 0 {
		synBit = 1
	}
	s.ctx.AdvanceTCPSequence(uint32(len(payload)) + synBit)
	return nil
}

func ipHeaderLenFromFrame(env ip.Envelope) int {
	f := env.Frames()[0]
	verIHL := f.PayloadAt8(0)
	if verIHL>>4 == 6 {
		return 40
	}
	return int(verIHL&0x0f) * 4
}

// Canned3WayHandshake* and teardown helpers below configure a Segment to
// match the original's fixed combinations (compileTCPSYN and friends).

// ConfigureSYN sets seq=0, ack=0, window=1024, SYN=1.
func (s *Segment) ConfigureSYN() {
	s.SetSeqNumber(0)
	s.SetAckNumber(0)
	s.SetWindow(1024)
	s.SetFlag(FlagSYN, true)
}

// ConfigureSYNACK sets seq=0, ack=1, window=1024, SYN=1, ACK=1.
func (s *Segment) ConfigureSYNACK() {
	s.SetSeqNumber(0)
	s.SetAckNumber(1)
	s.SetWindow(1024)
	s.SetFlag(FlagSYN, true)
	s.SetFlag(FlagACK, true)
}

// ConfigureSYNACK2 (final ACK of the 3-way handshake) sets seq=1, ack=1,
// window=1024, ACK=1.
func (s *Segment) ConfigureSYNACK2() {
	s.SetSeqNumber(1)
	s.SetAckNumber(1)
	s.SetWindow(1024)
	s.SetFlag(FlagACK, true)
}

// ConfigureFIN sets seq=1, ack=1, window=1024, FIN=1, ACK=1.
func (s *Segment) ConfigureFIN() {
	s.SetSeqNumber(1)
	s.SetAckNumber(1)
	s.SetWindow(1024)
	s.SetFlag(FlagFIN, true)
	s.SetFlag(FlagACK, true)
}

// ConfigureFINACK sets seq=1, ack=2, window=1024, FIN=1, ACK=1.
func (s *Segment) ConfigureFINACK() {
	s.SetSeqNumber(1)
	s.SetAckNumber(2)
	s.SetWindow(1024)
	s.SetFlag(FlagFIN, true)
	s.SetFlag(FlagACK, true)
}

// ConfigureFINACK2 sets seq=2, ack=2, window=1024, ACK=1.
func (s *Segment) ConfigureFINACK2() {
	s.SetSeqNumber(2)
	s.SetAckNumber(2)
	s.SetWindow(1024)
	s.SetFlag(FlagACK, true)
}

// ConfigureReset sets seq=0, ack=0, window=1024, RST=1.
func (s *Segment) ConfigureReset() {
	s.SetSeqNumber(0)
	s.SetAckNumber(0)
	s.SetWindow(1024)
	s.SetFlag(FlagRST, true)
}
