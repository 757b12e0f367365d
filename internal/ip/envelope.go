package ip

import "github.com/pumptool/tcppump/internal/eth"

// Envelope is the common surface V4 and V6 expose to the L4 encoders:
// compile a transport segment into one or more Ethernet frames, and
// produce the pseudo-header their checksum needs.
type Envelope interface {
	EthernetFrame() *eth.Frame
	Frames() []*eth.Frame
	Compile(protocol uint8, l4hdr, payload []byte) error
	PseudoHeader(protocol uint8, l4Length int) []byte
}

var (
	_ Envelope = (*V4)(nil)
	_ Envelope = (*V6)(nil)
)
