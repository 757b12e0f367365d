// Package overlay sends compiled Ethernet frames to a remote VTEP inside
// a VXLAN tunnel (RFC 7348), adapting the teacher's BFD-over-VXLAN
// transport (RFC 8971) to carry arbitrary compiled frames as the VXLAN
// inner Ethernet payload instead of a fixed BFD/UDP/IP inner stack.
package overlay

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/pumptool/tcppump/internal/l2ext/vxlan"
)

// Sink encapsulates each compiled frame in a VXLAN header and sends it
// to a single remote VTEP over UDP port 4789.
type Sink struct {
	conn   *net.UDPConn
	remote *net.UDPAddr
	vni    uint32
}

// Open binds a UDP socket on localAddr and targets remote:4789 with the
// given VXLAN Network Identifier.
func Open(localAddr netip.Addr, remote netip.Addr, vni uint32) (*Sink, error) {
	laddr := &net.UDPAddr{IP: localAddr.AsSlice()}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("overlay: bind %s: %w", localAddr, err)
	}

	raddr := &net.UDPAddr{IP: remote.AsSlice(), Port: int(vxlan.DefaultPort)}

	return &Sink{conn: conn, remote: raddr, vni: vni}, nil
}

// Send wraps frame in a VXLAN header and transmits it to the configured
// remote VTEP. offset is accepted to satisfy sink.Sink but this sink
// does not pace; callers needing real-time delivery should pace the
// caller side (as the driver's virtual clock already does logically).
func (s *Sink) Send(_ context.Context, frame []byte, _ time.Duration) error {
	buf := make([]byte, vxlan.HeaderSize+len(frame))
	if _, err := vxlan.MarshalHeader(buf, s.vni); err != nil {
		return fmt.Errorf("overlay: marshal VXLAN header: %w", err)
	}
	copy(buf[vxlan.HeaderSize:], frame)

	if _, err := s.conn.WriteToUDP(buf, s.remote); err != nil {
		return fmt.Errorf("overlay: send to %s: %w", s.remote, err)
	}
	return nil
}

// Close releases the underlying socket.
func (s *Sink) Close() error {
	return s.conn.Close()
}
