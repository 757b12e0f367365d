package overlay

import (
	"context"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/pumptool/tcppump/internal/l2ext/vxlan"
)

func TestSendEncapsulatesWithVXLANHeader(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: int(vxlan.DefaultPort)})
	if err != nil {
		t.Skipf("cannot bind VXLAN port for test: %v", err)
	}
	defer listener.Close()

	local := netip.MustParseAddr("127.0.0.1")
	remote := netip.MustParseAddr("127.0.0.1")
	s, err := Open(local, remote, 4242)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	frame := []byte{0xde, 0xad, 0xbe, 0xef}
	if err := s.Send(context.Background(), frame, 0); err != nil {
		t.Fatalf("Send: %v", err)
	}

	buf := make([]byte, 1500)
	listener.SetReadDeadline(time.Now().Add(time.Second))
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP: %v", err)
	}

	got := buf[:n]
	if len(got) != vxlan.HeaderSize+len(frame) {
		t.Fatalf("received %d bytes, want %d", len(got), vxlan.HeaderSize+len(frame))
	}

	hdr, err := vxlan.UnmarshalHeader(got)
	if err != nil {
		t.Fatalf("UnmarshalHeader: %v", err)
	}
	if hdr.VNI != 4242 {
		t.Errorf("VNI = %d, want 4242", hdr.VNI)
	}

	inner := got[vxlan.HeaderSize:]
	for i, b := range frame {
		if inner[i] != b {
			t.Fatalf("inner[%d] = %x, want %x", i, inner[i], b)
		}
	}
}
