package udp

import (
	"encoding/binary"
	"testing"

	"github.com/pumptool/tcppump/internal/addr"
	"github.com/pumptool/tcppump/internal/compilectx"
	"github.com/pumptool/tcppump/internal/ip"
)

func TestUDPKnownChecksumVector(t *testing.T) {
	src, _ := addr.ParseIPv4("1.2.3.4", nil)
	dst, _ := addr.ParseIPv4("10.20.30.40", nil)
	ctx := compilectx.NewDeterministic(addr.MAC{}, src, addr.IPv6{}, "eth0", compilectx.DefaultMTU, 1)

	env := ip.NewV4(ctx)
	env.SetDestination(dst)

	s := New(env)
	s.SetSourcePort(1)
	s.SetDestinationPort(2)

	payload := []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef, 0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}
	if err := s.Compile(payload); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	raw := env.Frames()[0].Bytes()
	ipHeaderLen := 20
	udpStart := 14 + ipHeaderLen
	got := binary.BigEndian.Uint16(raw[udpStart+6 : udpStart+8])
	if got != 0x2E97 {
		t.Fatalf("UDP checksum = %#04x, want 0x2e97", got)
	}
}

func TestUDPExplicitChecksumOverride(t *testing.T) {
	src, _ := addr.ParseIPv4("1.2.3.4", nil)
	ctx := compilectx.NewDeterministic(addr.MAC{}, src, addr.IPv6{}, "eth0", compilectx.DefaultMTU, 1)
	env := ip.NewV4(ctx)
	dst, _ := addr.ParseIPv4("5.6.7.8", nil)
	env.SetDestination(dst)

	s := New(env)
	s.SetChecksum(0x1234)
	if err := s.Compile([]byte{0xde, 0xad}); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	raw := env.Frames()[0].Bytes()
	udpStart := 14 + 20
	got := binary.BigEndian.Uint16(raw[udpStart+6 : udpStart+8])
	if got != 0x1234 {
		t.Fatalf("checksum = %#04x, want overridden 0x1234", got)
	}
}
