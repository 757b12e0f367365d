package tcp

import (
	"testing"

	"github.com/pumptool/tcppump/internal/addr"
	"github.com/pumptool/tcppump/internal/compilectx"
	"github.com/pumptool/tcppump/internal/ip"
)

func newTestEnv(t *testing.T) (*compilectx.Context, *ip.V4) {
	t.Helper()
	src, err := addr.ParseIPv4("10.0.0.1", nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := compilectx.NewDeterministic(addr.MAC{}, src, addr.IPv6{}, "eth0", compilectx.DefaultMTU, 1)
	env := ip.NewV4(ctx)
	dst, _ := addr.ParseIPv4("10.0.0.2", nil)
	env.SetDestination(dst)
	return ctx, env
}

func TestTCPSequenceAdvancesBySYN(t *testing.T) {
	ctx, env := newTestEnv(t)
	s := New(ctx, env)
	s.SetSourcePort(1234)
	s.SetDestinationPort(80)
	s.ConfigureSYN()
	if err := s.Compile(nil, true); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	// SYN with no payload advances the running counter by exactly 1.
	next := ctx.AdvanceTCPSequence(0)
	if next != 1 {
		t.Fatalf("sequence after SYN = %d, want 1", next)
	}
}

func TestTCPSequenceAdvancesByPayloadLength(t *testing.T) {
	ctx, env := newTestEnv(t)
	s := New(ctx, env)
	s.SetSourcePort(1111)
	s.SetDestinationPort(2222)
	s.SetSeqNumber(100)
	if err := s.Compile([]byte{1, 2, 3, 4, 5}, true); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	next := ctx.AdvanceTCPSequence(0)
	if next != 105 {
		t.Fatalf("sequence after 5-byte payload = %d, want 105", next)
	}
}

func TestTCPExplicitChecksumBypassesComputation(t *testing.T) {
	ctx, env := newTestEnv(t)
	s := New(ctx, env)
	s.SetSourcePort(1)
	s.SetDestinationPort(2)
	s.SetChecksum(0xBEEF)
	if err := s.Compile(nil, false); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	raw := env.Frames()[0].Bytes()
	ipHeaderLen := 20
	tcpStart := 14 + ipHeaderLen
	got := uint16(raw[tcpStart+16])<<8 | uint16(raw[tcpStart+17])
	if got != 0xBEEF {
		t.Fatalf("checksum = %#04x, want 0xbeef", got)
	}
}
