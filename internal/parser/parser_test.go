package parser

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/pumptool/tcppump/internal/addr"
	"github.com/pumptool/tcppump/internal/compilectx"
	"github.com/pumptool/tcppump/internal/paramlist"
)

func newTestCtx() *compilectx.Context {
	mac := addr.MAC{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	ip4, _ := addr.ParseIPv4("192.168.0.1", nil)
	return compilectx.NewDeterministic(mac, ip4, addr.IPv6{}, "eth0", compilectx.DefaultMTU, 1)
}

func TestParseAbsoluteTimestamp(t *testing.T) {
	in, err := Parse(newTestCtx(), `1000: udp(dip=10.0.0.1, sport=1, dport=2)`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if in.Timestamp == nil || in.Timestamp.Value != 1000 || in.Timestamp.Relative {
		t.Fatalf("timestamp = %+v, want absolute 1000", in.Timestamp)
	}
	if in.Identifier != "udp" {
		t.Fatalf("identifier = %s, want udp", in.Identifier)
	}
}

func TestParseRelativeTimestamp(t *testing.T) {
	in, err := Parse(newTestCtx(), `+50: udp(dip=10.0.0.1, sport=1, dport=2)`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if in.Timestamp == nil || in.Timestamp.Value != 50 || !in.Timestamp.Relative {
		t.Fatalf("timestamp = %+v, want relative 50", in.Timestamp)
	}
}

func TestParseNoTimestamp(t *testing.T) {
	in, err := Parse(newTestCtx(), `udp(dip=10.0.0.1, sport=1, dport=2)`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if in.Timestamp != nil {
		t.Fatalf("timestamp = %+v, want nil", in.Timestamp)
	}
}

func TestUnknownIdentifierFails(t *testing.T) {
	_, err := Parse(newTestCtx(), `bogus(foo=1)`)
	if !errors.Is(err, ErrUnknownProto) {
		t.Fatalf("err = %v, want ErrUnknownProto", err)
	}
}

func TestUnusedParameterFails(t *testing.T) {
	_, err := Parse(newTestCtx(), `udp(dip=10.0.0.1, sport=1, dport=2, bogus=1)`)
	if !errors.Is(err, paramlist.ErrParamUnused) {
		t.Fatalf("err = %v, want ErrParamUnused", err)
	}
}

func TestUDPDispatchBuildsFrameWithPorts(t *testing.T) {
	in, err := Parse(newTestCtx(), `udp(dip=10.0.0.1, sport=1111, dport=2222, data=aabb)`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(in.Frames) != 1 {
		t.Fatalf("frames = %d, want 1", len(in.Frames))
	}
	raw := in.Frames[0].Bytes()
	udpStart := 14 + 20
	sport := binary.BigEndian.Uint16(raw[udpStart : udpStart+2])
	dport := binary.BigEndian.Uint16(raw[udpStart+2 : udpStart+4])
	if sport != 1111 || dport != 2222 {
		t.Fatalf("ports = %d/%d, want 1111/2222", sport, dport)
	}
}

func TestARPProbeUsesZeroSenderIP(t *testing.T) {
	in, err := Parse(newTestCtx(), `arp-probe(dip=10.0.0.5)`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	raw := in.Frames[0].Bytes()
	arpStart := 14
	senderIP := raw[arpStart+14 : arpStart+18]
	for _, b := range senderIP {
		if b != 0 {
			t.Fatalf("sender IP = % x, want all zero", senderIP)
		}
	}
}

func TestICMPRedirectEmbedsNestedInstruction(t *testing.T) {
	in, err := Parse(newTestCtx(), `icmp-redirect(dip=10.0.0.1, gateway=10.0.0.254, embedded=<ipv4(dip=8.8.8.8, proto=17)>)`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(in.Frames) == 0 {
		t.Fatal("no frames produced")
	}
}

func TestRawEncoderBuildsExactBytes(t *testing.T) {
	in, err := Parse(newTestCtx(), `raw(byte=0xaa, be16=0x1234, stream="hi")`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	raw := in.Frames[0].Bytes()
	want := []byte{0xaa, 0x12, 0x34, 'h', 'i'}
	if len(raw) != len(want) {
		t.Fatalf("raw = % x, want % x", raw, want)
	}
	for i := range want {
		if raw[i] != want[i] {
			t.Fatalf("raw = % x, want % x", raw, want)
		}
	}
}

func TestMissingRequiredParameterFails(t *testing.T) {
	_, err := Parse(newTestCtx(), `udp(sport=1, dport=2)`)
	if !errors.Is(err, paramlist.ErrParamUnknown) {
		t.Fatalf("err = %v, want ErrParamUnknown", err)
	}
}

func TestEmbeddedDepthGuardTrips(t *testing.T) {
	ctx := newTestCtx()
	// Build a deeply self-referential embedded chain manually by nesting
	// icmp-redirect inside its own embedded parameter past the depth
	// limit (compilectx.MaxEmbeddedDepth).
	text := `icmp-redirect(dip=10.0.0.1, gateway=10.0.0.254, embedded=<icmp-redirect(dip=10.0.0.1, gateway=10.0.0.254, embedded=<icmp-redirect(dip=10.0.0.1, gateway=10.0.0.254, embedded=<icmp-redirect(dip=10.0.0.1, gateway=10.0.0.254, embedded=<icmp-redirect(dip=10.0.0.1, gateway=10.0.0.254, embedded=<icmp-redirect(dip=10.0.0.1, gateway=10.0.0.254, embedded=<icmp-redirect(dip=10.0.0.1, gateway=10.0.0.254, embedded=<icmp-redirect(dip=10.0.0.1, gateway=10.0.0.254, embedded=<icmp-redirect(dip=10.0.0.1, gateway=10.0.0.254, embedded=<icmp-echo(dip=10.0.0.1)>)>)>)>)>)>)>)>)>)`
	_, err := Parse(ctx, text)
	if !errors.Is(err, ErrEmbedTooDeep) {
		t.Fatalf("err = %v, want ErrEmbedTooDeep", err)
	}
}
