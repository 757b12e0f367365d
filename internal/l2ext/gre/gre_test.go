package gre

import (
	"encoding/binary"
	"testing"

	"github.com/pumptool/tcppump/internal/addr"
	"github.com/pumptool/tcppump/internal/compilectx"
	"github.com/pumptool/tcppump/internal/ip"
)

func newTestEnv(t *testing.T) *ip.V4 {
	t.Helper()
	src, err := addr.ParseIPv4("10.0.0.1", nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := compilectx.NewDeterministic(addr.MAC{}, src, addr.IPv6{}, "eth0", compilectx.DefaultMTU, 1)
	env := ip.NewV4(ctx)
	dst, _ := addr.ParseIPv4("10.0.0.2", nil)
	env.SetDestination(dst)
	return env
}

func TestCompileBasicHeaderOnly(t *testing.T) {
	env := newTestEnv(t)
	d := New(env)
	d.SetProtocolType(0x0800)
	if err := d.Compile([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	raw := env.Frames()[0].Bytes()
	greStart := 14 + 20
	if raw[greStart] != 0 {
		t.Fatalf("flags = %#x, want 0", raw[greStart])
	}
	proto := binary.BigEndian.Uint16(raw[greStart+2 : greStart+4])
	if proto != 0x0800 {
		t.Fatalf("protocol = %#x, want 0x0800", proto)
	}
}

func TestCompileWithKeyAndSequence(t *testing.T) {
	env := newTestEnv(t)
	d := New(env)
	d.SetProtocolType(0x0800)
	d.SetKey(0xdeadbeef)
	d.SetSequence(42)
	if err := d.Compile([]byte{0xaa}); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	raw := env.Frames()[0].Bytes()
	greStart := 14 + 20
	flags := raw[greStart]
	if flags&flagKey == 0 || flags&flagSequence == 0 {
		t.Fatalf("flags = %#x, want key+sequence bits set", flags)
	}
	key := binary.BigEndian.Uint32(raw[greStart+4 : greStart+8])
	if key != 0xdeadbeef {
		t.Fatalf("key = %#x, want 0xdeadbeef", key)
	}
	seq := binary.BigEndian.Uint32(raw[greStart+8 : greStart+12])
	if seq != 42 {
		t.Fatalf("seq = %d, want 42", seq)
	}
}

func TestCompileAutoChecksumWhenZeroGiven(t *testing.T) {
	env := newTestEnv(t)
	d := New(env)
	d.SetProtocolType(0x0800)
	d.SetChecksum(0)
	if err := d.Compile([]byte{0x11, 0x22, 0x33}); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	raw := env.Frames()[0].Bytes()
	greStart := 14 + 20
	cs := binary.BigEndian.Uint16(raw[greStart+4 : greStart+6])
	if cs == 0 {
		t.Fatal("expected non-zero computed checksum")
	}
}
