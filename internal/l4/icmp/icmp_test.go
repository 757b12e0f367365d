package icmp

import (
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

func TestCompilePingEcho(t *testing.T) {
	env := newTestEnv(t)
	d := New(env)
	if err := d.CompilePing(false, 7, 1, []byte{0xaa, 0xbb}); err != nil {
		t.Fatalf("CompilePing: %v", err)
	}
	raw := env.Frames()[0].Bytes()
	icmpStart := 14 + env.HeaderLen()
	if raw[icmpStart] != TypeEcho || raw[icmpStart+1] != 0 {
		t.Fatalf("type/code = %d/%d, want 8/0", raw[icmpStart], raw[icmpStart+1])
	}
}

func TestCompileRawEmbedsSyntheticInetHeaderForUnreachable(t *testing.T) {
	env := newTestEnv(t)
	d := New(env)
	if err := d.CompileRaw(TypeUnreachable, 1, nil, nil); err != nil {
		t.Fatalf("CompileRaw: %v", err)
	}
	raw := env.Frames()[0].Bytes()
	icmpStart := 14 + env.HeaderLen()
	innerIPStart := icmpStart + headerLen
	if len(raw) < innerIPStart+20 {
		t.Fatalf("frame too short to hold synthetic inner header: %d bytes", len(raw))
	}
	if raw[innerIPStart] != 0x45 {
		t.Fatalf("inner header version/IHL = %#x, want 0x45", raw[innerIPStart])
	}
}

func TestCompileRawChecksumOverride(t *testing.T) {
	env := newTestEnv(t)
	d := New(env)
	override := uint16(0x4242)
	if err := d.CompileRaw(TypeEcho, 0, []byte{1, 2, 3}, &override); err != nil {
		t.Fatalf("CompileRaw: %v", err)
	}
	raw := env.Frames()[0].Bytes()
	icmpStart := 14 + env.HeaderLen()
	got := uint16(raw[icmpStart+2])<<8 | uint16(raw[icmpStart+3])
	if got != override {
		t.Fatalf("checksum = %#04x, want %#04x", got, override)
	}
}
