package vrrp

import (
	"bytes"
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
	return ip.NewV4(ctx)
}

func TestVRRPv2DestMACAndPadding(t *testing.T) {
	env := newTestEnv(t)
	a := New(env, 2)
	a.SetVRID(5)
	a.SetPriority(100)
	vip, _ := addr.ParseIPv4("10.0.0.254", nil)
	a.AddVirtualIP(vip)

	if err := a.Compile(); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	raw := env.Frames()[0].Bytes()
	wantMAC := []byte{0x00, 0x00, 0x5e, 0x00, 0x01, 0x05}
	if !bytes.Equal(raw[0:6], wantMAC) {
		t.Fatalf("dest MAC = % x, want % x", raw[0:6], wantMAC)
	}

	ipHeaderLen := 20
	vrrpStart := 14 + ipHeaderLen
	count := raw[vrrpStart+3]
	if count != 1 {
		t.Fatalf("countIpAddr = %d, want 1 (auth padding excluded)", count)
	}

	dst := raw[14+16 : 14+20]
	want := []byte{224, 0, 0, 18}
	if !bytes.Equal(dst, want) {
		t.Fatalf("IP destination = %v, want %v", dst, want)
	}

	payloadLen := len(raw) - vrrpStart - headerLen
	if payloadLen != 4+8 {
		t.Fatalf("payload length = %d, want 12 (1 virtual IP + 8 bytes auth padding)", payloadLen)
	}
}

func TestVRRPv3NoAuthPadding(t *testing.T) {
	env := newTestEnv(t)
	a := New(env, 3)
	a.SetVRID(1)
	vip, _ := addr.ParseIPv4("10.0.0.254", nil)
	a.AddVirtualIP(vip)

	if err := a.Compile(); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	raw := env.Frames()[0].Bytes()
	ipHeaderLen := 20
	vrrpStart := 14 + ipHeaderLen
	payloadLen := len(raw) - vrrpStart - headerLen
	if payloadLen != 4 {
		t.Fatalf("payload length = %d, want 4 (no v2-only auth padding)", payloadLen)
	}
}
