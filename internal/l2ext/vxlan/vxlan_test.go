package vxlan

import (
	"testing"

	"github.com/pumptool/tcppump/internal/addr"
	"github.com/pumptool/tcppump/internal/compilectx"
	"github.com/pumptool/tcppump/internal/ip"
)

func TestCompileSetsIFlagAndVNI(t *testing.T) {
	src, _ := addr.ParseIPv4("10.0.0.1", nil)
	ctx := compilectx.NewDeterministic(addr.MAC{}, src, addr.IPv6{}, "eth0", compilectx.DefaultMTU, 1)
	env := ip.NewV4(ctx)
	dst, _ := addr.ParseIPv4("10.0.0.2", nil)
	env.SetDestination(dst)

	f := New(env)
	if err := f.SetVNI(0x123456); err != nil {
		t.Fatalf("SetVNI: %v", err)
	}
	if err := f.Compile([]byte{0xde, 0xad}); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	raw := env.Frames()[0].Bytes()
	udpStart := 14 + 20
	vxlanStart := udpStart + 8
	if raw[vxlanStart]&flagVNI == 0 {
		t.Fatal("I flag not set")
	}
	vni := (uint32(raw[vxlanStart+4])<<16 | uint32(raw[vxlanStart+5])<<8 | uint32(raw[vxlanStart+6]))
	if vni != 0x123456 {
		t.Fatalf("VNI = %#06x, want 0x123456", vni)
	}
}

func TestSetVNIRejectsOverflow(t *testing.T) {
	src, _ := addr.ParseIPv4("10.0.0.1", nil)
	ctx := compilectx.NewDeterministic(addr.MAC{}, src, addr.IPv6{}, "eth0", compilectx.DefaultMTU, 1)
	env := ip.NewV4(ctx)
	f := New(env)
	if err := f.SetVNI(0x01000000); err == nil {
		t.Fatal("expected ErrVNIOverflow")
	}
}

func TestMarshalUnmarshalHeaderRoundTrip(t *testing.T) {
	for _, vni := range []uint32{0, 1, 100, 4096, 0x00ffffff} {
		buf := make([]byte, HeaderSize)
		n, err := MarshalHeader(buf, vni)
		if err != nil {
			t.Fatalf("MarshalHeader(%d): %v", vni, err)
		}
		if n != HeaderSize {
			t.Fatalf("MarshalHeader wrote %d bytes, want %d", n, HeaderSize)
		}

		hdr, err := UnmarshalHeader(buf)
		if err != nil {
			t.Fatalf("UnmarshalHeader: %v", err)
		}
		if hdr.VNI != vni {
			t.Errorf("VNI = %d, want %d", hdr.VNI, vni)
		}
	}
}

func TestMarshalHeaderSetsIFlagAndClearsReserved(t *testing.T) {
	buf := make([]byte, HeaderSize)
	if _, err := MarshalHeader(buf, 100); err != nil {
		t.Fatalf("MarshalHeader: %v", err)
	}
	if buf[0]&flagVNI == 0 {
		t.Error("I flag not set in marshaled header")
	}
	for i := 1; i <= 3; i++ {
		if buf[i] != 0 {
			t.Errorf("reserved byte[%d] = 0x%02x, want 0x00", i, buf[i])
		}
	}
	if buf[7] != 0 {
		t.Errorf("reserved byte[7] = 0x%02x, want 0x00", buf[7])
	}
}

func TestUnmarshalHeaderRejectsMissingIFlag(t *testing.T) {
	buf := make([]byte, HeaderSize)
	if _, err := UnmarshalHeader(buf); err == nil {
		t.Fatal("expected error for missing I flag")
	}
}

func TestHeaderRejectsShortBuffer(t *testing.T) {
	buf := make([]byte, 7)
	if _, err := MarshalHeader(buf, 1); err == nil {
		t.Fatal("expected error for short buffer on marshal")
	}
	if _, err := UnmarshalHeader(buf); err == nil {
		t.Fatal("expected error for short buffer on unmarshal")
	}
}

func TestMarshalHeaderRejectsVNIOverflow(t *testing.T) {
	buf := make([]byte, HeaderSize)
	if _, err := MarshalHeader(buf, 0x01000000); err == nil {
		t.Fatal("expected error for VNI overflow")
	}
}
