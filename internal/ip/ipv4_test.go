package ip

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/pumptool/tcppump/internal/addr"
	"github.com/pumptool/tcppump/internal/compilectx"
)

func mustCtx(t *testing.T, ownIP string, mtu int) *compilectx.Context {
	t.Helper()
	ip, err := addr.ParseIPv4(ownIP, nil)
	if err != nil {
		t.Fatalf("ParseIPv4(%q): %v", ownIP, err)
	}
	return compilectx.NewDeterministic(addr.MAC{}, ip, addr.IPv6{}, "eth0", mtu, 1)
}

func TestV4KnownVector(t *testing.T) {
	ctx := mustCtx(t, "10.10.10.10", compilectx.DefaultMTU)
	v := NewV4(ctx)
	dmac, err := addr.ParseMAC("11:22:33:44:55:66")
	if err != nil {
		t.Fatal(err)
	}
	v.EthernetFrame().SetDestMAC(dmac)
	dip, err := addr.ParseIPv4("1.2.3.4", nil)
	if err != nil {
		t.Fatal(err)
	}
	v.SetDestination(dip)

	payload, _ := hex.DecodeString("12345678")
	if err := v.Compile(254, nil, payload); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	frames := v.Frames()
	if len(frames) != 1 {
		t.Fatalf("len(Frames()) = %d, want 1", len(frames))
	}
	raw := frames[0].Bytes()
	if len(raw) != 38 {
		t.Fatalf("frame length = %d, want 38", len(raw))
	}
	checksum := binary.BigEndian.Uint16(raw[24:26])
	if checksum != 0x61CF {
		t.Fatalf("IP checksum = %#04x, want 0x61cf", checksum)
	}
}

func TestV4FragmentationLaw(t *testing.T) {
	ctx := mustCtx(t, "10.10.10.10", 100)
	v := NewV4(ctx)
	dip, _ := addr.ParseIPv4("1.2.3.4", nil)
	v.SetDestination(dip)

	l4hdr := bytes.Repeat([]byte{0xAA}, 8)
	payload := bytes.Repeat([]byte{0xBB}, 300)

	if err := v.Compile(17, l4hdr, payload); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	frames := v.Frames()

	ipHeaderLen := 20
	mtu := 100
	wantFrags := (len(l4hdr)+len(payload)-1)/(mtu-ipHeaderLen) + 1
	if len(frames) != wantFrags {
		t.Fatalf("fragment count = %d, want %d", len(frames), wantFrags)
	}

	var reassembled []byte
	var ids []uint16
	for i, f := range frames {
		raw := f.Bytes()
		ipStart := 14
		totalLen := binary.BigEndian.Uint16(raw[ipStart+2 : ipStart+4])
		ids = append(ids, binary.BigEndian.Uint16(raw[ipStart+4:ipStart+6]))
		flags := binary.BigEndian.Uint16(raw[ipStart+6 : ipStart+8])
		mf := flags&flagMF != 0

		if i != len(frames)-1 {
			if int(totalLen) != mtu {
				t.Fatalf("fragment %d total length = %d, want %d", i, totalLen, mtu)
			}
			if !mf {
				t.Fatalf("fragment %d missing MF flag", i)
			}
		} else if mf {
			t.Fatalf("last fragment must not carry MF")
		}
		reassembled = append(reassembled, raw[ipStart+ipHeaderLen:]...)
	}
	want := append(append([]byte{}, l4hdr...), payload...)
	if !bytes.Equal(reassembled, want) {
		t.Fatalf("reassembled payload mismatch: got %d bytes, want %d", len(reassembled), len(want))
	}
	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("fragment identification differs: %v", ids)
		}
	}
}
