package eth

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/pumptool/tcppump/internal/addr"
)

func mustMAC(t *testing.T, s string) addr.MAC {
	t.Helper()
	m, err := addr.ParseMAC(s)
	if err != nil {
		t.Fatalf("ParseMAC(%q): %v", s, err)
	}
	return m
}

func TestFrameKnownVector(t *testing.T) {
	f := New()
	f.SetDestMAC(mustMAC(t, "11:22:33:44:55:66"))
	f.SetSourceMAC(mustMAC(t, "aa:bb:cc:dd:ee:ff"))
	f.SetEthertype(0x8123)
	payload, err := hex.DecodeString("1234567890abcdef")
	if err != nil {
		t.Fatal(err)
	}
	f.SetPayload(payload)

	want, _ := hex.DecodeString("112233445566aabbccddeeff81231234567890abcdef")
	if got := f.Bytes(); !bytes.Equal(got, want) {
		t.Fatalf("Bytes() = % x, want % x", got, want)
	}
	if len(f.Bytes()) != 22 {
		t.Fatalf("len = %d, want 22", len(f.Bytes()))
	}
}

func TestVLANTagPlacement(t *testing.T) {
	f := New()
	f.SetDestMAC(mustMAC(t, "11:22:33:44:55:66"))
	f.SetSourceMAC(mustMAC(t, "aa:bb:cc:dd:ee:ff"))
	f.AddVLANTag(VLANTag{TPID: EthertypeVLAN, VID: 10, Prio: 3})
	f.SetEthertype(0x0800)
	f.SetPayload([]byte{0xde, 0xad})

	got := f.Bytes()
	if !bytes.Equal(got[:12], append(mustMAC(t, "11:22:33:44:55:66").Bytes(), mustMAC(t, "aa:bb:cc:dd:ee:ff").Bytes()...)) {
		t.Fatal("MAC header altered by VLAN insertion")
	}
	if got[12] != 0x81 || got[13] != 0x00 {
		t.Fatalf("TPID = %x %x, want 81 00", got[12], got[13])
	}
	// TCI: prio=3 (0b011) << 13 | vid 10 = 0x6000 | 0x000a = 0x600a
	if got[14] != 0x60 || got[15] != 0x0a {
		t.Fatalf("TCI = %x %x, want 60 0a", got[14], got[15])
	}
	if got[16] != 0x08 || got[17] != 0x00 {
		t.Fatalf("ethertype = %x %x, want 08 00", got[16], got[17])
	}
	if !bytes.Equal(got[18:], []byte{0xde, 0xad}) {
		t.Fatal("payload shifted/corrupted")
	}
}
