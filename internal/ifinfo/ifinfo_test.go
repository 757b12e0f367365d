package ifinfo

import (
	"testing"

	"github.com/pumptool/tcppump/internal/addr"
)

func TestLookupLoopback(t *testing.T) {
	info, err := Lookup("lo")
	if err != nil {
		t.Skipf("no loopback interface named lo on this system: %v", err)
	}
	if info.Name != "lo" {
		t.Fatalf("Name = %q, want lo", info.Name)
	}
	if info.MTU <= 0 {
		t.Fatalf("MTU = %d, want > 0", info.MTU)
	}
}

func TestLookupUnknownInterface(t *testing.T) {
	if _, err := Lookup("does-not-exist-0"); err == nil {
		t.Fatal("Lookup: want error for nonexistent interface")
	}
}

func TestResolveAppliesOverrides(t *testing.T) {
	mac := addr.MAC{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}
	ip4, err := addr.ParseIPv4("203.0.113.5", nil)
	if err != nil {
		t.Fatalf("ParseIPv4: %v", err)
	}

	info, err := Resolve("lo", Overrides{MAC: &mac, IPv4: &ip4, MTU: 1280})
	if err != nil {
		t.Skipf("no loopback interface named lo on this system: %v", err)
	}
	if info.MAC != mac {
		t.Fatalf("MAC = %v, want %v", info.MAC, mac)
	}
	if info.IPv4 != ip4 {
		t.Fatalf("IPv4 = %v, want %v", info.IPv4, ip4)
	}
	if info.MTU != 1280 {
		t.Fatalf("MTU = %d, want 1280", info.MTU)
	}
}
