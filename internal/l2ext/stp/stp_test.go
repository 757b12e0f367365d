package stp

import (
	"testing"

	"github.com/pumptool/tcppump/internal/addr"
)

func TestTCNBPDUIsFourBytes(t *testing.T) {
	b := New()
	b.SetTCN()
	if err := b.Compile(); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	raw := b.EthernetFrame().Bytes()
	llcStart := 14
	payload := raw[llcStart+3:] // dsap+ssap+control = 3 bytes (1-byte control)
	if len(payload) != 4 {
		t.Fatalf("TCN payload length = %d, want 4", len(payload))
	}
	if payload[3] != TypeTCN {
		t.Fatalf("type = %#x, want %#x", payload[3], TypeTCN)
	}
}

func TestConfigBPDUFieldLayout(t *testing.T) {
	b := New()
	rootMAC := addr.MAC{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	b.SetRoot(BridgeID{Priority: 8, SystemID: 0, MAC: rootMAC})
	b.SetRootPathCost(4)
	b.SetHelloTime(2)
	if err := b.Compile(); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	raw := b.EthernetFrame().Bytes()
	payload := raw[14+3:]
	if len(payload) != 35 {
		t.Fatalf("config payload length = %d, want 35", len(payload))
	}
	if payload[3] != TypeConfig {
		t.Fatalf("type = %#x, want %#x", payload[3], TypeConfig)
	}
	if payload[31] != 0x02 || payload[32] != 0x00 {
		t.Fatalf("hello time units = % x, want 512 (2s * 256)", payload[31:33])
	}
}

func TestRSTPHasVersion1Length(t *testing.T) {
	b := NewRSTP()
	b.SetPortRole(PortRoleDesignated)
	if err := b.Compile(); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	raw := b.EthernetFrame().Bytes()
	payload := raw[14+3:]
	if len(payload) != 36 {
		t.Fatalf("rstp payload length = %d, want 36", len(payload))
	}
	if payload[2] != VersionRSTP {
		t.Fatalf("version = %d, want %d", payload[2], VersionRSTP)
	}
	if payload[35] != 0x00 {
		t.Fatalf("version1Length = %#x, want 0x00", payload[35])
	}
}
