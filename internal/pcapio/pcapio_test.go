package pcapio

import (
	"io"
	"os"
	"testing"
	"time"
)

func TestWriteThenReadRoundTrips(t *testing.T) {
	path := t.TempDir() + "/capture.pcap"

	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	frames := [][]byte{
		{0x01, 0x02, 0x03},
		{0xaa, 0xbb, 0xcc, 0xdd, 0xee},
	}
	base := time.Unix(1_700_000_000, 123_000)

	for i, f := range frames {
		if err := w.WritePacket(base.Add(time.Duration(i)*time.Second), f); err != nil {
			t.Fatalf("WritePacket(%d): %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	for i, want := range frames {
		ts, got, err := r.Next()
		if err != nil {
			t.Fatalf("Next(%d): %v", i, err)
		}
		if len(got) != len(want) {
			t.Fatalf("Next(%d) len = %d, want %d", i, len(got), len(want))
		}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("Next(%d)[%d] = %x, want %x", i, j, got[j], want[j])
			}
		}
		if ts.Unix() != base.Add(time.Duration(i)*time.Second).Unix() {
			t.Fatalf("Next(%d) ts = %v, want ~%v", i, ts, base.Add(time.Duration(i)*time.Second))
		}
	}

	if _, _, err := r.Next(); err != io.EOF {
		t.Fatalf("final Next() err = %v, want io.EOF", err)
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	path := t.TempDir() + "/bad.pcap"
	if err := os.WriteFile(path, []byte("not a pcap file header at all!!"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Open(path)
	if err == nil {
		t.Fatal("Open: want error for bad magic, got nil")
	}
}
