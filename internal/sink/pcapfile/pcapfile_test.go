package pcapfile

import (
	"context"
	"testing"
	"time"

	"github.com/pumptool/tcppump/internal/pcapio"
)

func TestSendWritesOffsetStampedRecords(t *testing.T) {
	path := t.TempDir() + "/out.pcap"
	start := time.Unix(1_700_000_000, 0)

	s, err := Create(path, start)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.Send(context.Background(), []byte{1, 2, 3}, 0); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := s.Send(context.Background(), []byte{4, 5, 6, 7}, 2*time.Second); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := pcapio.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	ts0, frame0, err := r.Next()
	if err != nil {
		t.Fatalf("Next(0): %v", err)
	}
	if ts0.Unix() != start.Unix() {
		t.Errorf("ts0 = %v, want %v", ts0, start)
	}
	if len(frame0) != 3 {
		t.Errorf("frame0 len = %d, want 3", len(frame0))
	}

	ts1, frame1, err := r.Next()
	if err != nil {
		t.Fatalf("Next(1): %v", err)
	}
	if ts1.Unix() != start.Add(2*time.Second).Unix() {
		t.Errorf("ts1 = %v, want %v", ts1, start.Add(2*time.Second))
	}
	if len(frame1) != 4 {
		t.Errorf("frame1 len = %d, want 4", len(frame1))
	}
}
