// Package pcapfile adapts internal/pcapio into a sink.Sink: every
// compiled frame is appended to a pcap savefile stamped with the
// pipeline's start time plus the frame's virtual-clock offset.
package pcapfile

import (
	"context"
	"fmt"
	"time"

	"github.com/pumptool/tcppump/internal/pcapio"
)

// Sink writes frames to a pcap savefile.
type Sink struct {
	w     *pcapio.Writer
	start time.Time
}

// Create opens path for writing, stamping the first frame's record at
// started (typically time.Now()) and subsequent frames at
// started+offset.
func Create(path string, started time.Time) (*Sink, error) {
	w, err := pcapio.Create(path)
	if err != nil {
		return nil, err
	}
	return &Sink{w: w, start: started}, nil
}

// Send appends frame as one pcap record timestamped start+offset.
func (s *Sink) Send(_ context.Context, frame []byte, offset time.Duration) error {
	if err := s.w.WritePacket(s.start.Add(offset), frame); err != nil {
		return fmt.Errorf("pcapfile: write record: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (s *Sink) Close() error {
	return s.w.Close()
}
