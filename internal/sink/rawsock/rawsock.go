// Package rawsock sends compiled Ethernet frames verbatim out a network
// interface using an AF_PACKET SOCK_RAW socket, pacing each send against
// the frame's offset from the pipeline's virtual clock.
package rawsock

import (
	"context"
	"fmt"
	"time"
)

// Sink transmits Ethernet frames on a single interface.
//
// Unlike the teacher's UDP-bound sockets (which carry only a BFD payload
// over an established transport header), this sink writes whatever bytes
// the compiler produced directly onto the wire: the frame already
// contains its own Ethernet header, VLAN tags, and L3/L4 payload.
type Sink struct {
	conn    *conn
	ifName  string
	started time.Time
	realt   bool
}

// Option configures a Sink.
type Option func(*Sink)

// WithRealTimePacing makes Send block until the frame's offset has
// elapsed since the sink was opened, instead of sending immediately.
func WithRealTimePacing() Option {
	return func(s *Sink) { s.realt = true }
}

// Open binds a raw AF_PACKET socket to ifName. Requires CAP_NET_RAW.
func Open(ifName string, opts ...Option) (*Sink, error) {
	c, err := openConn(ifName)
	if err != nil {
		return nil, fmt.Errorf("rawsock: open %s: %w", ifName, err)
	}

	s := &Sink{conn: c, ifName: ifName, started: time.Now()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Send writes frame to the interface, optionally pacing against offset.
func (s *Sink) Send(ctx context.Context, frame []byte, offset time.Duration) error {
	if s.realt {
		if err := sleepUntil(ctx, s.started, offset); err != nil {
			return err
		}
	}
	if err := s.conn.write(frame); err != nil {
		return fmt.Errorf("rawsock: send on %s: %w", s.ifName, err)
	}
	return nil
}

// Close releases the underlying socket.
func (s *Sink) Close() error {
	return s.conn.close()
}

func sleepUntil(ctx context.Context, started time.Time, offset time.Duration) error {
	target := started.Add(offset)
	d := time.Until(target)
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rawsock: pacing wait: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}
