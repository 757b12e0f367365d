// Package sink defines the boundary between the compiled-frame pipeline
// and whatever actually puts bytes on a wire. The driver paces calls to
// Send using the compiled offsets; Send itself is expected to block
// until the frame has left the process (or failed to).
package sink

import (
	"context"
	"time"
)

// Sink accepts one already-compiled Ethernet frame at a time. offset is
// the cumulative time since the pipeline started, as computed by the
// driver's virtual clock; implementations that care about real-time
// pacing sleep until offset has elapsed before sending.
type Sink interface {
	Send(ctx context.Context, frame []byte, offset time.Duration) error
}
