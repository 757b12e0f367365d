package control

import (
	"context"
	"fmt"
	"time"

	"connectrpc.com/connect"

	"github.com/pumptool/tcppump/internal/compilectx"
	"github.com/pumptool/tcppump/internal/driver"
	"github.com/pumptool/tcppump/internal/metrics"
	"github.com/pumptool/tcppump/internal/sink"
)

// ContextFactory builds a fresh compilectx.Context for one Compile call.
// A fresh context per call keeps counter-mode IPv4 identification and
// TCP sequence counters request-scoped rather than shared process-wide
// state, matching how each script run gets its own virtual clock.
type ContextFactory func() (*compilectx.Context, error)

// Service implements the Compile RPC: it runs a script or inline
// instruction list through the driver and returns the frames produced,
// optionally also forwarding them to a live sink.
type Service struct {
	newContext ContextFactory
	driverOpts driver.Options
	forward    sink.Sink // nil if this server has no live sink configured
	metrics    *metrics.Collector
}

// NewService builds a Service. forward may be nil; requests with
// Send=true then fail with CodeFailedPrecondition. collector may be nil
// to disable metrics.
func NewService(newContext ContextFactory, opts driver.Options, forward sink.Sink, collector *metrics.Collector) *Service {
	return &Service{newContext: newContext, driverOpts: opts, forward: forward, metrics: collector}
}

// Compile parses and compiles req's script or instruction list, returning
// every Ethernet frame produced in emission order.
func (s *Service) Compile(ctx context.Context, req *CompileRequest) (*CompileResponse, error) {
	if req.Send && s.forward == nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition,
			fmt.Errorf("control: server has no live sink configured, cannot honor send=true"))
	}

	cctx, err := s.newContext()
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("control: build compile context: %w", err))
	}

	rec := &recordingSink{}
	var out sink.Sink = rec
	if req.Send {
		out = teeSink{primary: rec, forward: s.forward}
	}

	if s.metrics != nil {
		s.metrics.RegisterDriverStart()
		defer s.metrics.RegisterDriverDone()
	}

	d := driver.New(cctx, out, s.driverOpts)

	switch {
	case req.ScriptText != "":
		err = d.CompileText(ctx, "<rpc>", req.ScriptText)
	default:
		err = d.CompileInline(ctx, req.Instructions)
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncParseError("RPCCompile")
		}
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("control: compile: %w", err))
	}

	if s.metrics != nil {
		s.metrics.AddFramesEmitted("rpc", len(rec.frames))
	}

	return &CompileResponse{Frames: rec.frames}, nil
}

// recordingSink captures every compiled frame instead of transmitting
// it anywhere, so Compile can return them to the caller.
type recordingSink struct {
	frames []CompiledFrame
}

func (r *recordingSink) Send(_ context.Context, frame []byte, offset time.Duration) error {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	r.frames = append(r.frames, CompiledFrame{OffsetUs: offset.Microseconds(), Bytes: cp})
	return nil
}

// teeSink records a frame and also forwards it to a live sink, used
// when a Compile request asks to also transmit what it compiles.
type teeSink struct {
	primary *recordingSink
	forward sink.Sink
}

func (t teeSink) Send(ctx context.Context, frame []byte, offset time.Duration) error {
	if err := t.primary.Send(ctx, frame, offset); err != nil {
		return err
	}
	return t.forward.Send(ctx, frame, offset)
}
