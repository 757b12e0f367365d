package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"connectrpc.com/connect"
)

// ErrPanicRecovered indicates the Compile handler panicked and was
// recovered before a response reached the caller.
var ErrPanicRecovered = errors.New("panic recovered in compile rpc handler")

// LoggingInterceptor returns a ConnectRPC unary interceptor that logs
// every Compile call with the script size, frame count returned, and
// duration. A script that fails to compile logs at Warn with the
// parse/compile error instead of a frame count.
//
// Log level is Info for successful compiles and Warn for calls that
// return errors.
func LoggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			duration := time.Since(start)

			attrs := []slog.Attr{
				slog.String("procedure", req.Spec().Procedure),
				slog.Duration("duration", duration),
			}
			if creq, ok := req.Any().(*CompileRequest); ok {
				attrs = append(attrs,
					slog.Int("script_bytes", len(creq.ScriptText)),
					slog.Int("instructions", len(creq.Instructions)),
					slog.Bool("send", creq.Send),
				)
			}

			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelWarn, "compile rpc completed with error", attrs...)
				return resp, err
			}

			if cresp, ok := resp.Any().(*CompileResponse); ok {
				attrs = append(attrs, slog.Int("frames_emitted", len(cresp.Frames)))
			}
			logger.LogAttrs(ctx, slog.LevelInfo, "compile rpc completed", attrs...)

			return resp, err
		}
	}
}

// RecoveryInterceptor returns a ConnectRPC unary interceptor that
// recovers from panics in the Compile handler -- most plausibly a
// malformed instruction tripping an encoder's unchecked invariant. On
// panic it logs the panic value and stack trace at Error level and
// returns a CodeInternal error to the client rather than tearing down
// the daemon's single control-plane process over one bad script.
func RecoveryInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (resp connect.AnyResponse, retErr error) {
			defer func() {
				if r := recover(); r != nil {
					buf := make([]byte, 4096)
					n := runtime.Stack(buf, false)

					logger.ErrorContext(ctx, "panic recovered in compile rpc handler",
						slog.String("procedure", req.Spec().Procedure),
						slog.Any("panic", r),
						slog.String("stack", string(buf[:n])),
					)

					retErr = connect.NewError(connect.CodeInternal,
						fmt.Errorf("%s: %w", req.Spec().Procedure, ErrPanicRecovered))
				}
			}()

			return next(ctx, req)
		}
	}
}
