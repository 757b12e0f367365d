package control

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
)

// ServiceName is the control plane's health-check service identity.
const ServiceName = "pump.v1.CompilerService"

// CompileProcedure is the RPC path the Compile handler is mounted on.
const CompileProcedure = "/" + ServiceName + "/Compile"

// New builds the HTTP handler for the control plane: the Compile RPC
// plus a gRPC health-check service, both served over the JSON codec.
// logger is used by the logging and panic-recovery interceptors.
func New(svc *Service, logger *slog.Logger) http.Handler {
	interceptors := connect.WithInterceptors(
		RecoveryInterceptor(logger),
		LoggingInterceptor(logger),
	)
	codec := connect.WithCodec(jsonCodec{})

	compile := func(ctx context.Context, req *connect.Request[CompileRequest]) (*connect.Response[CompileResponse], error) {
		resp, err := svc.Compile(ctx, req.Msg)
		if err != nil {
			return nil, err
		}
		return connect.NewResponse(resp), nil
	}

	mux := http.NewServeMux()
	mux.Handle(CompileProcedure, connect.NewUnaryHandler(CompileProcedure, compile, interceptors, codec))

	checker := grpchealth.NewStaticChecker(ServiceName)
	mux.Handle(grpchealth.NewHandler(checker))

	return mux
}
