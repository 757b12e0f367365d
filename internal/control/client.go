package control

import "connectrpc.com/connect"

// CompileClient is a Connect-RPC client bound to the Compile RPC.
type CompileClient = connect.Client[CompileRequest, CompileResponse]

// NewClient builds a typed Connect-RPC client for the Compile RPC against
// baseURL (e.g. "http://localhost:50051"), using the same hand-written
// JSON codec as the server - see codec.go for why no protobuf codegen is
// involved on either side of this connection.
func NewClient(httpClient connect.HTTPClient, baseURL string) *CompileClient {
	return connect.NewClient[CompileRequest, CompileResponse](
		httpClient,
		baseURL+CompileProcedure,
		connect.WithCodec(jsonCodec{}),
	)
}
