package control

// CompileRequest carries a script body (or an inline instruction list)
// to be compiled and, optionally, sent through a running sink.
type CompileRequest struct {
	// ScriptText, when non-empty, is parsed exactly like a script file:
	// comments, ';'-terminated instructions, and timestamps chain
	// across the whole text.
	ScriptText string `json:"script_text,omitempty"`

	// Instructions, used when ScriptText is empty, is a list of
	// already-split instruction strings with no virtual-clock chaining
	// against a shared script start.
	Instructions []string `json:"instructions,omitempty"`

	// Send, when true, feeds compiled frames into the server's
	// configured sink in addition to returning them. When false, the
	// request only compiles and returns frames (a dry run).
	Send bool `json:"send,omitempty"`
}

// CompiledFrame is one Ethernet frame produced by compiling an
// instruction, alongside its offset on the virtual clock.
type CompiledFrame struct {
	OffsetUs int64  `json:"offset_us"`
	Bytes    []byte `json:"bytes"`
}

// CompileResponse carries every frame produced by a CompileRequest, in
// emission order.
type CompileResponse struct {
	Frames []CompiledFrame `json:"frames"`
}
