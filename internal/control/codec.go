package control

import (
	"encoding/json"
	"fmt"
)

// jsonCodec implements connect.Codec over encoding/json instead of
// protobuf. The Compile service exchanges plain Go structs (types.go)
// rather than generated protobuf messages: none of the pack's examples
// vendor a protoc/buf toolchain invocation this module can reproduce
// byte-for-byte without running it, so the wire format here is
// connect-rpc's transport and framing with a hand-authored JSON codec
// in place of the usual protobuf/protojson pair.
type jsonCodec struct{}

// Name identifies this codec on the wire; connect negotiates codecs by
// name via the Content-Type header's subtype.
func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("control: marshal json: %w", err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("control: unmarshal json: %w", err)
	}
	return nil
}
