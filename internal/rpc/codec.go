package rpc

import (
	"github.com/fxamacker/cbor/v2"
)

// Codec moves wire structs as CBOR. It is forced on every client call and
// on the test server, bypassing the protobuf codec gRPC would otherwise
// expect.
type Codec struct{}

// Name identifies the codec in the gRPC content subtype.
func (Codec) Name() string { return "cbor" }

func (Codec) Marshal(v any) ([]byte, error) {
	return cbor.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}
