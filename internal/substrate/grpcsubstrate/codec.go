// Package grpcsubstrate implements the gRPC-backed communication substrate
// (spec.md §6.2) used for an actually-distributed run: one OS process per
// rank, dialing its peers over the network. Rather than generating code
// from a .proto file, messages are plain Go structs carried by a small
// custom grpc/encoding.Codec — a supported, documented extension point of
// google.golang.org/grpc for non-protobuf payloads.
package grpcsubstrate

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is advertised to grpc via CallContentSubtype so
// both client and server agree on how to marshal RPC messages.
const codecName = "dtk-json"

// jsonCodec marshals the plain request/response structs of this package as
// JSON instead of protobuf wire format.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
