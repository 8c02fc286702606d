package rcapb

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype this codec answers to
// ("application/grpc+json" on the wire).
const CodecName = "json"

// jsonCodec implements google.golang.org/grpc/encoding.Codec over
// encoding/json instead of the usual protobuf-go codec. It operates
// on plain Go structs (see messages.go), never on protoreflect
// messages.
type jsonCodec struct{}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}
