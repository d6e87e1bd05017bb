package ptsl

import "fmt"

// frame is an already-encoded protobuf message.
type frame struct {
	data []byte
}

// rawCodec moves frames through gRPC without generated message types.
type rawCodec struct{}

func (rawCodec) Name() string { return "proto" }

func (rawCodec) Marshal(v any) ([]byte, error) {
	f, ok := v.(*frame)
	if !ok {
		return nil, fmt.Errorf("ptsl codec: unexpected message type %T", v)
	}
	return f.data, nil
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	f, ok := v.(*frame)
	if !ok {
		return fmt.Errorf("ptsl codec: unexpected message type %T", v)
	}
	f.data = append(f.data[:0], data...)
	return nil
}
