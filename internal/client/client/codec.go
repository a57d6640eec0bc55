package client

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Every record service message travels as a google.protobuf.BytesValue whose
// value is the JSON form of the request or response, so records reach the
// platform exactly as it stores them while the wire stays plain protobuf.

func pack(v any) (*wrapperspb.BytesValue, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return wrapperspb.Bytes(b), nil
}

func unpack(m *wrapperspb.BytesValue, v any) error {
	if len(m.GetValue()) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.GetValue(), v); err != nil {
		return status.Errorf(codes.Internal, "decode message: %v", err)
	}
	return nil
}
