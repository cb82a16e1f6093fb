package grpcnet

import (
	"fmt"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/wire"
)

// codecName doubles as the gRPC content-subtype.
const codecName = "evacsim-wire"

type ack struct{}

// wireCodec lets gRPC carry wire.Envelope without generated message types.
type wireCodec struct{}

func (wireCodec) Name() string { return codecName }

func (wireCodec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case *wire.Envelope:
		return wire.EncodeEnvelope(*m), nil
	case *ack:
		return []byte{}, nil
	}
	return nil, fmt.Errorf("grpcnet: cannot marshal %T", v)
}

func (wireCodec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case *wire.Envelope:
		e, err := wire.DecodeEnvelope(data)
		if err != nil {
			return err
		}
		*m = e
		return nil
	case *ack:
		return nil
	}
	return fmt.Errorf("grpcnet: cannot unmarshal into %T", v)
}
