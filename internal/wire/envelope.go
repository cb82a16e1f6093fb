package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Envelope is what travels between processes when the transport crosses a
// process boundary. ID is opaque to the protocol and only used for tracing.
type Envelope struct {
	ID      string
	From    int
	To      int
	Tag     int
	Payload []byte
}

func EncodeEnvelope(e Envelope) []byte {
	b := appendString(nil, 1, e.ID)
	b = appendInt(b, 2, e.From)
	b = appendInt(b, 3, e.To)
	b = appendInt(b, 4, e.Tag)
	return appendBytes(b, 5, e.Payload)
}

func DecodeEnvelope(b []byte) (Envelope, error) {
	var e Envelope
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch num {
		case 1:
			id, n, err := consumeBytes(typ, v)
			e.ID = string(id)
			return n, err
		case 2:
			x, n, err := consumeInt(typ, v)
			e.From = x
			return n, err
		case 3:
			x, n, err := consumeInt(typ, v)
			e.To = x
			return n, err
		case 4:
			x, n, err := consumeInt(typ, v)
			e.Tag = x
			return n, err
		case 5:
			p, n, err := consumeBytes(typ, v)
			e.Payload = append([]byte(nil), p...)
			return n, err
		}
		return 0, nil
	})
	if err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return e, nil
}
