package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	ErrCountMismatch = errors.New("wire: item count does not match header")
	ErrWrongType     = errors.New("wire: unexpected field wire type")
)

// fieldFunc handles one field. It returns the number of bytes of v it
// consumed, or 0 to let the walker skip an unknown field.
type fieldFunc func(num protowire.Number, typ protowire.Type, v []byte) (int, error)

func eachField(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
	}
	return nil
}

func appendInt(b []byte, num protowire.Number, v int) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(v)))
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func consumeInt(typ protowire.Type, b []byte) (int, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, ErrWrongType
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return int(int64(v)), n, nil
}

func consumeBytes(typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, ErrWrongType
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

// appendPackedInts writes ints as a single packed repeated field.
func appendPackedInts(b []byte, num protowire.Number, vs []int) []byte {
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, uint64(int64(v)))
	}
	return appendBytes(b, num, packed)
}

func consumePackedInts(typ protowire.Type, b []byte) ([]int, int, error) {
	packed, n, err := consumeBytes(typ, b)
	if err != nil {
		return nil, 0, err
	}
	out := make([]int, 0, len(packed))
	for len(packed) > 0 {
		v, m := protowire.ConsumeVarint(packed)
		if m < 0 {
			return nil, 0, protowire.ParseError(m)
		}
		out = append(out, int(int64(v)))
		packed = packed[m:]
	}
	return out, n, nil
}
