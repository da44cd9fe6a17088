// Package codec implements the binary wire format shared by every queue.
//
// Payloads are MessagePack documents. A payload can be decoded straight into
// a concrete type when the caller knows it, or into a self-describing Value
// tree when it does not; Convert later maps such a tree onto a concrete type.
package codec

import (
	"bytes"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

// Name is the identifier of the wire format
const Name = "msgpack"

// Value is a decoded, statically untyped value tree.
//
// It holds one of: nil, bool, int64, uint64, float32, float64, string,
// []byte, time.Time, []any or map[string]any (with Value elements).
type Value = any

// Encode serializes v into a payload
func Encode(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}
	return data, nil
}

// Decode deserializes data into a value of type T
func Decode[T any](data []byte) (T, error) {
	var out T
	if err := DecodeInto(data, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// DecodeInto deserializes data into the value pointed to by dst
func DecodeInto(data []byte, dst any) error {
	if len(data) == 0 {
		return &DecodingError{Err: ErrEmptyPayload}
	}

	if err := newDecoder(data).Decode(dst); err != nil {
		return &DecodingError{Err: err}
	}
	return nil
}

// DecodeValue deserializes data into a generic Value tree
func DecodeValue(data []byte) (Value, error) {
	if len(data) == 0 {
		return nil, &DecodingError{Err: ErrEmptyPayload}
	}

	v, err := newDecoder(data).DecodeInterfaceLoose()
	if err != nil {
		return nil, &DecodingError{Err: err}
	}
	return v, nil
}

// Convert maps a Value tree onto the concrete type T.
// A tree whose shape does not fit T yields a DecodingError: nil for a type
// that cannot be nil, a missing required struct field, or a mismatched type.
func Convert[T any](v Value) (T, error) {
	var out T

	if typed, ok := v.(T); ok {
		return typed, nil
	}

	if err := checkShape(reflect.TypeOf((*T)(nil)).Elem(), v, ""); err != nil {
		return out, &DecodingError{Err: err}
	}

	data, err := msgpack.Marshal(v)
	if err != nil {
		return out, &DecodingError{Err: err}
	}

	if err := newDecoder(data).Decode(&out); err != nil {
		var zero T
		return zero, &DecodingError{Err: err}
	}
	return out, nil
}

// newDecoder returns a decoder that produces int64/uint64/float64 for
// numbers held in interface values
func newDecoder(data []byte) *msgpack.Decoder {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	return dec
}
