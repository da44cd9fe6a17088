package codec

import "errors"

var (
	// ErrEmptyPayload is returned when there are no bytes to decode
	ErrEmptyPayload = errors.New("empty payload")

	// ErrMissingField is returned when a value tree lacks a required struct field
	ErrMissingField = errors.New("missing field")

	// ErrNilValue is returned when nil is converted to a type that cannot hold it
	ErrNilValue = errors.New("nil value")
)

// EncodingError is returned when a value cannot be represented in the wire format
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return "encoding error: " + e.Err.Error()
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// DecodingError is returned when bytes are malformed or do not match the requested shape
type DecodingError struct {
	Err error
}

func (e *DecodingError) Error() string {
	return "decoding error: " + e.Err.Error()
}

func (e *DecodingError) Unwrap() error {
	return e.Err
}

// IsEncodingError reports whether err wraps an EncodingError
func IsEncodingError(err error) bool {
	var encErr *EncodingError
	return errors.As(err, &encErr)
}

// IsDecodingError reports whether err wraps a DecodingError
func IsDecodingError(err error) bool {
	var decErr *DecodingError
	return errors.As(err, &decErr)
}
