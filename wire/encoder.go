package wire

import (
	"github.com/anirudhraja/wirecodec/registry"
	"github.com/anirudhraja/wirecodec/schema"
)

// Encoder handles low-level protobuf wire format encoding
type Encoder struct {
	buf      []byte
	registry *registry.Registry
}

// NewEncoder creates a new wire format encoder
func NewEncoder() *Encoder {
	return &Encoder{
		buf: make([]byte, 0, 64),
	}
}

// NewEncoderWithRegistry creates an encoder with schema registry
func NewEncoderWithRegistry(registry *registry.Registry) *Encoder {
	return &Encoder{
		buf:      make([]byte, 0, 64),
		registry: registry,
	}
}

// Bytes returns the encoded bytes
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Reset clears the encoder buffer
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// EncodeMessage encodes a message using schema - main entry point.
// Fields at their default value are not written; an all-default message
// encodes to an empty buffer.
func EncodeMessage(data map[string]interface{}, msg *schema.Message, registry *registry.Registry) ([]byte, error) {
	encoder := NewEncoderWithRegistry(registry)
	me := NewMessageEncoder(encoder)
	if err := me.EncodeMessage(data, msg); err != nil {
		return nil, err
	}
	return encoder.Bytes(), nil
}
