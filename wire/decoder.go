package wire

import (
	"github.com/cockroachdb/errors"

	"github.com/anirudhraja/wirecodec/registry"
	"github.com/anirudhraja/wirecodec/schema"
)

// Decoder handles low-level protobuf wire format decoding
type Decoder struct {
	buf      []byte
	pos      int
	registry *registry.Registry
	config   Config
	depth    int
}

// NewDecoder creates a new wire format decoder
func NewDecoder(data []byte) *Decoder {
	return &Decoder{
		buf: data,
	}
}

// NewDecoderWithRegistry creates a decoder with schema registry
func NewDecoderWithRegistry(data []byte, registry *registry.Registry) *Decoder {
	return &Decoder{
		buf:      data,
		registry: registry,
	}
}

// WithConfig sets the decode policy and returns the decoder.
func (d *Decoder) WithConfig(c Config) *Decoder {
	d.config = c
	return d
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// child returns a decoder over a nested payload sharing this decoder's
// registry and policy, one level deeper.
func (d *Decoder) child(data []byte) *Decoder {
	return &Decoder{
		buf:      data,
		registry: d.registry,
		config:   d.config,
		depth:    d.depth + 1,
	}
}

// DecodeMessage decodes protobuf bytes using schema - main entry point
func DecodeMessage(data []byte, msg *schema.Message, registry *registry.Registry) (map[string]interface{}, error) {
	decoder := NewDecoderWithRegistry(data, registry)
	return decoder.DecodeWithSchema(msg)
}

// DecodeMessageWithConfig is DecodeMessage with an explicit decode policy.
func DecodeMessageWithConfig(data []byte, msg *schema.Message, registry *registry.Registry, c Config) (map[string]interface{}, error) {
	decoder := NewDecoderWithRegistry(data, registry).WithConfig(c)
	return decoder.DecodeWithSchema(msg)
}

// DecodeWithSchema scans the buffer once, field by field, until it is
// exhausted. Absent fields stay absent from the result.
func (d *Decoder) DecodeWithSchema(msg *schema.Message) (map[string]interface{}, error) {
	if d.depth > d.config.maxDepth() {
		return nil, malformed("message %s nested deeper than %d", msg.Name, d.config.maxDepth())
	}

	result := make(map[string]interface{})
	var unknown []byte

	for d.pos < len(d.buf) {
		start := d.pos
		fieldNumber, wireType, err := d.readTag()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode message %s", msg.Name)
		}

		field := msg.FieldByNumber(int32(fieldNumber))
		if field == nil {
			if err := d.skipField(wireType); err != nil {
				return nil, errors.Wrapf(err, "failed to decode message %s", msg.Name)
			}
			if d.config.PreserveUnknownBytesOnDecode {
				unknown = append(unknown, d.buf[start:d.pos]...)
			}
			continue
		}

		if d.isPacked(field, wireType) {
			values, err := d.decodePacked(&field.Type)
			if err != nil {
				return nil, wrapWithField(err, field.Name)
			}
			appendRepeated(result, field.Name, values...)
			continue
		}

		if want := expectedWireType(&field.Type); wireType != want {
			if d.config.StrictWireTypeOnDecode {
				return nil, wrapWithField(
					errors.Wrapf(ErrTypeMismatch, "got %s, want %s", wireType, want), field.Name)
			}
			if err := d.skipField(wireType); err != nil {
				return nil, wrapWithField(err, field.Name)
			}
			if d.config.PreserveUnknownBytesOnDecode {
				unknown = append(unknown, d.buf[start:d.pos]...)
			}
			continue
		}

		if field.Type.Kind == schema.KindMap {
			key, value, err := NewMapDecoder(d).DecodeMapEntry()
			if err != nil {
				return nil, wrapWithField(err, field.Name)
			}
			m, _ := result[field.Name].(map[string]string)
			if m == nil {
				m = make(map[string]string)
				result[field.Name] = m
			}
			m[key] = value
			continue
		}

		value, err := d.DecodeTypedField(&field.Type)
		if err != nil {
			return nil, wrapWithField(err, field.Name)
		}

		if field.Label == schema.LabelRepeated {
			appendRepeated(result, field.Name, value)
		} else {
			result[field.Name] = value
		}
	}

	if len(unknown) > 0 {
		result[UnknownFieldsKey] = unknown
	}
	return result, nil
}

func appendRepeated(result map[string]interface{}, name string, values ...interface{}) {
	list, _ := result[name].([]interface{})
	result[name] = append(list, values...)
}

// readTag reads a field prefix and rejects field number 0 and group or
// reserved wire types.
func (d *Decoder) readTag() (FieldNumber, WireType, error) {
	tag, err := d.DecodeVarint()
	if err != nil {
		return 0, 0, err
	}
	if tag>>3 == 0 || tag>>3 > uint64(MaxFieldNumber) {
		return 0, 0, malformed("invalid field number %d", tag>>3)
	}
	fieldNumber, wireType := ParseTag(Tag(tag))
	switch wireType {
	case WireVarint, WireFixed64, WireBytes, WireFixed32:
		return fieldNumber, wireType, nil
	default:
		return 0, 0, malformed("unsupported wire type %d for field %d", wireType, fieldNumber)
	}
}

// DecodeTypedField routes to the appropriate decoder based on field type.
// Enums decode to their int32 number.
func (d *Decoder) DecodeTypedField(fieldType *schema.FieldType) (interface{}, error) {
	switch fieldType.Kind {
	case schema.KindPrimitive:
		return d.decodePrimitive(fieldType.PrimitiveType)
	case schema.KindEnum:
		return NewVarintDecoder(d).DecodeInt32()
	case schema.KindMessage:
		return NewMessageDecoder(d).DecodeMessage(fieldType.MessageType)
	default:
		return nil, newFieldError("unsupported field type: %s", fieldType.Kind)
	}
}

// decodePrimitive decodes a primitive whose wire type was already checked.
func (d *Decoder) decodePrimitive(primitiveType schema.PrimitiveType) (interface{}, error) {
	switch primitiveType {
	case schema.TypeString:
		return NewBytesDecoder(d).DecodeString()
	case schema.TypeBytes:
		return NewBytesDecoder(d).DecodeBytes()
	}

	rawValue, err := NewVarintDecoder(d).DecodeVarint()
	if err != nil {
		return nil, err
	}
	return convertVarint(primitiveType, rawValue), nil
}

func convertVarint(primitiveType schema.PrimitiveType, rawValue uint64) interface{} {
	switch primitiveType {
	case schema.TypeInt32:
		return int32(rawValue)
	case schema.TypeInt64:
		return int64(rawValue)
	case schema.TypeUint32:
		return uint32(rawValue)
	case schema.TypeBool:
		return rawValue != 0
	default:
		return rawValue
	}
}

// isPacked reports whether a repeated varint field arrived in packed form.
func (d *Decoder) isPacked(field *schema.Field, wireType WireType) bool {
	if field.Label != schema.LabelRepeated || wireType != WireBytes {
		return false
	}
	return expectedWireType(&field.Type) == WireVarint
}

// decodePacked reads a length-delimited run of varints.
func (d *Decoder) decodePacked(fieldType *schema.FieldType) ([]interface{}, error) {
	run, err := NewBytesDecoder(d).DecodeRawBytes()
	if err != nil {
		return nil, err
	}
	inner := d.child(run)
	var values []interface{}
	for inner.pos < len(inner.buf) {
		raw, err := inner.DecodeVarint()
		if err != nil {
			return nil, err
		}
		if fieldType.Kind == schema.KindEnum {
			values = append(values, int32(raw))
			continue
		}
		values = append(values, convertVarint(fieldType.PrimitiveType, raw))
	}
	return values, nil
}

// skipField skips a field based on wire type
func (d *Decoder) skipField(wireType WireType) error {
	switch wireType {
	case WireVarint:
		return NewVarintDecoder(d).SkipVarint()
	case WireFixed64:
		_, err := NewFixedDecoder(d).DecodeFixed64()
		return err
	case WireBytes:
		return NewBytesDecoder(d).SkipBytes()
	case WireFixed32:
		_, err := NewFixedDecoder(d).DecodeFixed32()
		return err
	default:
		return malformed("cannot skip wire type %d", wireType)
	}
}

// DecodeField reads one field without a schema. Varints come back as uint64,
// length-delimited payloads as []byte, fixed32 as uint32 and fixed64 as
// uint64. It returns nil at the end of the buffer.
func (d *Decoder) DecodeField() (*Value, error) {
	if d.pos >= len(d.buf) {
		return nil, nil
	}

	fieldNumber, wireType, err := d.readTag()
	if err != nil {
		return nil, err
	}

	var data interface{}
	switch wireType {
	case WireVarint:
		data, err = d.DecodeVarint()
	case WireBytes:
		data, err = d.DecodeBytes()
	case WireFixed32:
		data, err = NewFixedDecoder(d).DecodeFixed32()
	case WireFixed64:
		data, err = NewFixedDecoder(d).DecodeFixed64()
	}
	if err != nil {
		return nil, err
	}

	return &Value{
		FieldNumber: fieldNumber,
		WireType:    wireType,
		Data:        data,
	}, nil
}
