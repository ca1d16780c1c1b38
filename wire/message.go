package wire

import (
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/anirudhraja/wirecodec/schema"
)

// MessageDecoder handles message decoding operations
type MessageDecoder struct {
	decoder *Decoder
}

// MessageEncoder handles message encoding operations
type MessageEncoder struct {
	encoder *Encoder
}

// NewMessageDecoder creates a new message decoder
func NewMessageDecoder(d *Decoder) *MessageDecoder {
	return &MessageDecoder{decoder: d}
}

// NewMessageEncoder creates a new message encoder
func NewMessageEncoder(e *Encoder) *MessageEncoder {
	return &MessageEncoder{encoder: e}
}

// DECODER METHODS

// DecodeMessage decodes a length-delimited nested message. Without a registry
// entry for messageType the raw bytes are returned.
func (md *MessageDecoder) DecodeMessage(messageType string) (interface{}, error) {
	bd := NewBytesDecoder(md.decoder)
	messageBytes, err := bd.DecodeBytes()
	if err != nil {
		return nil, err
	}

	if md.decoder.registry == nil {
		return messageBytes, nil
	}
	msg, err := md.decoder.registry.GetMessage(messageType)
	if err != nil {
		return messageBytes, nil
	}

	nested := md.decoder.child(messageBytes)
	return nested.DecodeWithSchema(msg)
}

// ENCODER METHODS

// EncodeMessage appends the fields of data to the encoder in ascending field
// number order. Keys may be proto field names or their JSON names; keys that
// match no field are ignored.
func (me *MessageEncoder) EncodeMessage(data map[string]interface{}, msg *schema.Message) error {
	type fieldEntry struct {
		value interface{}
		field *schema.Field
	}
	entries := make([]fieldEntry, 0, len(data))
	for fieldName, fieldValue := range data {
		field := findField(msg, fieldName)
		if field == nil {
			continue
		}
		entries = append(entries, fieldEntry{value: fieldValue, field: field})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].field.Number < entries[j].field.Number
	})

	for _, entry := range entries {
		if err := me.encodeField(entry.field, entry.value); err != nil {
			return wrapWithField(err, entry.field.Name)
		}
	}

	// Unknown bytes captured on decode go back out verbatim, after known fields.
	if raw, ok := data[UnknownFieldsKey].([]byte); ok {
		me.encoder.buf = append(me.encoder.buf, raw...)
	}
	return nil
}

// encodeField writes one field, skipping it when its value is the default.
func (me *MessageEncoder) encodeField(field *schema.Field, value interface{}) error {
	if value == nil {
		return nil
	}
	if field.Type.Kind == schema.KindMap {
		return me.encodeMapField(field, value)
	}
	if field.Label == schema.LabelRepeated {
		return me.encodeRepeatedField(field, value)
	}
	return me.encodeSingular(field, value)
}

func (me *MessageEncoder) encodeSingular(field *schema.Field, value interface{}) error {
	ve := NewVarintEncoder(me.encoder)
	number := FieldNumber(field.Number)

	switch field.Type.Kind {
	case schema.KindPrimitive:
		if field.Type.PrimitiveType.IsVarint() {
			v, err := me.varintValue(&field.Type, value)
			if err != nil {
				return err
			}
			if v == 0 {
				return nil
			}
			ve.EncodeTag(number, WireVarint)
			ve.EncodeVarint(v)
			return nil
		}
		return me.encodeLengthDelimitedScalar(number, field.Type.PrimitiveType, value, true)
	case schema.KindEnum:
		v, err := me.varintValue(&field.Type, value)
		if err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
		ve.EncodeTag(number, WireVarint)
		ve.EncodeVarint(v)
		return nil
	case schema.KindMessage:
		payload, err := me.messageBytes(field.Type.MessageType, value)
		if err != nil {
			return err
		}
		if payload == nil {
			return nil
		}
		ve.EncodeTag(number, WireBytes)
		NewBytesEncoder(me.encoder).EncodeBytes(payload)
		return nil
	default:
		return newFieldError("unsupported field type: %s", field.Type.Kind)
	}
}

// encodeRepeatedField writes one prefix/value pair per element, in order.
func (me *MessageEncoder) encodeRepeatedField(field *schema.Field, value interface{}) error {
	slice, err := toInterfaceSlice(value)
	if err != nil {
		return err
	}

	ve := NewVarintEncoder(me.encoder)
	number := FieldNumber(field.Number)
	for i, element := range slice {
		switch field.Type.Kind {
		case schema.KindPrimitive, schema.KindEnum:
			if field.Type.Kind == schema.KindEnum || field.Type.PrimitiveType.IsVarint() {
				v, err := me.varintValue(&field.Type, element)
				if err != nil {
					return errors.Wrapf(err, "element %d", i)
				}
				ve.EncodeTag(number, WireVarint)
				ve.EncodeVarint(v)
				continue
			}
			if err := me.encodeLengthDelimitedScalar(number, field.Type.PrimitiveType, element, false); err != nil {
				return errors.Wrapf(err, "element %d", i)
			}
		case schema.KindMessage:
			payload, err := me.messageBytes(field.Type.MessageType, element)
			if err != nil {
				return errors.Wrapf(err, "element %d", i)
			}
			ve.EncodeTag(number, WireBytes)
			NewBytesEncoder(me.encoder).EncodeBytes(payload)
		default:
			return newFieldError("unsupported repeated field type: %s", field.Type.Kind)
		}
	}
	return nil
}

// encodeLengthDelimitedScalar writes a string or bytes value. Singular values
// elide the empty string; repeated elements are always written.
func (me *MessageEncoder) encodeLengthDelimitedScalar(number FieldNumber, pt schema.PrimitiveType, value interface{}, elide bool) error {
	ve := NewVarintEncoder(me.encoder)
	be := NewBytesEncoder(me.encoder)

	if pt == schema.TypeString {
		s, ok := value.(string)
		if !ok {
			return newFieldError("expected string, got %T", value)
		}
		if elide && s == "" {
			return nil
		}
		ve.EncodeTag(number, WireBytes)
		be.EncodeString(s)
		return nil
	}

	b, err := coerceToBytes(value)
	if err != nil {
		return err
	}
	if elide && len(b) == 0 {
		return nil
	}
	ve.EncodeTag(number, WireBytes)
	be.EncodeBytes(b)
	return nil
}

// varintValue converts a scalar or enum value to its varint payload.
func (me *MessageEncoder) varintValue(ft *schema.FieldType, value interface{}) (uint64, error) {
	if ft.Kind == schema.KindEnum {
		return me.enumValue(ft.EnumType, value)
	}
	switch ft.PrimitiveType {
	case schema.TypeInt32:
		v, err := coerceToInt32(value)
		return uint64(v), err
	case schema.TypeInt64:
		v, err := coerceToInt64(value)
		return uint64(v), err
	case schema.TypeUint32:
		v, err := coerceToUint32(value)
		return uint64(v), err
	case schema.TypeUint64:
		return coerceToUint64(value)
	case schema.TypeBool:
		v, err := coerceToBool(value)
		if v {
			return 1, err
		}
		return 0, err
	default:
		return 0, newFieldError("unsupported primitive type: %s", ft.PrimitiveType)
	}
}

// enumValue accepts a number or, with a registry, a value name.
func (me *MessageEncoder) enumValue(enumType string, value interface{}) (uint64, error) {
	if name, ok := value.(string); ok && me.encoder.registry != nil {
		enum, err := me.encoder.registry.GetEnum(enumType)
		if err != nil {
			return 0, err
		}
		for _, ev := range enum.Values {
			if ev.Name == name {
				return uint64(ev.Number), nil
			}
		}
		return 0, newFieldError("unknown value %q for enum %s", name, enumType)
	}
	v, err := coerceToInt32(value)
	return uint64(v), err
}

// messageBytes returns the encoded body of a nested message, or nil when the
// message is absent. A present empty message yields a non-nil empty slice.
func (me *MessageEncoder) messageBytes(messageTypeName string, value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		if v == nil {
			return nil, nil
		}
		return v, nil
	case map[string]interface{}:
		if v == nil {
			return nil, nil
		}
		if me.encoder.registry == nil {
			return nil, newFieldError("registry is required to encode message fields")
		}
		messageSchema, err := me.encoder.registry.GetMessage(messageTypeName)
		if err != nil {
			return nil, err
		}
		nestedEncoder := NewEncoderWithRegistry(me.encoder.registry)
		if err := NewMessageEncoder(nestedEncoder).EncodeMessage(v, messageSchema); err != nil {
			return nil, err
		}
		return nestedEncoder.Bytes(), nil
	default:
		return nil, newFieldError("message value must be map[string]interface{} or []byte, got %T", value)
	}
}

// UTILITY METHODS

// expectedWireType returns the wire type a field is written with.
func expectedWireType(fieldType *schema.FieldType) WireType {
	switch fieldType.Kind {
	case schema.KindPrimitive:
		if fieldType.PrimitiveType.IsVarint() {
			return WireVarint
		}
		return WireBytes
	case schema.KindEnum:
		return WireVarint
	default:
		return WireBytes
	}
}

// findField finds a field by proto name or JSON name.
func findField(msg *schema.Message, name string) *schema.Field {
	if f := msg.FieldByName(name); f != nil {
		return f
	}
	for _, f := range msg.AllFields() {
		if f.JsonName == name {
			return f
		}
	}
	return nil
}

// DecodeMessage - convenience method for main decoder
func (d *Decoder) DecodeMessage(messageType string) (interface{}, error) {
	md := NewMessageDecoder(d)
	return md.DecodeMessage(messageType)
}

// EncodeMessage - convenience method for main encoder
func (e *Encoder) EncodeMessage(data map[string]interface{}, msg *schema.Message) error {
	me := NewMessageEncoder(e)
	return me.EncodeMessage(data, msg)
}
