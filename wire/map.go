package wire

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/anirudhraja/wirecodec/schema"
)

// Map entries are embedded messages with the key at field 1 and the value at
// field 2.
const (
	mapKeyField   FieldNumber = 1
	mapValueField FieldNumber = 2
)

// MapDecoder handles map decoding operations
type MapDecoder struct {
	decoder *Decoder
}

// MapEncoder handles map encoding operations
type MapEncoder struct {
	encoder *Encoder
}

// NewMapDecoder creates a new map decoder
func NewMapDecoder(d *Decoder) *MapDecoder {
	return &MapDecoder{decoder: d}
}

// NewMapEncoder creates a new map encoder
func NewMapEncoder(e *Encoder) *MapEncoder {
	return &MapEncoder{encoder: e}
}

// DECODER METHODS

// DecodeMapEntry decodes one length-delimited key/value entry. Missing key or
// value fields decode as the empty string.
func (md *MapDecoder) DecodeMapEntry() (string, string, error) {
	bd := NewBytesDecoder(md.decoder)
	entryBytes, err := bd.DecodeRawBytes()
	if err != nil {
		return "", "", err
	}

	entry := md.decoder.child(entryBytes)
	var key, value string

	for entry.pos < len(entry.buf) {
		fieldNumber, wireType, err := entry.readTag()
		if err != nil {
			return "", "", err
		}

		if (fieldNumber == mapKeyField || fieldNumber == mapValueField) && wireType != WireBytes {
			if entry.config.StrictWireTypeOnDecode {
				return "", "", errors.Wrapf(ErrTypeMismatch, "map entry field %d: got %s, want bytes", fieldNumber, wireType)
			}
			if err := entry.skipField(wireType); err != nil {
				return "", "", err
			}
			continue
		}

		switch fieldNumber {
		case mapKeyField:
			key, err = NewBytesDecoder(entry).DecodeString()
			if err != nil {
				return "", "", errors.Wrap(err, "map key")
			}
		case mapValueField:
			value, err = NewBytesDecoder(entry).DecodeString()
			if err != nil {
				return "", "", errors.Wrap(err, "map value")
			}
		default:
			if err := entry.skipField(wireType); err != nil {
				return "", "", err
			}
		}
	}

	return key, value, nil
}

// ENCODER METHODS

// EncodeMapEntry encodes a map entry (key-value pair) as length-delimited
// bytes. Empty keys and values are elided inside the entry.
func (me *MapEncoder) EncodeMapEntry(key, value string) {
	entry := NewEncoder()
	ve := NewVarintEncoder(entry)
	be := NewBytesEncoder(entry)
	if key != "" {
		ve.EncodeTag(mapKeyField, WireBytes)
		be.EncodeString(key)
	}
	if value != "" {
		ve.EncodeTag(mapValueField, WireBytes)
		be.EncodeString(value)
	}

	NewBytesEncoder(me.encoder).EncodeBytes(entry.Bytes())
}

// EncodeMap writes one tagged entry per key in ascending key order.
func (me *MapEncoder) EncodeMap(mapData map[string]string, fieldNumber int32) {
	keys := lo.Keys(mapData)
	sort.Strings(keys)

	ve := NewVarintEncoder(me.encoder)
	for _, key := range keys {
		ve.EncodeTag(FieldNumber(fieldNumber), WireBytes)
		me.EncodeMapEntry(key, mapData[key])
	}
}

// encodeMapField normalizes the accepted map shapes to map[string]string.
func (me *MessageEncoder) encodeMapField(field *schema.Field, value interface{}) error {
	if !field.Type.IsStringMap() {
		return newFieldError("unsupported map type for field %s: only map<string,string> is supported", field.Name)
	}

	var mapData map[string]string
	switch v := value.(type) {
	case map[string]string:
		mapData = v
	case map[string]interface{}:
		mapData = make(map[string]string, len(v))
		for k, val := range v {
			s, ok := val.(string)
			if !ok {
				return newFieldError("map value for key %q must be string, got %T", k, val)
			}
			mapData[k] = s
		}
	case map[interface{}]interface{}:
		mapData = make(map[string]string, len(v))
		for k, val := range v {
			ks, ok := k.(string)
			if !ok {
				return newFieldError("map key must be string, got %T", k)
			}
			s, ok := val.(string)
			if !ok {
				return newFieldError("map value for key %q must be string, got %T", ks, val)
			}
			mapData[ks] = s
		}
	default:
		return newFieldError("unsupported map type: %T", value)
	}

	NewMapEncoder(me.encoder).EncodeMap(mapData, field.Number)
	return nil
}
