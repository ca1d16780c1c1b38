package wire

// ===== PROTOBUF WIRE FORMAT TYPES =====

// WireType represents protobuf wire format types
type WireType int32

const (
	WireVarint     WireType = 0 // int32, int64, uint32, uint64, bool, enum
	WireFixed64    WireType = 1 // skipped only
	WireBytes      WireType = 2 // string, bytes, embedded messages, map entries, packed varints
	WireStartGroup WireType = 3 // deprecated groups, rejected
	WireEndGroup   WireType = 4 // deprecated groups, rejected
	WireFixed32    WireType = 5 // skipped only
)

func (w WireType) String() string {
	switch w {
	case WireVarint:
		return "varint"
	case WireFixed64:
		return "fixed64"
	case WireBytes:
		return "bytes"
	case WireStartGroup:
		return "start_group"
	case WireEndGroup:
		return "end_group"
	case WireFixed32:
		return "fixed32"
	default:
		return "invalid"
	}
}

// FieldNumber represents a protobuf field number
type FieldNumber int32

// MaxFieldNumber is the largest legal field number.
const MaxFieldNumber FieldNumber = 1<<29 - 1

// Tag represents a protobuf field tag (field number + wire type)
type Tag uint64

// MakeTag creates a tag from field number and wire type
func MakeTag(fieldNumber FieldNumber, wireType WireType) Tag {
	return Tag(uint64(fieldNumber)<<3 | uint64(wireType))
}

// ParseTag parses a tag into field number and wire type
func ParseTag(tag Tag) (FieldNumber, WireType) {
	return FieldNumber(tag >> 3), WireType(tag & 0x7)
}

// Value is one field read without a schema.
type Value struct {
	FieldNumber FieldNumber
	WireType    WireType
	Data        interface{} // uint64 for varint and fixed64, uint32 for fixed32, []byte for bytes
}
