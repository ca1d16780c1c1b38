package schema

// ProtoFile represents a single .proto file
type ProtoFile struct {
	Name     string     `json:"name"`     // file.proto
	Package  string     `json:"package"`  // package name
	Syntax   string     `json:"syntax"`   // proto2 or proto3
	Imports  []*Import  `json:"imports"`  // imported files
	Messages []*Message `json:"messages"` // message definitions
	Enums    []*Enum    `json:"enums"`    // enum definitions
	Services []*Service `json:"services"` // service definitions
}

// Import represents an import statement
type Import struct {
	Path   string `json:"path"`   // "google/protobuf/any.proto"
	Public bool   `json:"public"` // public import
	Weak   bool   `json:"weak"`   // weak import
}

// Message describes the fixed field layout of one message type.
type Message struct {
	Name        string     `json:"name"`         // "Location"
	FullName    string     `json:"full_name"`    // "google.cloud.location.Location"
	Fields      []*Field   `json:"fields"`       // message fields
	NestedTypes []*Message `json:"nested_types"` // nested messages
	NestedEnums []*Enum    `json:"nested_enums"` // nested enums
	OneofGroups []*Oneof   `json:"oneof_groups"` // oneof groups
}

// Field is an immutable field descriptor.
type Field struct {
	Name     string     `json:"name"`      // "location_id"
	Number   int32      `json:"number"`    // 4
	Label    FieldLabel `json:"label"`     // optional or repeated
	Type     FieldType  `json:"type"`      // field type information
	JsonName string     `json:"json_name"` // "locationId"
}

// Oneof represents a oneof group. Members are encoded like any optional field.
type Oneof struct {
	Name   string   `json:"name"`
	Fields []*Field `json:"fields"`
}

// FieldLabel represents field labels
type FieldLabel string

const (
	LabelOptional FieldLabel = "optional"
	LabelRepeated FieldLabel = "repeated"
)

// FieldType represents field type information
type FieldType struct {
	Kind          TypeKind      `json:"kind"`                     // primitive, message, enum, map
	PrimitiveType PrimitiveType `json:"primitive_type,omitempty"` // for primitive types
	MessageType   string        `json:"message_type,omitempty"`   // "google.protobuf.Any"
	EnumType      string        `json:"enum_type,omitempty"`      // for enum types
	MapKey        *FieldType    `json:"map_key,omitempty"`        // for map key type
	MapValue      *FieldType    `json:"map_value,omitempty"`      // for map value type
}

// String renders the type the way it is written in a .proto file.
func (t FieldType) String() string {
	switch t.Kind {
	case KindPrimitive:
		return string(t.PrimitiveType)
	case KindMessage:
		return t.MessageType
	case KindEnum:
		return t.EnumType
	case KindMap:
		if t.MapKey != nil && t.MapValue != nil {
			return "map<" + t.MapKey.String() + ", " + t.MapValue.String() + ">"
		}
	}
	return string(t.Kind)
}

// TypeKind represents the kind of field type
type TypeKind string

const (
	KindPrimitive TypeKind = "primitive"
	KindMessage   TypeKind = "message"
	KindEnum      TypeKind = "enum"
	KindMap       TypeKind = "map"
)

// PrimitiveType represents the scalar types the codec writes. All of them use
// either the varint or the length-delimited wire type.
type PrimitiveType string

const (
	TypeInt32  PrimitiveType = "int32"
	TypeInt64  PrimitiveType = "int64"
	TypeUint32 PrimitiveType = "uint32"
	TypeUint64 PrimitiveType = "uint64"
	TypeBool   PrimitiveType = "bool"
	TypeString PrimitiveType = "string"
	TypeBytes  PrimitiveType = "bytes"
)

var primitiveTypes = map[string]PrimitiveType{
	"int32":  TypeInt32,
	"int64":  TypeInt64,
	"uint32": TypeUint32,
	"uint64": TypeUint64,
	"bool":   TypeBool,
	"string": TypeString,
	"bytes":  TypeBytes,
}

// LookupPrimitive maps a .proto scalar keyword to a PrimitiveType.
func LookupPrimitive(name string) (PrimitiveType, bool) {
	p, ok := primitiveTypes[name]
	return p, ok
}

// IsVarint reports whether values of this primitive are varint encoded.
func (p PrimitiveType) IsVarint() bool {
	return p != TypeString && p != TypeBytes
}

// StringMap returns the map<string,string> field type.
func StringMap() FieldType {
	return FieldType{
		Kind:     KindMap,
		MapKey:   &FieldType{Kind: KindPrimitive, PrimitiveType: TypeString},
		MapValue: &FieldType{Kind: KindPrimitive, PrimitiveType: TypeString},
	}
}

// IsStringMap reports whether t is a map<string,string>.
func (t *FieldType) IsStringMap() bool {
	return t.Kind == KindMap &&
		t.MapKey != nil && t.MapKey.Kind == KindPrimitive && t.MapKey.PrimitiveType == TypeString &&
		t.MapValue != nil && t.MapValue.Kind == KindPrimitive && t.MapValue.PrimitiveType == TypeString
}

// FieldByNumber returns the field with the given tag, including oneof members.
func (m *Message) FieldByNumber(number int32) *Field {
	for _, f := range m.Fields {
		if f.Number == number {
			return f
		}
	}
	for _, o := range m.OneofGroups {
		for _, f := range o.Fields {
			if f.Number == number {
				return f
			}
		}
	}
	return nil
}

// FieldByName returns the field with the given name, including oneof members.
func (m *Message) FieldByName(name string) *Field {
	for _, f := range m.Fields {
		if f.Name == name {
			return f
		}
	}
	for _, o := range m.OneofGroups {
		for _, f := range o.Fields {
			if f.Name == name {
				return f
			}
		}
	}
	return nil
}

// AllFields returns regular and oneof fields together.
func (m *Message) AllFields() []*Field {
	out := make([]*Field, 0, len(m.Fields))
	out = append(out, m.Fields...)
	for _, o := range m.OneofGroups {
		out = append(out, o.Fields...)
	}
	return out
}

// Enum represents an enum definition
type Enum struct {
	Name   string       `json:"name"`   // "State"
	Values []*EnumValue `json:"values"` // enum values
}

// EnumValue represents an enum value
type EnumValue struct {
	Name   string `json:"name"`   // "ACTIVE"
	Number int32  `json:"number"` // 1
}

// Service represents a service definition
type Service struct {
	Name    string    `json:"name"`    // "Locations"
	Methods []*Method `json:"methods"` // service methods
}

// Method represents a service method
type Method struct {
	Name            string `json:"name"`             // "GetLocation"
	InputType       string `json:"input_type"`       // "GetLocationRequest"
	OutputType      string `json:"output_type"`      // "Location"
	ClientStreaming bool   `json:"client_streaming"` // stream input
	ServerStreaming bool   `json:"server_streaming"` // stream output
}

// JSONName converts a snake_case field name to lowerCamelCase.
func JSONName(s string) string {
	out := make([]byte, 0, len(s))
	upperNext := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			upperNext = true
			continue
		}
		if len(out) == 0 {
			if c >= 'A' && c <= 'Z' {
				c = c - 'A' + 'a'
			}
			upperNext = false
		} else if upperNext {
			if c >= 'a' && c <= 'z' {
				c = c - 'a' + 'A'
			}
			upperNext = false
		}
		out = append(out, c)
	}
	return string(out)
}
