package wirecodec

import (
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/anirudhraja/wirecodec/registry"
	"github.com/anirudhraja/wirecodec/schema"
	"github.com/anirudhraja/wirecodec/wire"
)

// TagName is the struct tag read by the binding: `wirecodec:"field_name,number"`.
const TagName = "wirecodec"

// MessageNamer is implemented by bound structs that declare their fully
// qualified message name. Structs without it are named after their Go type.
type MessageNamer interface {
	ProtoMessageName() string
}

// boundField links one struct field to its descriptor.
type boundField struct {
	index []int
	field *schema.Field
}

// binding is the descriptor table derived from one struct type.
type binding struct {
	msg    *schema.Message
	fields []boundField
}

var (
	bindings sync.Map // reflect.Type -> *binding
	bindMu   sync.Mutex

	// structRegistry resolves nested message names for bound structs.
	structRegistry = registry.NewRegistry(nil)
)

var (
	bytesType     = reflect.TypeOf([]byte(nil))
	stringMapType = reflect.TypeOf(map[string]string(nil))
)

// Marshal encodes v, a pointer to a tagged struct, with the default policy.
func Marshal(v interface{}) ([]byte, error) {
	b, rv, err := bindValue(v)
	if err != nil {
		return nil, err
	}
	data, err := structToMap(b, rv)
	if err != nil {
		return nil, err
	}
	return wire.EncodeMessage(data, b.msg, structRegistry)
}

// Unmarshal decodes data into v, a pointer to a tagged struct. Fields of v
// not present in data are reset to their defaults.
func Unmarshal(data []byte, v interface{}) error {
	return UnmarshalWithConfig(data, v, wire.Config{})
}

// UnmarshalWithConfig is Unmarshal with an explicit decode policy.
func UnmarshalWithConfig(data []byte, v interface{}, c wire.Config) error {
	b, rv, err := bindValue(v)
	if err != nil {
		return err
	}
	decoded, err := wire.DecodeMessageWithConfig(data, b.msg, structRegistry, c)
	if err != nil {
		return err
	}
	rv.Set(reflect.Zero(rv.Type()))
	return mapToStruct(b, decoded, rv)
}

// MessageOf returns the descriptor table bound to v's struct type.
func MessageOf(v interface{}) (*schema.Message, error) {
	b, _, err := bindValue(v)
	if err != nil {
		return nil, err
	}
	return b.msg, nil
}

func bindValue(v interface{}) (*binding, reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil, reflect.Value{}, errors.Newf("value must be a non-nil pointer to struct, got %T", v)
	}
	b, err := bindingFor(rv.Elem().Type())
	if err != nil {
		return nil, reflect.Value{}, err
	}
	return b, rv.Elem(), nil
}

func bindingFor(t reflect.Type) (*binding, error) {
	if b, ok := bindings.Load(t); ok {
		return b.(*binding), nil
	}
	bindMu.Lock()
	defer bindMu.Unlock()
	if err := buildBinding(t, make(map[reflect.Type]bool)); err != nil {
		return nil, err
	}
	b, _ := bindings.Load(t)
	return b.(*binding), nil
}

// buildBinding derives and registers the table for t and every message type
// it references. Types already in progress are skipped so self-referencing
// messages terminate. Callers hold bindMu.
func buildBinding(t reflect.Type, building map[reflect.Type]bool) error {
	if _, ok := bindings.Load(t); ok || building[t] {
		return nil
	}
	building[t] = true

	fullName := messageName(t)
	pkg, name := splitFullName(fullName)
	b := &binding{msg: &schema.Message{Name: name}}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, ok := sf.Tag.Lookup(TagName)
		if !ok || tag == "-" || !sf.IsExported() {
			continue
		}
		fieldName, number, err := parseTag(tag)
		if err != nil {
			return errors.Wrapf(err, "%s.%s", t.Name(), sf.Name)
		}
		field := &schema.Field{Name: fieldName, Number: number, Label: schema.LabelOptional}

		nested, err := fieldTypeOf(sf.Type, field)
		if err != nil {
			return errors.Wrapf(err, "%s.%s", t.Name(), sf.Name)
		}
		if nested != nil {
			if err := buildBinding(nested, building); err != nil {
				return err
			}
		}
		b.msg.Fields = append(b.msg.Fields, field)
		b.fields = append(b.fields, boundField{index: sf.Index, field: field})
	}

	if err := structRegistry.RegisterMessage(pkg, b.msg); err != nil {
		return errors.Wrapf(err, "bind %s", t)
	}
	bindings.Store(t, b)
	return nil
}

// fieldTypeOf fills in the kind and label for a Go field type. It returns the
// struct type of a nested message field, if any.
func fieldTypeOf(t reflect.Type, field *schema.Field) (reflect.Type, error) {
	switch {
	case t == bytesType:
		field.Type = schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeBytes}
		return nil, nil
	case t == stringMapType:
		field.Type = schema.StringMap()
		return nil, nil
	case t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct:
		field.Type = schema.FieldType{Kind: schema.KindMessage, MessageType: messageName(t.Elem())}
		return t.Elem(), nil
	case t.Kind() == reflect.Slice && t.Elem() != reflect.TypeOf(byte(0)):
		field.Label = schema.LabelRepeated
		if t.Elem().Kind() == reflect.Slice && t.Elem() != bytesType {
			return nil, errors.Newf("nested slices are not supported: %s", t)
		}
		return fieldTypeOf(t.Elem(), field)
	}

	switch t.Kind() {
	case reflect.Int32:
		if t.Name() != "int32" || t.PkgPath() != "" {
			field.Type = schema.FieldType{Kind: schema.KindEnum, EnumType: t.String()}
			return nil, nil
		}
		field.Type = schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeInt32}
	case reflect.Int64:
		field.Type = schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeInt64}
	case reflect.Uint32:
		field.Type = schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeUint32}
	case reflect.Uint64:
		field.Type = schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeUint64}
	case reflect.Bool:
		field.Type = schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeBool}
	case reflect.String:
		field.Type = schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString}
	default:
		return nil, errors.Newf("unsupported field type %s", t)
	}
	return nil, nil
}

func parseTag(tag string) (string, int32, error) {
	name, num, ok := strings.Cut(tag, ",")
	if !ok || name == "" {
		return "", 0, errors.Newf("malformed %s tag %q, want \"name,number\"", TagName, tag)
	}
	n, err := strconv.ParseInt(num, 10, 32)
	if err != nil {
		return "", 0, errors.Wrapf(err, "malformed field number in tag %q", tag)
	}
	return name, int32(n), nil
}

func messageName(t reflect.Type) string {
	if namer, ok := reflect.New(t).Interface().(MessageNamer); ok {
		return namer.ProtoMessageName()
	}
	return t.Name()
}

func splitFullName(fullName string) (string, string) {
	if i := strings.LastIndexByte(fullName, '.'); i >= 0 {
		return fullName[:i], fullName[i+1:]
	}
	return "", fullName
}

// structToMap projects a struct to the codec's field map. Nil pointers,
// slices and maps are left out; everything else is handed to the encoder,
// which elides defaults.
func structToMap(b *binding, rv reflect.Value) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(b.fields))
	for _, bf := range b.fields {
		fv := rv.FieldByIndex(bf.index)
		if bf.field.Label == schema.LabelRepeated {
			if fv.Len() == 0 {
				continue
			}
			list := make([]interface{}, 0, fv.Len())
			for i := 0; i < fv.Len(); i++ {
				elem, err := goValue(bf.field, fv.Index(i))
				if err != nil {
					return nil, errors.Wrapf(err, "%s[%d]", bf.field.Name, i)
				}
				list = append(list, elem)
			}
			out[bf.field.Name] = list
			continue
		}
		if (fv.Kind() == reflect.Ptr || fv.Kind() == reflect.Map) && fv.IsNil() {
			continue
		}
		value, err := goValue(bf.field, fv)
		if err != nil {
			return nil, errors.Wrap(err, bf.field.Name)
		}
		out[bf.field.Name] = value
	}
	return out, nil
}

// goValue converts one field or element to the plain Go type the encoder
// accepts.
func goValue(field *schema.Field, fv reflect.Value) (interface{}, error) {
	switch field.Type.Kind {
	case schema.KindMessage:
		if fv.IsNil() {
			return map[string]interface{}{}, nil
		}
		nb, err := bindingFor(fv.Type().Elem())
		if err != nil {
			return nil, err
		}
		return structToMap(nb, fv.Elem())
	case schema.KindMap:
		return fv.Interface(), nil
	case schema.KindEnum:
		return int32(fv.Int()), nil
	}
	switch field.Type.PrimitiveType {
	case schema.TypeInt32:
		return int32(fv.Int()), nil
	case schema.TypeInt64:
		return fv.Int(), nil
	case schema.TypeUint32:
		return uint32(fv.Uint()), nil
	case schema.TypeUint64:
		return fv.Uint(), nil
	case schema.TypeBool:
		return fv.Bool(), nil
	case schema.TypeString:
		return fv.String(), nil
	case schema.TypeBytes:
		return fv.Bytes(), nil
	}
	return nil, errors.Newf("unsupported field type %s", field.Type.PrimitiveType)
}

// mapToStruct fills rv from a decoded field map.
func mapToStruct(b *binding, data map[string]interface{}, rv reflect.Value) error {
	for _, bf := range b.fields {
		value, ok := data[bf.field.Name]
		if !ok {
			continue
		}
		fv := rv.FieldByIndex(bf.index)
		if bf.field.Label == schema.LabelRepeated {
			list, ok := value.([]interface{})
			if !ok {
				return errors.Newf("%s: expected list, got %T", bf.field.Name, value)
			}
			slice := reflect.MakeSlice(fv.Type(), len(list), len(list))
			for i, elem := range list {
				if err := setValue(bf.field, slice.Index(i), elem); err != nil {
					return errors.Wrapf(err, "%s[%d]", bf.field.Name, i)
				}
			}
			fv.Set(slice)
			continue
		}
		if err := setValue(bf.field, fv, value); err != nil {
			return errors.Wrap(err, bf.field.Name)
		}
	}
	return nil
}

func setValue(field *schema.Field, fv reflect.Value, value interface{}) error {
	switch field.Type.Kind {
	case schema.KindMessage:
		nested, ok := value.(map[string]interface{})
		if !ok {
			return errors.Newf("expected message, got %T", value)
		}
		nb, err := bindingFor(fv.Type().Elem())
		if err != nil {
			return err
		}
		ptr := reflect.New(fv.Type().Elem())
		if err := mapToStruct(nb, nested, ptr.Elem()); err != nil {
			return err
		}
		fv.Set(ptr)
		return nil
	case schema.KindMap:
		m, ok := value.(map[string]string)
		if !ok {
			return errors.Newf("expected map[string]string, got %T", value)
		}
		fv.Set(reflect.ValueOf(m).Convert(fv.Type()))
		return nil
	}

	src := reflect.ValueOf(value)
	if !src.Type().ConvertibleTo(fv.Type()) {
		return errors.Newf("cannot convert %T to %s", value, fv.Type())
	}
	fv.Set(src.Convert(fv.Type()))
	return nil
}
