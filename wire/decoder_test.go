package wire

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/anirudhraja/wirecodec/registry"
	"github.com/anirudhraja/wirecodec/schema"
)

func primitive(t schema.PrimitiveType) schema.FieldType {
	return schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: t}
}

func messageType(name string) schema.FieldType {
	return schema.FieldType{Kind: schema.KindMessage, MessageType: name}
}

// testRegistry holds Date, Location, a recursive Node and a message
// covering every scalar kind.
func testRegistry(t testing.TB) *registry.Registry {
	t.Helper()
	reg := registry.NewRegistry(nil)
	require.NoError(t, reg.RegisterMessage("google.type", &schema.Message{
		Name: "Date",
		Fields: []*schema.Field{
			{Name: "year", Number: 1, Type: primitive(schema.TypeInt32)},
			{Name: "month", Number: 2, Type: primitive(schema.TypeInt32)},
			{Name: "day", Number: 3, Type: primitive(schema.TypeInt32)},
		},
	}))
	require.NoError(t, reg.RegisterMessage("google.cloud.location", &schema.Message{
		Name: "Location",
		Fields: []*schema.Field{
			{Name: "name", Number: 1, Type: primitive(schema.TypeString)},
			{Name: "labels", Number: 2, Type: schema.StringMap()},
			{Name: "metadata", Number: 3, Type: messageType("google.protobuf.Any")},
			{Name: "location_id", Number: 4, Type: primitive(schema.TypeString)},
			{Name: "display_name", Number: 5, Type: primitive(schema.TypeString)},
		},
	}))
	require.NoError(t, reg.RegisterMessage("test", &schema.Message{
		Name: "Node",
		Fields: []*schema.Field{
			{Name: "child", Number: 1, Type: messageType("test.Node")},
			{Name: "value", Number: 2, Type: primitive(schema.TypeInt32)},
		},
	}))
	reg.RegisterEnum("test", &schema.Enum{Name: "State", Values: []*schema.EnumValue{
		{Name: "STATE_UNSPECIFIED", Number: 0},
		{Name: "ACTIVE", Number: 1},
		{Name: "DELETED", Number: 2},
	}})
	require.NoError(t, reg.RegisterMessage("test", &schema.Message{
		Name: "Scalars",
		Fields: []*schema.Field{
			{Name: "test_int32", Number: 1, Type: primitive(schema.TypeInt32)},
			{Name: "test_int64", Number: 2, Type: primitive(schema.TypeInt64)},
			{Name: "test_uint32", Number: 3, Type: primitive(schema.TypeUint32)},
			{Name: "test_uint64", Number: 4, Type: primitive(schema.TypeUint64)},
			{Name: "test_bool", Number: 5, Type: primitive(schema.TypeBool)},
			{Name: "test_string", Number: 6, Type: primitive(schema.TypeString)},
			{Name: "test_bytes", Number: 7, Type: primitive(schema.TypeBytes)},
			{Name: "state", Number: 8, Type: schema.FieldType{Kind: schema.KindEnum, EnumType: "test.State"}},
			{Name: "ids", Number: 9, Label: schema.LabelRepeated, Type: primitive(schema.TypeInt32)},
			{Name: "tags", Number: 10, Label: schema.LabelRepeated, Type: primitive(schema.TypeString)},
			{Name: "dates", Number: 11, Label: schema.LabelRepeated, Type: messageType("google.type.Date")},
		},
	}))
	return reg
}

func mustMessage(t testing.TB, reg *registry.Registry, name string) *schema.Message {
	t.Helper()
	msg, err := reg.GetMessage(name)
	require.NoError(t, err)
	return msg
}

func TestEncode_Date(t *testing.T) {
	reg := testRegistry(t)
	date := mustMessage(t, reg, "google.type.Date")

	tests := []struct {
		name string
		data map[string]interface{}
		want []byte
	}{
		{
			name: "new_year_2024",
			data: map[string]interface{}{"year": int32(2024), "month": int32(1), "day": int32(1)},
			want: []byte{0x08, 0xe8, 0x0f, 0x10, 0x01, 0x18, 0x01},
		},
		{
			name: "all_default",
			data: map[string]interface{}{"year": int32(0), "month": int32(0), "day": int32(0)},
			want: []byte{},
		},
		{
			name: "year_only",
			data: map[string]interface{}{"year": 1999},
			want: []byte{0x08, 0xcf, 0x0f},
		},
		{
			name: "empty_map",
			data: map[string]interface{}{},
			want: []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeMessage(tt.data, date, reg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Date(t *testing.T) {
	reg := testRegistry(t)
	date := mustMessage(t, reg, "google.type.Date")

	got, err := DecodeMessage([]byte{0x08, 0xe8, 0x0f, 0x10, 0x01, 0x18, 0x01}, date, reg)
	require.NoError(t, err)
	want := map[string]interface{}{"year": int32(2024), "month": int32(1), "day": int32(1)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decoded date mismatch (-want +got):\n%s", diff)
	}

	empty, err := DecodeMessage(nil, date, reg)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEncode_LocationMatchesProtowire(t *testing.T) {
	reg := testRegistry(t)
	location := mustMessage(t, reg, "google.cloud.location.Location")

	data := map[string]interface{}{
		"name":         "projects/p/locations/us-east1",
		"location_id":  "us-east1",
		"display_name": "Virginia",
		"labels": map[string]string{
			"cloud.googleapis.com/region": "us-east1",
			"cloud.googleapis.com/city":   "Ashburn",
		},
	}
	got, err := EncodeMessage(data, location, reg)
	require.NoError(t, err)

	entry := func(k, v string) []byte {
		var b []byte
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, k)
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, v)
		return b
	}
	var want []byte
	want = protowire.AppendTag(want, 1, protowire.BytesType)
	want = protowire.AppendString(want, "projects/p/locations/us-east1")
	want = protowire.AppendTag(want, 2, protowire.BytesType)
	want = protowire.AppendBytes(want, entry("cloud.googleapis.com/city", "Ashburn"))
	want = protowire.AppendTag(want, 2, protowire.BytesType)
	want = protowire.AppendBytes(want, entry("cloud.googleapis.com/region", "us-east1"))
	want = protowire.AppendTag(want, 4, protowire.BytesType)
	want = protowire.AppendString(want, "us-east1")
	want = protowire.AppendTag(want, 5, protowire.BytesType)
	want = protowire.AppendString(want, "Virginia")
	assert.Equal(t, want, got)

	decoded, err := DecodeMessage(got, location, reg)
	require.NoError(t, err)
	assert.Equal(t, data["labels"], decoded["labels"])
	assert.Equal(t, "us-east1", decoded["location_id"])
	_, hasMetadata := decoded["metadata"]
	assert.False(t, hasMetadata)
}

func TestEncode_PresentEmptyMessage(t *testing.T) {
	reg := testRegistry(t)
	location := mustMessage(t, reg, "google.cloud.location.Location")

	got, err := EncodeMessage(map[string]interface{}{"metadata": map[string]interface{}{}}, location, reg)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1a, 0x00}, got)

	decoded, err := DecodeMessage(got, location, reg)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{}, decoded["metadata"])

	got, err = EncodeMessage(map[string]interface{}{"metadata": nil}, location, reg)
	require.NoError(t, err)
	assert.Empty(t, got, "nil message is absent")
}

func TestRoundTrip_Scalars(t *testing.T) {
	reg := testRegistry(t)
	scalars := mustMessage(t, reg, "test.Scalars")

	data := map[string]interface{}{
		"test_int32":  int32(-1),
		"test_int64":  int64(math.MinInt64),
		"test_uint32": uint32(math.MaxUint32),
		"test_uint64": uint64(math.MaxUint64),
		"test_bool":   true,
		"test_string": "héllo",
		"test_bytes":  []byte{0x00, 0xff},
		"state":       int32(2),
		"ids":         []int32{1, -2, 300},
		"tags":        []string{"a", "", "c"},
		"dates": []interface{}{
			map[string]interface{}{"year": int32(2020)},
			map[string]interface{}{},
		},
	}
	encoded, err := EncodeMessage(data, scalars, reg)
	require.NoError(t, err)

	decoded, err := DecodeMessage(encoded, scalars, reg)
	require.NoError(t, err)

	want := map[string]interface{}{
		"test_int32":  int32(-1),
		"test_int64":  int64(math.MinInt64),
		"test_uint32": uint32(math.MaxUint32),
		"test_uint64": uint64(math.MaxUint64),
		"test_bool":   true,
		"test_string": "héllo",
		"test_bytes":  []byte{0x00, 0xff},
		"state":       int32(2),
		"ids":         []interface{}{int32(1), int32(-2), int32(300)},
		"tags":        []interface{}{"a", "", "c"},
		"dates": []interface{}{
			map[string]interface{}{"year": int32(2020)},
			map[string]interface{}{},
		},
	}
	if diff := cmp.Diff(want, decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncode_NegativeInt32IsTenBytes(t *testing.T) {
	reg := testRegistry(t)
	date := mustMessage(t, reg, "google.type.Date")

	got, err := EncodeMessage(map[string]interface{}{"year": int32(-1)}, date, reg)
	require.NoError(t, err)
	want := protowire.AppendVarint(protowire.AppendTag(nil, 1, protowire.VarintType), uint64(math.MaxUint64))
	assert.Equal(t, want, got)
	assert.Len(t, got, 11)
}

func TestEncode_InputCoercion(t *testing.T) {
	reg := testRegistry(t)
	scalars := mustMessage(t, reg, "test.Scalars")

	var fromJSON map[string]interface{}
	dec := json.NewDecoder(strings.NewReader(`{"testInt64": 42, "testBool": "true", "testBytes": "AP8=", "state": "ACTIVE"}`))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&fromJSON))

	encoded, err := EncodeMessage(fromJSON, scalars, reg)
	require.NoError(t, err)
	decoded, err := DecodeMessage(encoded, scalars, reg)
	require.NoError(t, err)

	assert.Equal(t, int64(42), decoded["test_int64"])
	assert.Equal(t, true, decoded["test_bool"])
	assert.Equal(t, []byte{0x00, 0xff}, decoded["test_bytes"])
	assert.Equal(t, int32(1), decoded["state"])
}

func TestEncode_Errors(t *testing.T) {
	reg := testRegistry(t)
	location := mustMessage(t, reg, "google.cloud.location.Location")
	scalars := mustMessage(t, reg, "test.Scalars")

	tests := []struct {
		name     string
		msg      *schema.Message
		data     map[string]interface{}
		wantPath []string
	}{
		{"string_as_int", location, map[string]interface{}{"name": 7}, []string{"name"}},
		{"nested_bad_type", location, map[string]interface{}{"metadata": map[string]interface{}{"type_url": 5}}, []string{"metadata", "type_url"}},
		{"map_bad_value", location, map[string]interface{}{"labels": map[string]interface{}{"k": 1}}, []string{"labels"}},
		{"int32_overflow", scalars, map[string]interface{}{"test_int32": int64(math.MaxInt32) + 1}, []string{"test_int32"}},
		{"negative_unsigned", scalars, map[string]interface{}{"test_uint32": -1}, []string{"test_uint32"}},
		{"fractional_int", scalars, map[string]interface{}{"test_int64": 1.5}, []string{"test_int64"}},
		{"unknown_enum_name", scalars, map[string]interface{}{"state": "GONE"}, []string{"state"}},
		{"repeated_not_slice", scalars, map[string]interface{}{"tags": "a"}, []string{"tags"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeMessage(tt.data, tt.msg, reg)
			require.Error(t, err)
			var fe *FieldError
			require.True(t, errors.As(err, &fe), "got %v", err)
			assert.Equal(t, tt.wantPath, fe.FieldPath)
		})
	}
}

func TestDecode_UnknownFields(t *testing.T) {
	reg := testRegistry(t)
	location := mustMessage(t, reg, "google.cloud.location.Location")

	var unknown []byte
	unknown = protowire.AppendTag(unknown, 99, protowire.VarintType)
	unknown = protowire.AppendVarint(unknown, 1<<40)
	unknown = protowire.AppendTag(unknown, 98, protowire.Fixed32Type)
	unknown = protowire.AppendFixed32(unknown, 7)
	unknown = protowire.AppendTag(unknown, 97, protowire.Fixed64Type)
	unknown = protowire.AppendFixed64(unknown, 8)
	unknown = protowire.AppendTag(unknown, 96, protowire.BytesType)
	unknown = protowire.AppendString(unknown, "skip me")

	var data []byte
	data = append(data, unknown...)
	data = protowire.AppendTag(data, 1, protowire.BytesType)
	data = protowire.AppendString(data, "loc")

	decoded, err := DecodeMessage(data, location, reg)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"name": "loc"}, decoded)

	preserved, err := DecodeMessageWithConfig(data, location, reg, Config{PreserveUnknownBytesOnDecode: true})
	require.NoError(t, err)
	assert.Equal(t, unknown, preserved[UnknownFieldsKey])

	reencoded, err := EncodeMessage(preserved, location, reg)
	require.NoError(t, err)
	again, err := DecodeMessageWithConfig(reencoded, location, reg, Config{PreserveUnknownBytesOnDecode: true})
	require.NoError(t, err)
	if diff := cmp.Diff(preserved, again); diff != "" {
		t.Errorf("unknown bytes not carried through (-first +second):\n%s", diff)
	}
}

func TestDecode_Malformed(t *testing.T) {
	reg := testRegistry(t)
	location := mustMessage(t, reg, "google.cloud.location.Location")

	overlong := append([]byte{0x08}, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01)
	tenthTooBig := append([]byte{0x08}, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x02)

	tests := []struct {
		name string
		data []byte
	}{
		{"truncated_tag", []byte{0x80}},
		{"truncated_varint_value", []byte{0x48, 0x80}},
		{"overlong_varint", overlong},
		{"tenth_byte_too_big", tenthTooBig},
		{"length_exceeds_buffer", []byte{0x0a, 0x05, 'a'}},
		{"huge_length", []byte{0x0a, 0xff, 0xff, 0xff, 0xff, 0x0f}},
		{"field_number_zero", []byte{0x00, 0x01}},
		{"start_group", []byte{0x0b}},
		{"end_group", []byte{0x0c}},
		{"reserved_wire_type_6", []byte{0x0e}},
		{"reserved_wire_type_7", []byte{0x0f}},
		{"truncated_fixed32", []byte{0x4d, 0x01, 0x02}},
		{"truncated_fixed64", []byte{0x49, 0x01, 0x02, 0x03}},
		{"nested_truncated", []byte{0x1a, 0x02, 0x0a, 0x05}},
		{"map_entry_truncated", []byte{0x12, 0x02, 0x0a, 0x09}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeMessage(tt.data, location, reg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedInput), "got %v", err)
		})
	}
}

func TestDecode_WireTypeMismatch(t *testing.T) {
	reg := testRegistry(t)
	location := mustMessage(t, reg, "google.cloud.location.Location")

	var data []byte
	data = protowire.AppendTag(data, 1, protowire.VarintType)
	data = protowire.AppendVarint(data, 5)
	data = protowire.AppendTag(data, 4, protowire.BytesType)
	data = protowire.AppendString(data, "us-east1")

	decoded, err := DecodeMessage(data, location, reg)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"location_id": "us-east1"}, decoded)

	_, err = DecodeMessageWithConfig(data, location, reg, Config{StrictWireTypeOnDecode: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTypeMismatch))
	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, []string{"name"}, fe.FieldPath)
}

func TestDecode_LastWriteWinsAndAppend(t *testing.T) {
	reg := testRegistry(t)
	scalars := mustMessage(t, reg, "test.Scalars")

	var data []byte
	data = protowire.AppendTag(data, 6, protowire.BytesType)
	data = protowire.AppendString(data, "first")
	data = protowire.AppendTag(data, 10, protowire.BytesType)
	data = protowire.AppendString(data, "x")
	data = protowire.AppendTag(data, 6, protowire.BytesType)
	data = protowire.AppendString(data, "second")
	data = protowire.AppendTag(data, 10, protowire.BytesType)
	data = protowire.AppendString(data, "y")
	data = protowire.AppendTag(data, 9, protowire.BytesType)
	data = protowire.AppendBytes(data, []byte{0x01, 0x02, 0x03})
	data = protowire.AppendTag(data, 9, protowire.VarintType)
	data = protowire.AppendVarint(data, 4)

	decoded, err := DecodeMessage(data, scalars, reg)
	require.NoError(t, err)
	assert.Equal(t, "second", decoded["test_string"])
	assert.Equal(t, []interface{}{"x", "y"}, decoded["tags"])
	assert.Equal(t, []interface{}{int32(1), int32(2), int32(3), int32(4)}, decoded["ids"])
}

func TestDecode_NestedMessageReplaced(t *testing.T) {
	reg := testRegistry(t)
	node := mustMessage(t, reg, "test.Node")

	child := func(value uint64) []byte {
		var inner []byte
		inner = protowire.AppendTag(inner, 2, protowire.VarintType)
		inner = protowire.AppendVarint(inner, value)
		return protowire.AppendBytes(protowire.AppendTag(nil, 1, protowire.BytesType), inner)
	}
	data := append(child(1), child(2)...)

	decoded, err := DecodeMessage(data, node, reg)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"value": int32(2)}, decoded["child"])
}

func TestDecode_MapEntries(t *testing.T) {
	reg := testRegistry(t)
	location := mustMessage(t, reg, "google.cloud.location.Location")

	var onlyKey, withExtra, dup []byte
	onlyKey = protowire.AppendTag(onlyKey, 1, protowire.BytesType)
	onlyKey = protowire.AppendString(onlyKey, "k")

	withExtra = protowire.AppendTag(withExtra, 3, protowire.VarintType)
	withExtra = protowire.AppendVarint(withExtra, 9)
	withExtra = protowire.AppendTag(withExtra, 2, protowire.BytesType)
	withExtra = protowire.AppendString(withExtra, "v")
	withExtra = protowire.AppendTag(withExtra, 1, protowire.BytesType)
	withExtra = protowire.AppendString(withExtra, "j")

	dup = protowire.AppendTag(dup, 1, protowire.BytesType)
	dup = protowire.AppendString(dup, "j")
	dup = protowire.AppendTag(dup, 2, protowire.BytesType)
	dup = protowire.AppendString(dup, "last")

	var data []byte
	for _, entry := range [][]byte{onlyKey, withExtra, dup, {}} {
		data = protowire.AppendTag(data, 2, protowire.BytesType)
		data = protowire.AppendBytes(data, entry)
	}

	decoded, err := DecodeMessage(data, location, reg)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"k": "", "j": "last", "": ""}, decoded["labels"])
}

func TestEncode_MapEntryElidesEmpty(t *testing.T) {
	reg := testRegistry(t)
	location := mustMessage(t, reg, "google.cloud.location.Location")

	got, err := EncodeMessage(map[string]interface{}{"labels": map[string]string{"k": ""}}, location, reg)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x12, 0x03, 0x0a, 0x01, 'k'}, got)
}

func TestDecode_MaxDepth(t *testing.T) {
	reg := testRegistry(t)
	node := mustMessage(t, reg, "test.Node")

	nest := func(levels int) []byte {
		b := []byte{0x10, 0x01}
		for i := 0; i < levels; i++ {
			b = protowire.AppendBytes(protowire.AppendTag(nil, 1, protowire.BytesType), b)
		}
		return b
	}

	_, err := DecodeMessageWithConfig(nest(2), node, reg, Config{MaxDepth: 3})
	require.NoError(t, err)

	_, err = DecodeMessageWithConfig(nest(5), node, reg, Config{MaxDepth: 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedInput))

	_, err = DecodeMessage(nest(50), node, reg)
	require.NoError(t, err)
}

func TestDecode_NestedWithoutRegistry(t *testing.T) {
	reg := testRegistry(t)
	location := mustMessage(t, reg, "google.cloud.location.Location")

	data := []byte{0x1a, 0x02, 0x0a, 0x00}
	decoded, err := DecodeMessage(data, location, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0x00}, decoded["metadata"])
}

func TestDecoder_DecodeField(t *testing.T) {
	var data []byte
	data = protowire.AppendTag(data, 1, protowire.VarintType)
	data = protowire.AppendVarint(data, 150)
	data = protowire.AppendTag(data, 2, protowire.BytesType)
	data = protowire.AppendString(data, "testing")
	data = protowire.AppendTag(data, 3, protowire.Fixed32Type)
	data = protowire.AppendFixed32(data, 0xdeadbeef)
	data = protowire.AppendTag(data, 4, protowire.Fixed64Type)
	data = protowire.AppendFixed64(data, 1<<50)

	d := NewDecoder(data)
	var got []Value
	for {
		v, err := d.DecodeField()
		require.NoError(t, err)
		if v == nil {
			break
		}
		got = append(got, *v)
	}

	want := []Value{
		{FieldNumber: 1, WireType: WireVarint, Data: uint64(150)},
		{FieldNumber: 2, WireType: WireBytes, Data: []byte("testing")},
		{FieldNumber: 3, WireType: WireFixed32, Data: uint32(0xdeadbeef)},
		{FieldNumber: 4, WireType: WireFixed64, Data: uint64(1 << 50)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("scan mismatch (-want +got):\n%s", diff)
	}

	_, err := NewDecoder([]byte{0x0b}).DecodeField()
	assert.True(t, errors.Is(err, ErrMalformedInput))
}
