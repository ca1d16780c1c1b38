package wire

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// Helpers to coerce caller inputs to integers. JSON decoders hand us
// json.Number or float64; exponent forms are accepted when integral.
func coerceToInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int32:
		return int64(t), nil
	case int:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case json.Number:
		if iv, err := t.Int64(); err == nil {
			return iv, nil
		}
		return parseIntegralFloat(t.String())
	case float64:
		if t != math.Trunc(t) {
			return 0, errors.New("non-integer numeric for integer field")
		}
		return int64(t), nil
	case string:
		if strings.ContainsAny(t, ".eE") {
			return parseIntegralFloat(t)
		}
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, errors.Newf("expected integer-like, got %T", v)
	}
}

func parseIntegralFloat(s string) (int64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, errors.New("non-integer numeric for integer field")
	}
	return int64(f), nil
}

func coerceToInt32(v interface{}) (int32, error) {
	if i, ok := v.(int32); ok {
		return i, nil
	}
	i, err := coerceToInt64(v)
	if err != nil {
		return 0, err
	}
	if i < math.MinInt32 || i > math.MaxInt32 {
		return 0, errors.Newf("value %d overflows int32", i)
	}
	return int32(i), nil
}

func coerceToUint64(v interface{}) (uint64, error) {
	switch t := v.(type) {
	case uint64:
		return t, nil
	case uint32:
		return uint64(t), nil
	case json.Number:
		if uv, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return uv, nil
		}
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return 0, err
		}
		if f < 0 || f != math.Trunc(f) {
			return 0, errors.New("non-integer numeric for unsigned field")
		}
		return uint64(f), nil
	case string:
		return strconv.ParseUint(t, 10, 64)
	default:
		i, err := coerceToInt64(v)
		if err != nil {
			return 0, errors.Newf("expected unsigned-integer-like, got %T", v)
		}
		if i < 0 {
			return 0, errors.Newf("negative value %d for unsigned field", i)
		}
		return uint64(i), nil
	}
}

func coerceToUint32(v interface{}) (uint32, error) {
	u, err := coerceToUint64(v)
	if err != nil {
		return 0, err
	}
	if u > math.MaxUint32 {
		return 0, errors.Newf("value %d overflows uint32", u)
	}
	return uint32(u), nil
}

func coerceToBool(v interface{}) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		return strconv.ParseBool(t)
	default:
		return false, errors.Newf("expected bool, got %T", v)
	}
}

// coerceToBytes accepts raw bytes or a standard base64 string, the JSON form
// of a bytes field.
func coerceToBytes(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		b, err := base64.StdEncoding.DecodeString(t)
		if err != nil {
			return nil, errors.Wrap(err, "bytes field expects base64 text")
		}
		return b, nil
	default:
		return nil, errors.Newf("expected []byte, got %T", v)
	}
}

// toInterfaceSlice flattens the typed slices callers commonly pass for
// repeated fields.
func toInterfaceSlice(value interface{}) ([]interface{}, error) {
	switch v := value.(type) {
	case []interface{}:
		return v, nil
	case []map[string]interface{}:
		return lo.ToAnySlice(v), nil
	case []string:
		return lo.ToAnySlice(v), nil
	case []int32:
		return lo.ToAnySlice(v), nil
	case []int64:
		return lo.ToAnySlice(v), nil
	case []uint32:
		return lo.ToAnySlice(v), nil
	case []uint64:
		return lo.ToAnySlice(v), nil
	case []bool:
		return lo.ToAnySlice(v), nil
	case [][]byte:
		return lo.ToAnySlice(v), nil
	default:
		return nil, errors.Newf("repeated field value must be a slice, got %T", value)
	}
}
