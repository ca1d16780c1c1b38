package wire

import (
	"os"
	"strconv"
)

// DefaultMaxDepth bounds message nesting on decode.
const DefaultMaxDepth = 100

// Config controls optional decoder behaviors. The zero value is the default
// policy: wire type mismatches on known fields are skipped like unknown fields.
type Config struct {
	// StrictWireTypeOnDecode: when true, a known field carrying a wire type
	// that does not match its declared kind fails the decode with
	// ErrTypeMismatch instead of being skipped.
	StrictWireTypeOnDecode bool

	// PreserveUnknownBytesOnDecode: when true, decoded messages include an
	// "__unknown" []byte entry holding the raw bytes of skipped fields.
	PreserveUnknownBytesOnDecode bool

	// MaxDepth limits nested message depth. Zero means DefaultMaxDepth.
	MaxDepth int
}

// UnknownFieldsKey is the result key used by PreserveUnknownBytesOnDecode.
const UnknownFieldsKey = "__unknown"

func (c Config) maxDepth() int {
	if c.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return c.MaxDepth
}

// ConfigFromEnv starts from the defaults and applies the WIRECODEC_* toggles.
func ConfigFromEnv() Config {
	var c Config
	if v := os.Getenv("WIRECODEC_STRICT_WIRE"); v == "1" || v == "true" {
		c.StrictWireTypeOnDecode = true
	}
	if v := os.Getenv("WIRECODEC_PRESERVE_UNKNOWN"); v == "1" || v == "true" {
		c.PreserveUnknownBytesOnDecode = true
	}
	if v := os.Getenv("WIRECODEC_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxDepth = n
		}
	}
	return c
}
