package wire

import (
	"encoding/binary"
)

// FixedDecoder reads the little-endian fixed32 and fixed64 payloads. No
// declared field uses them; they are skipped as unknown or surfaced raw by
// the schema-less scan.
type FixedDecoder struct {
	decoder *Decoder
}

// FixedEncoder writes little-endian fixed-width payloads.
type FixedEncoder struct {
	encoder *Encoder
}

// NewFixedDecoder creates a new fixed decoder
func NewFixedDecoder(d *Decoder) *FixedDecoder {
	return &FixedDecoder{decoder: d}
}

// NewFixedEncoder creates a new fixed encoder
func NewFixedEncoder(e *Encoder) *FixedEncoder {
	return &FixedEncoder{encoder: e}
}

// DecodeFixed32 reads 4 bytes.
func (fd *FixedDecoder) DecodeFixed32() (uint32, error) {
	d := fd.decoder
	if d.Remaining() < 4 {
		return 0, malformed("not enough data for fixed32: have %d", d.Remaining())
	}
	v := binary.LittleEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v, nil
}

// DecodeFixed64 reads 8 bytes.
func (fd *FixedDecoder) DecodeFixed64() (uint64, error) {
	d := fd.decoder
	if d.Remaining() < 8 {
		return 0, malformed("not enough data for fixed64: have %d", d.Remaining())
	}
	v := binary.LittleEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return v, nil
}

// EncodeFixed32 appends v as 4 little-endian bytes.
func (fe *FixedEncoder) EncodeFixed32(v uint32) {
	fe.encoder.buf = binary.LittleEndian.AppendUint32(fe.encoder.buf, v)
}

// EncodeFixed64 appends v as 8 little-endian bytes.
func (fe *FixedEncoder) EncodeFixed64(v uint64) {
	fe.encoder.buf = binary.LittleEndian.AppendUint64(fe.encoder.buf, v)
}
