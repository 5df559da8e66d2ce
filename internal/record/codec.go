package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/tuannm99/novastore/internal/storage"
)

// OverflowSentinel marks a variable-length column's length prefix as "this
// value lives in an overflow chain" rather than inline.
const OverflowSentinel = 0xFFFF

var (
	ErrSchemaMismatch = errors.New("record: value count does not match schema")
	ErrNotNullable     = errors.New("record: null value for non-nullable column")
	ErrVarTooLong      = errors.New("record: variable-length value exceeds column limit")
	ErrBadBuffer       = errors.New("record: tuple buffer too short to decode")
)

// ColumnOverflow is one column's raw bytes that EncodeTupleWithOverflow
// deferred to the caller instead of inlining.
type ColumnOverflow struct {
	ColIndex int
	Data     []byte
}

func checkValues(schema Schema, values []Value) error {
	if len(values) != len(schema.Columns) {
		return fmt.Errorf("%w: got %d values, schema has %d columns", ErrSchemaMismatch, len(values), len(schema.Columns))
	}
	for i, v := range values {
		col := schema.Columns[i]
		if v.Null && !col.Nullable {
			return fmt.Errorf("%w: column %q", ErrNotNullable, col.Name)
		}
	}
	return nil
}

func varLen(v Value) int {
	if v.Kind == ColVarChar {
		return len(v.Str)
	}
	return len(v.Blob)
}

func varBytes(v Value) []byte {
	if v.Kind == ColVarChar {
		return []byte(v.Str)
	}
	return v.Blob
}

// EncodeTuple lays values out in schema order with no overflow handling:
// every variable-length value is inlined regardless of size. Callers that
// need overflow support use EncodeTupleWithOverflow instead.
func EncodeTuple(schema Schema, values []Value) ([]byte, error) {
	if err := checkValues(schema, values); err != nil {
		return nil, err
	}

	buf := make([]byte, schema.NullBitmapSize())
	for i, v := range values {
		if v.Null {
			buf[i/8] |= 1 << (i % 8)
		}
	}

	for i, v := range values {
		col := schema.Columns[i]
		switch {
		case v.Null:
			buf = appendZeroColumn(buf, col.Type)
		case col.Type.IsVariable():
			n := varLen(v)
			if n > math.MaxUint16 {
				return nil, fmt.Errorf("%w: column %q has %d bytes", ErrVarTooLong, col.Name, n)
			}
			buf = binary.LittleEndian.AppendUint16(buf, uint16(n))
			buf = append(buf, varBytes(v)...)
		default:
			buf = appendFixedColumn(buf, v)
		}
	}
	return buf, nil
}

// EncodeTupleWithOverflow is EncodeTuple plus per-column overflow
// redirection: any variable-length value longer than overflowThreshold is
// replaced with the sentinel length and an all-zero placeholder pointer,
// and its raw bytes are returned for the caller to write to overflow
// pages and patch in with PatchOverflowPointer.
func EncodeTupleWithOverflow(schema Schema, values []Value, overflowThreshold uint32) ([]byte, []ColumnOverflow, error) {
	if err := checkValues(schema, values); err != nil {
		return nil, nil, err
	}

	buf := make([]byte, schema.NullBitmapSize())
	for i, v := range values {
		if v.Null {
			buf[i/8] |= 1 << (i % 8)
		}
	}

	var overflows []ColumnOverflow
	for i, v := range values {
		col := schema.Columns[i]
		switch {
		case v.Null:
			buf = appendZeroColumn(buf, col.Type)
		case col.Type.IsVariable():
			raw := varBytes(v)
			if uint32(len(raw)) > overflowThreshold {
				buf = binary.LittleEndian.AppendUint16(buf, OverflowSentinel)
				buf = append(buf, make([]byte, 8)...)
				overflows = append(overflows, ColumnOverflow{ColIndex: i, Data: raw})
				continue
			}
			if len(raw) > math.MaxUint16 {
				return nil, nil, fmt.Errorf("%w: column %q has %d bytes", ErrVarTooLong, col.Name, len(raw))
			}
			buf = binary.LittleEndian.AppendUint16(buf, uint16(len(raw)))
			buf = append(buf, raw...)
		default:
			buf = appendFixedColumn(buf, v)
		}
	}
	return buf, overflows, nil
}

func appendZeroColumn(buf []byte, t ColumnType) []byte {
	switch t {
	case ColInt32, ColUInt32:
		return append(buf, 0, 0, 0, 0)
	case ColFloat64:
		return append(buf, 0, 0, 0, 0, 0, 0, 0, 0)
	case ColBool:
		return append(buf, 0)
	default: // variable-length: zero length prefix
		return append(buf, 0, 0)
	}
}

func appendFixedColumn(buf []byte, v Value) []byte {
	switch v.Kind {
	case ColInt32:
		return binary.LittleEndian.AppendUint32(buf, uint32(v.I32))
	case ColUInt32:
		return binary.LittleEndian.AppendUint32(buf, v.U32)
	case ColFloat64:
		return binary.LittleEndian.AppendUint64(buf, math.Float64bits(v.F64))
	case ColBool:
		if v.Bool {
			return append(buf, 1)
		}
		return append(buf, 0)
	default:
		return buf
	}
}

// PatchOverflowPointer rewrites the placeholder pointer EncodeTupleWithOverflow
// left at colIndex with the real, now-resolved overflow location.
func PatchOverflowPointer(schema Schema, encoded []byte, colIndex int, ptr storage.OverflowPointer) error {
	offset := schema.NullBitmapSize()
	for i := 0; i < colIndex; i++ {
		col := schema.Columns[i]
		if !col.Type.IsVariable() {
			offset += col.Type.FixedSize()
			continue
		}
		if offset+2 > len(encoded) {
			return ErrBadBuffer
		}
		length := binary.LittleEndian.Uint16(encoded[offset:])
		offset += 2
		if length == OverflowSentinel {
			offset += 8
		} else {
			offset += int(length)
		}
	}
	if offset+2+8 > len(encoded) {
		return ErrBadBuffer
	}
	offset += 2 // skip the sentinel length prefix itself
	ptr.Encode(encoded[offset : offset+8])
	return nil
}

// DecodeTuple reconstructs a row of values from encoded tuple bytes. An
// unresolved overflow column decodes to a Blob value holding the raw
// 8-byte pointer; use IsOverflowPlaceholder to detect it and resolve with
// storage.DecodeOverflowPointer.
func DecodeTuple(schema Schema, data []byte) ([]Value, error) {
	bmSize := schema.NullBitmapSize()
	if len(data) < bmSize {
		return nil, ErrBadBuffer
	}
	bitmap := data[:bmSize]
	offset := bmSize

	values := make([]Value, 0, len(schema.Columns))
	for i, col := range schema.Columns {
		isNull := (bitmap[i/8]>>(i%8))&1 == 1

		if isNull {
			n, err := skipColumn(col.Type, data, offset)
			if err != nil {
				return nil, err
			}
			offset = n
			values = append(values, NullValue(col.Type))
			continue
		}

		switch col.Type {
		case ColInt32:
			if offset+4 > len(data) {
				return nil, ErrBadBuffer
			}
			values = append(values, Int32Value(int32(binary.LittleEndian.Uint32(data[offset:]))))
			offset += 4
		case ColUInt32:
			if offset+4 > len(data) {
				return nil, ErrBadBuffer
			}
			values = append(values, UInt32Value(binary.LittleEndian.Uint32(data[offset:])))
			offset += 4
		case ColFloat64:
			if offset+8 > len(data) {
				return nil, ErrBadBuffer
			}
			values = append(values, Float64Value(math.Float64frombits(binary.LittleEndian.Uint64(data[offset:]))))
			offset += 8
		case ColBool:
			if offset+1 > len(data) {
				return nil, ErrBadBuffer
			}
			values = append(values, BoolValue(data[offset] != 0))
			offset++
		case ColVarChar, ColBlob:
			if offset+2 > len(data) {
				return nil, ErrBadBuffer
			}
			length := binary.LittleEndian.Uint16(data[offset:])
			offset += 2
			if length == OverflowSentinel {
				if offset+8 > len(data) {
					return nil, ErrBadBuffer
				}
				ptrBytes := append([]byte(nil), data[offset:offset+8]...)
				offset += 8
				values = append(values, BlobValue(ptrBytes))
				continue
			}
			if offset+int(length) > len(data) {
				return nil, ErrBadBuffer
			}
			raw := data[offset : offset+int(length)]
			offset += int(length)
			if col.Type == ColVarChar {
				values = append(values, VarCharValue(string(raw)))
			} else {
				values = append(values, BlobValue(append([]byte(nil), raw...)))
			}
		}
	}
	return values, nil
}

func skipColumn(t ColumnType, data []byte, offset int) (int, error) {
	if !t.IsVariable() {
		if offset+t.FixedSize() > len(data) {
			return 0, ErrBadBuffer
		}
		return offset + t.FixedSize(), nil
	}
	if offset+2 > len(data) {
		return 0, ErrBadBuffer
	}
	length := binary.LittleEndian.Uint16(data[offset:])
	offset += 2
	if length == OverflowSentinel {
		offset += 8
	} else {
		offset += int(length)
	}
	if offset > len(data) {
		return 0, ErrBadBuffer
	}
	return offset, nil
}

// IsOverflowPlaceholder reports whether a decoded variable-length value is
// actually an unresolved 8-byte overflow pointer rather than real data.
func IsOverflowPlaceholder(v Value, col Column) bool {
	return col.Type.IsVariable() && v.Kind == ColBlob && len(v.Blob) == 8 && !v.Null
}
