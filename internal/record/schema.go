// Package record implements the tuple binary format: column/schema
// definitions and the encoder/decoder that turn a row of values into the
// bytes a heap page stores (and back).
package record

// ColumnType is the wire type tag for one schema column.
type ColumnType uint8

const (
	ColInt32 ColumnType = iota
	ColUInt32
	ColFloat64
	ColBool
	ColVarChar // variable-length UTF-8 text
	ColBlob    // variable-length opaque bytes
)

// FixedSize is the inline width of the type's fixed-length portion. For
// the variable-length types this is just the 2-byte length prefix — the
// payload itself rides after it.
func (t ColumnType) FixedSize() int {
	switch t {
	case ColInt32, ColUInt32:
		return 4
	case ColFloat64:
		return 8
	case ColBool:
		return 1
	case ColVarChar, ColBlob:
		return 2
	default:
		return 0
	}
}

func (t ColumnType) IsVariable() bool {
	return t == ColVarChar || t == ColBlob
}

// TypeTag is the wire tag snapshot encoders embed for a column's type.
func (t ColumnType) TypeTag() uint8 { return uint8(t) }

// Column describes one schema field. MaxLen is the declared maximum length
// of VarChar/Blob values in bytes; it is kept in the schema and in table
// snapshots but is not checked when values are encoded. It is unused for
// fixed-width types.
type Column struct {
	Name     string
	Type     ColumnType
	MaxLen   uint16
	Nullable bool
}

// Schema is an ordered list of columns; tuples are always encoded and
// decoded in this order.
type Schema struct {
	Columns []Column
}

func (s Schema) NumColumns() int { return len(s.Columns) }

// NullBitmapSize is the number of bytes needed to hold one null bit per
// column.
func (s Schema) NullBitmapSize() int {
	return (len(s.Columns) + 7) / 8
}

// MinTupleSize is the smallest a tuple can ever encode to: the null
// bitmap plus every column's fixed-length portion, with every
// variable-length column empty.
func (s Schema) MinTupleSize() int {
	size := s.NullBitmapSize()
	for _, c := range s.Columns {
		size += c.Type.FixedSize()
	}
	return size
}
