package record

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novastore/internal/storage"
)

func testSchema() Schema {
	return Schema{Columns: []Column{
		{Name: "id", Type: ColInt32, Nullable: false},
		{Name: "count", Type: ColUInt32, Nullable: false},
		{Name: "active", Type: ColBool, Nullable: false},
		{Name: "score", Type: ColFloat64, Nullable: false},
		{Name: "name", Type: ColVarChar, Nullable: true},
		{Name: "blob", Type: ColBlob, Nullable: true},
	}}
}

func TestEncodeDecodeTuple_RoundTrip(t *testing.T) {
	schema := testSchema()
	values := []Value{
		Int32Value(42),
		UInt32Value(7),
		BoolValue(true),
		Float64Value(3.14159),
		VarCharValue("hello"),
		BlobValue([]byte{0x01, 0x02, 0x03}),
	}

	buf, err := EncodeTuple(schema, values)
	require.NoError(t, err)
	require.NotEmpty(t, buf)

	decoded, err := DecodeTuple(schema, buf)
	require.NoError(t, err)
	require.Len(t, decoded, len(values))

	assert.Equal(t, int32(42), decoded[0].I32)
	assert.Equal(t, uint32(7), decoded[1].U32)
	assert.True(t, decoded[2].Bool)
	assert.InDelta(t, 3.14159, decoded[3].F64, 1e-9)
	assert.Equal(t, "hello", decoded[4].Str)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, decoded[5].Blob)
}

func TestEncodeDecodeTuple_Nulls(t *testing.T) {
	schema := testSchema()
	values := []Value{
		Int32Value(1),
		UInt32Value(2),
		BoolValue(false),
		Float64Value(1.5),
		NullValue(ColVarChar),
		NullValue(ColBlob),
	}

	buf, err := EncodeTuple(schema, values)
	require.NoError(t, err)

	decoded, err := DecodeTuple(schema, buf)
	require.NoError(t, err)
	assert.True(t, decoded[4].Null)
	assert.True(t, decoded[5].Null)
}

func TestEncodeTuple_SchemaMismatch(t *testing.T) {
	schema := testSchema()
	_, err := EncodeTuple(schema, []Value{Int32Value(1)})
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestEncodeTuple_NonNullableNull(t *testing.T) {
	schema := testSchema()
	values := []Value{
		NullValue(ColInt32), // id is not nullable
		UInt32Value(1),
		BoolValue(true),
		Float64Value(1.0),
		VarCharValue("ok"),
		BlobValue([]byte("abcd")),
	}
	_, err := EncodeTuple(schema, values)
	require.ErrorIs(t, err, ErrNotNullable)
}

func TestEncodeTupleWithOverflow_LargeValueDeferred(t *testing.T) {
	schema := Schema{Columns: []Column{
		{Name: "name", Type: ColVarChar, Nullable: false},
	}}
	long := strings.Repeat("a", 100)
	values := []Value{VarCharValue(long)}

	buf, overflows, err := EncodeTupleWithOverflow(schema, values, 50)
	require.NoError(t, err)
	require.Len(t, overflows, 1)
	assert.Equal(t, 0, overflows[0].ColIndex)
	assert.Equal(t, []byte(long), overflows[0].Data)

	ptr := storage.OverflowPointer{PageID: 9, TotalLen: uint32(len(long))}
	require.NoError(t, PatchOverflowPointer(schema, buf, 0, ptr))

	decoded, err := DecodeTuple(schema, buf)
	require.NoError(t, err)
	require.True(t, IsOverflowPlaceholder(decoded[0], schema.Columns[0]))

	got := storage.DecodeOverflowPointer(decoded[0].Blob)
	assert.Equal(t, ptr, got)
}

func TestEncodeTupleWithOverflow_SmallValueInlined(t *testing.T) {
	schema := Schema{Columns: []Column{
		{Name: "name", Type: ColVarChar, Nullable: false},
	}}
	values := []Value{VarCharValue("small")}

	buf, overflows, err := EncodeTupleWithOverflow(schema, values, 50)
	require.NoError(t, err)
	assert.Empty(t, overflows)

	decoded, err := DecodeTuple(schema, buf)
	require.NoError(t, err)
	assert.Equal(t, "small", decoded[0].Str)
}

func TestDecodeTuple_TruncatedBuffer(t *testing.T) {
	schema := testSchema()
	values := []Value{
		Int32Value(1), UInt32Value(2), BoolValue(true), Float64Value(1.0),
		VarCharValue("x"), BlobValue([]byte("y")),
	}
	buf, err := EncodeTuple(schema, values)
	require.NoError(t, err)

	_, err = DecodeTuple(schema, buf[:len(buf)-3])
	assert.ErrorIs(t, err, ErrBadBuffer)

	_, err = DecodeTuple(schema, []byte{0x00})
	assert.ErrorIs(t, err, ErrBadBuffer)
}

func TestSchema_NullBitmapAndMinTupleSize(t *testing.T) {
	schema := testSchema()
	assert.Equal(t, 1, schema.NullBitmapSize()) // 6 columns -> 1 byte
	assert.Equal(t, 1+4+4+1+8+2+2, schema.MinTupleSize())
}
