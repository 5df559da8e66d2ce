package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novastore/internal/record"
	"github.com/tuannm99/novastore/internal/storage"
)

func TestParseSchema_SimpleAndVariableTypes(t *testing.T) {
	doc := []byte(`{"columns": [
		{"name": "id", "type": "Int32", "nullable": false},
		{"name": "bio", "type": {"VarChar": 255}, "nullable": true}
	]}`)

	schema, err := ParseSchema(doc)
	require.NoError(t, err)
	require.Len(t, schema.Columns, 2)
	assert.Equal(t, record.ColInt32, schema.Columns[0].Type)
	assert.Equal(t, record.ColVarChar, schema.Columns[1].Type)
	assert.EqualValues(t, 255, schema.Columns[1].MaxLen)
	assert.True(t, schema.Columns[1].Nullable)
}

func TestParseSchema_EmptyColumnsRejected(t *testing.T) {
	_, err := ParseSchema([]byte(`{"columns": []}`))
	assert.Error(t, err)
}

func TestSchemaToJSON_RoundTrip(t *testing.T) {
	schema := record.Schema{Columns: []record.Column{
		{Name: "id", Type: record.ColInt32, Nullable: false},
		{Name: "tags", Type: record.ColBlob, MaxLen: 64, Nullable: true},
	}}

	doc, err := SchemaToJSON(schema)
	require.NoError(t, err)

	decoded, err := ParseSchema(doc)
	require.NoError(t, err)
	assert.Equal(t, schema, decoded)
}

func TestParseValues_AndValuesToJSON(t *testing.T) {
	schema := record.Schema{Columns: []record.Column{
		{Name: "id", Type: record.ColInt32, Nullable: false},
		{Name: "name", Type: record.ColVarChar, Nullable: true},
		{Name: "score", Type: record.ColFloat64, Nullable: false},
		{Name: "active", Type: record.ColBool, Nullable: false},
	}}

	values, err := ParseValues([]byte(`[42, "Alice", 3.14, true]`), schema)
	require.NoError(t, err)
	assert.Equal(t, int32(42), values[0].I32)
	assert.Equal(t, "Alice", values[1].Str)
	assert.InDelta(t, 3.14, values[2].F64, 1e-9)
	assert.True(t, values[3].Bool)

	out, err := ValuesToJSON(values)
	require.NoError(t, err)
	assert.JSONEq(t, `[42,"Alice",3.14,true]`, string(out))
}

func TestParseValues_NullRequiresNullable(t *testing.T) {
	schema := record.Schema{Columns: []record.Column{
		{Name: "id", Type: record.ColInt32, Nullable: false},
	}}
	_, err := ParseValues([]byte(`[null]`), schema)
	assert.Error(t, err)
}

func TestBlobValue_HexRoundTrip(t *testing.T) {
	schema := record.Schema{Columns: []record.Column{
		{Name: "data", Type: record.ColBlob, Nullable: false},
	}}
	values, err := ParseValues([]byte(`["0xdeadbeef"]`), schema)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, values[0].Blob)

	out, err := ValuesToJSON(values)
	require.NoError(t, err)
	assert.JSONEq(t, `["0xdeadbeef"]`, string(out))
}

func TestRowID_ParseAndFormat(t *testing.T) {
	id, err := ParseRowID("7:3")
	require.NoError(t, err)
	assert.Equal(t, storage.RowID{PageID: 7, SlotID: 3}, id)
	assert.Equal(t, "7:3", FormatRowID(id))
}

func TestParseRowID_BadFormat(t *testing.T) {
	_, err := ParseRowID("not-a-rowid")
	assert.Error(t, err)
}
