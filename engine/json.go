// JSON boundary adapter: the engine's external API speaks JSON for
// schemas and values, encoded with encoding/json and small DTOs rather
// than a hand-rolled scanner.
package engine

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tuannm99/novastore/internal/config"
	"github.com/tuannm99/novastore/internal/record"
	"github.com/tuannm99/novastore/internal/storage"
)

type configDTO struct {
	PageSize          uint32 `json:"page_size"`
	PoolSize          uint32 `json:"pool_size"`
	DiskCapacity      uint32 `json:"disk_capacity"`
	OverflowThreshold uint32 `json:"overflow_threshold"`
}

// jsonUnmarshalInto overlays a {"page_size":...} document onto cfg's
// storage fields, leaving unspecified fields at their current value.
func jsonUnmarshalInto(data []byte, cfg *config.EngineConfig) error {
	dto := configDTO{
		PageSize:          cfg.Storage.PageSize,
		PoolSize:          cfg.Storage.PoolSize,
		DiskCapacity:      cfg.Storage.DiskCapacity,
		OverflowThreshold: cfg.Storage.OverflowThreshold,
	}
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	cfg.Storage.PageSize = dto.PageSize
	cfg.Storage.PoolSize = dto.PoolSize
	cfg.Storage.DiskCapacity = dto.DiskCapacity
	cfg.Storage.OverflowThreshold = dto.OverflowThreshold
	return nil
}

func jsonMarshalConfig(cfg *config.EngineConfig) ([]byte, error) {
	return json.Marshal(configDTO{
		PageSize:          cfg.Storage.PageSize,
		PoolSize:          cfg.Storage.PoolSize,
		DiskCapacity:      cfg.Storage.DiskCapacity,
		OverflowThreshold: cfg.Storage.OverflowThreshold,
	})
}

type columnDTO struct {
	Name     string          `json:"name"`
	Type     json.RawMessage `json:"type"`
	Nullable bool            `json:"nullable"`
}

type schemaDTO struct {
	Columns []columnDTO `json:"columns"`
}

type varLenTypeDTO struct {
	VarChar *uint16 `json:"VarChar,omitempty"`
	Blob    *uint16 `json:"Blob,omitempty"`
}

// ParseSchema decodes a schema document of the shape:
//
//	{"columns": [
//	  {"name": "id", "type": "Int32", "nullable": false},
//	  {"name": "bio", "type": {"VarChar": 255}, "nullable": true}
//	]}
func ParseSchema(data []byte) (record.Schema, error) {
	var dto schemaDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return record.Schema{}, fmt.Errorf("engine: parse schema: %w", err)
	}
	if len(dto.Columns) == 0 {
		return record.Schema{}, fmt.Errorf("engine: schema must have at least one column")
	}

	cols := make([]record.Column, len(dto.Columns))
	for i, c := range dto.Columns {
		typ, maxLen, err := parseColumnType(c.Type)
		if err != nil {
			return record.Schema{}, fmt.Errorf("engine: column %q: %w", c.Name, err)
		}
		cols[i] = record.Column{Name: c.Name, Type: typ, MaxLen: maxLen, Nullable: c.Nullable}
	}
	return record.Schema{Columns: cols}, nil
}

func parseColumnType(raw json.RawMessage) (record.ColumnType, uint16, error) {
	var simple string
	if err := json.Unmarshal(raw, &simple); err == nil {
		switch simple {
		case "Int32":
			return record.ColInt32, 0, nil
		case "UInt32":
			return record.ColUInt32, 0, nil
		case "Float64":
			return record.ColFloat64, 0, nil
		case "Bool":
			return record.ColBool, 0, nil
		default:
			return 0, 0, fmt.Errorf("unknown type %q", simple)
		}
	}

	var variable varLenTypeDTO
	if err := json.Unmarshal(raw, &variable); err != nil {
		return 0, 0, fmt.Errorf("could not parse column type: %w", err)
	}
	switch {
	case variable.VarChar != nil:
		return record.ColVarChar, *variable.VarChar, nil
	case variable.Blob != nil:
		return record.ColBlob, *variable.Blob, nil
	default:
		return 0, 0, fmt.Errorf("unknown type object")
	}
}

// SchemaToJSON renders schema back into the document ParseSchema accepts.
func SchemaToJSON(schema record.Schema) ([]byte, error) {
	dto := schemaDTO{Columns: make([]columnDTO, len(schema.Columns))}
	for i, c := range schema.Columns {
		typeJSON, err := columnTypeJSON(c)
		if err != nil {
			return nil, err
		}
		dto.Columns[i] = columnDTO{Name: c.Name, Type: typeJSON, Nullable: c.Nullable}
	}
	return json.Marshal(dto)
}

func columnTypeJSON(c record.Column) (json.RawMessage, error) {
	switch c.Type {
	case record.ColInt32:
		return json.Marshal("Int32")
	case record.ColUInt32:
		return json.Marshal("UInt32")
	case record.ColFloat64:
		return json.Marshal("Float64")
	case record.ColBool:
		return json.Marshal("Bool")
	case record.ColVarChar:
		return json.Marshal(varLenTypeDTO{VarChar: &c.MaxLen})
	case record.ColBlob:
		return json.Marshal(varLenTypeDTO{Blob: &c.MaxLen})
	default:
		return nil, fmt.Errorf("engine: unknown column type %d", c.Type)
	}
}

// ParseValues decodes a JSON array of positional row values against
// schema, e.g. [42, "Alice", 3.14, true, null].
func ParseValues(data []byte, schema record.Schema) ([]record.Value, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("engine: values must be a JSON array: %w", err)
	}
	if len(raw) != len(schema.Columns) {
		return nil, fmt.Errorf("engine: expected %d values, got %d", len(schema.Columns), len(raw))
	}

	values := make([]record.Value, len(raw))
	for i, r := range raw {
		col := schema.Columns[i]
		if string(r) == "null" {
			if !col.Nullable {
				return nil, fmt.Errorf("engine: column %q is not nullable", col.Name)
			}
			values[i] = record.NullValue(col.Type)
			continue
		}

		v, err := parseValue(r, col)
		if err != nil {
			return nil, fmt.Errorf("engine: column %q: %w", col.Name, err)
		}
		values[i] = v
	}
	return values, nil
}

func parseValue(raw json.RawMessage, col record.Column) (record.Value, error) {
	switch col.Type {
	case record.ColInt32:
		var n int32
		if err := json.Unmarshal(raw, &n); err != nil {
			return record.Value{}, fmt.Errorf("invalid Int32: %s", raw)
		}
		return record.Int32Value(n), nil
	case record.ColUInt32:
		var n uint32
		if err := json.Unmarshal(raw, &n); err != nil {
			return record.Value{}, fmt.Errorf("invalid UInt32: %s", raw)
		}
		return record.UInt32Value(n), nil
	case record.ColFloat64:
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			return record.Value{}, fmt.Errorf("invalid Float64: %s", raw)
		}
		return record.Float64Value(n), nil
	case record.ColBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return record.Value{}, fmt.Errorf("invalid Bool: %s", raw)
		}
		return record.BoolValue(b), nil
	case record.ColVarChar:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return record.Value{}, fmt.Errorf("VarChar must be a string: %s", raw)
		}
		return record.VarCharValue(s), nil
	case record.ColBlob:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return record.Value{}, fmt.Errorf("Blob must be a string: %s", raw)
		}
		b, err := decodeBlobString(s)
		if err != nil {
			return record.Value{}, err
		}
		return record.BlobValue(b), nil
	default:
		return record.Value{}, fmt.Errorf("unsupported column type %d", col.Type)
	}
}

func decodeBlobString(s string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(s, "0x"); ok {
		b, err := hex.DecodeString(rest)
		if err != nil {
			return nil, fmt.Errorf("invalid hex blob: %w", err)
		}
		return b, nil
	}
	return []byte(s), nil
}

// ValuesToJSON renders decoded row values back to the array ParseValues
// accepts. Blob values render as a "0x"-prefixed hex string.
func ValuesToJSON(values []record.Value) ([]byte, error) {
	parts := make([]json.RawMessage, len(values))
	for i, v := range values {
		if v.Null {
			parts[i] = json.RawMessage("null")
			continue
		}
		var (
			raw []byte
			err error
		)
		switch v.Kind {
		case record.ColInt32:
			raw, err = json.Marshal(v.I32)
		case record.ColUInt32:
			raw, err = json.Marshal(v.U32)
		case record.ColFloat64:
			raw, err = json.Marshal(v.F64)
		case record.ColBool:
			raw, err = json.Marshal(v.Bool)
		case record.ColVarChar:
			raw, err = json.Marshal(v.Str)
		case record.ColBlob:
			raw, err = json.Marshal("0x" + hex.EncodeToString(v.Blob))
		default:
			err = fmt.Errorf("engine: unknown value kind %d", v.Kind)
		}
		if err != nil {
			return nil, err
		}
		parts[i] = raw
	}
	return json.Marshal(parts)
}

// ParseRowID parses the "page_id:slot_id" textual row identity.
func ParseRowID(s string) (storage.RowID, error) {
	pageStr, slotStr, ok := strings.Cut(s, ":")
	if !ok {
		return storage.RowID{}, fmt.Errorf("engine: row id format is page_id:slot_id, got %q", s)
	}
	pageID, err := strconv.ParseUint(pageStr, 10, 32)
	if err != nil {
		return storage.RowID{}, fmt.Errorf("engine: invalid page_id in %q: %w", s, err)
	}
	slotID, err := strconv.ParseUint(slotStr, 10, 16)
	if err != nil {
		return storage.RowID{}, fmt.Errorf("engine: invalid slot_id in %q: %w", s, err)
	}
	return storage.RowID{PageID: storage.PageID(pageID), SlotID: storage.SlotID(slotID)}, nil
}

// FormatRowID renders a row id as "page_id:slot_id".
func FormatRowID(id storage.RowID) string {
	return fmt.Sprintf("%d:%d", id.PageID, id.SlotID)
}
