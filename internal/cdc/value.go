// Package cdc holds the JSON-to-core.Value conversion shared by the
// wal2json, Maxwell, Debezium, and pg_walstream shims: each event format
// carries its row data as arbitrary JSON, and all four need the same
// number/string/bool/null promotion rules to land on core.Value.
package cdc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"sessiondiff/internal/core"
)

// JSONToValue decodes one JSON-encoded column value into a core.Value.
// Numbers are tried as int64 first and fall back to float64, matching
// serde_json's as_i64()-then-as_f64() promotion so a CDC source's integer
// columns round-trip as Integer rather than Real. Arrays and objects have
// no core.Value representation and are rejected.
func JSONToValue(raw []byte) (core.Value, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return core.Null, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return core.Null, nil
		}
		return core.Value{}, fmt.Errorf("cdc: decode column value: %w", err)
	}
	return nativeToValue(v)
}

func nativeToValue(v interface{}) (core.Value, error) {
	switch t := v.(type) {
	case nil:
		return core.Null, nil
	case bool:
		if t {
			return core.Integer(1), nil
		}
		return core.Integer(0), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return core.Integer(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return core.Value{}, fmt.Errorf("cdc: number %q is neither integer nor float", t.String())
		}
		return core.Real(f), nil
	case string:
		return core.Text(t), nil
	default:
		return core.Value{}, fmt.Errorf("cdc: unsupported JSON value type %T", v)
	}
}

// PKFromNamed extracts, in ordinal order, the primary-key values out of a
// name->raw-JSON map, erroring if the map does not cover every PK column
// of schema (a CDC source running with a partial replica identity cannot
// identify the row unambiguously).
func PKFromNamed(schema *core.NamedSchema, named map[string]json.RawMessage) ([]core.Value, error) {
	k := core.PKColumnCount(schema)
	pk := make([]core.Value, k)
	filled := make([]bool, k)
	for name, raw := range named {
		idx := schema.ColumnIndex(name)
		if idx < 0 {
			continue
		}
		ord := schema.PKOrdinal(idx)
		if ord == 0 {
			continue
		}
		v, err := JSONToValue(raw)
		if err != nil {
			return nil, err
		}
		pk[ord-1] = v
		filled[ord-1] = true
	}
	for _, f := range filled {
		if !f {
			return nil, fmt.Errorf("cdc: table %q: event does not cover every primary-key column", schema.TableName())
		}
	}
	return pk, nil
}
