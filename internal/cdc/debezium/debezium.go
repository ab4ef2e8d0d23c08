// Package debezium converts Debezium (https://debezium.io/) change-event
// envelopes into sessiondiff changeset operations.
package debezium

import (
	"encoding/json"
	"fmt"

	"sessiondiff/internal/cdc"
	"sessiondiff/internal/core"
)

// Op is a Debezium envelope's operation code.
type Op string

const (
	OpCreate   Op = "c"
	OpUpdate   Op = "u"
	OpDelete   Op = "d"
	OpRead     Op = "r"
	OpTruncate Op = "t"
	OpMessage  Op = "m"
)

// Source is a Debezium envelope's source metadata block.
type Source struct {
	Version    string `json:"version,omitempty"`
	Connector  string `json:"connector,omitempty"`
	Name       string `json:"name,omitempty"`
	TsMs       *int64 `json:"ts_ms,omitempty"`
	Snapshot   string `json:"snapshot,omitempty"`
	DB         string `json:"db,omitempty"`
	Schema     string `json:"schema,omitempty"`
	Table      string `json:"table,omitempty"`
	TxID       *int64 `json:"txId,omitempty"`
	LSN        *int64 `json:"lsn,omitempty"`
	XMin       *int64 `json:"xmin,omitempty"`
}

// Transaction is a Debezium envelope's optional transaction-metadata block.
type Transaction struct {
	ID                  string `json:"id"`
	TotalOrder          *int64 `json:"total_order,omitempty"`
	DataCollectionOrder *int64 `json:"data_collection_order,omitempty"`
}

// Envelope is a single Debezium change event. Row payloads decode as a
// name->raw-JSON map rather than a typed struct, since the table schema
// (and therefore the set of columns) is only known at conversion time.
type Envelope struct {
	Before      map[string]json.RawMessage `json:"before"`
	After       map[string]json.RawMessage `json:"after"`
	Source      Source                     `json:"source"`
	Op          Op                         `json:"op"`
	TsMs        *int64                     `json:"ts_ms,omitempty"`
	Transaction *Transaction               `json:"transaction,omitempty"`
}

// Parse decodes a single Debezium envelope.
func Parse(raw []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("debezium: decode envelope: %w", err)
	}
	return &e, nil
}

func mapToValues(schema *core.NamedSchema, data map[string]json.RawMessage, set func(idx int, v core.Value) error) error {
	for name, raw := range data {
		idx := schema.ColumnIndex(name)
		if idx < 0 {
			return fmt.Errorf("debezium: table %q: %w: %q", schema.TableName(), core.ErrUnknownColumn, name)
		}
		v, err := cdc.JSONToValue(raw)
		if err != nil {
			return err
		}
		if err := set(idx, v); err != nil {
			return err
		}
	}
	return nil
}

// ToOperation builds the store operation e describes against schema. The
// source table name, when present, is checked against schema.
func (e *Envelope) ToOperation(schema *core.NamedSchema) (*core.Operation, []core.Value, error) {
	if e.Source.Table != "" && e.Source.Table != schema.TableName() {
		return nil, nil, fmt.Errorf("debezium: table mismatch: expected %q, got %q", schema.TableName(), e.Source.Table)
	}

	switch e.Op {
	case OpCreate, OpRead:
		if e.After == nil {
			return nil, nil, fmt.Errorf("debezium: missing after data for create operation")
		}
		op := core.NewInsert(schema, core.Changeset)
		if err := mapToValues(schema, e.After, op.Set); err != nil {
			return nil, nil, err
		}
		pk, err := cdc.PKFromNamed(schema, e.After)
		if err != nil {
			return nil, nil, err
		}
		return op, pk, nil

	case OpUpdate:
		if e.After == nil {
			return nil, nil, fmt.Errorf("debezium: missing after data for update operation")
		}
		pk, err := cdc.PKFromNamed(schema, e.After)
		if err != nil {
			return nil, nil, err
		}
		op := core.NewUpdate(schema, core.Changeset)
		if err := mapToValues(schema, e.After, op.SetNew); err != nil {
			return nil, nil, err
		}
		if e.Before != nil {
			if err := mapToValues(schema, e.Before, op.SetOld); err != nil {
				return nil, nil, err
			}
		}
		return op, pk, nil

	case OpDelete:
		if e.Before == nil {
			return nil, nil, fmt.Errorf("debezium: missing before data for delete operation")
		}
		op := core.NewChangesetDelete(schema)
		if err := mapToValues(schema, e.Before, op.Set); err != nil {
			return nil, nil, err
		}
		pk, err := cdc.PKFromNamed(schema, e.Before)
		if err != nil {
			return nil, nil, err
		}
		return op, pk, nil

	default:
		return nil, nil, fmt.Errorf("debezium: operation %q cannot be converted to a store operation", e.Op)
	}
}
