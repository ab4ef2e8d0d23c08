// Package wal2json converts wal2json (https://github.com/eulerto/wal2json)
// logical-replication messages — both the transaction-level v1 format and
// the per-tuple v2 format — into sessiondiff changeset operations.
package wal2json

import (
	"encoding/json"
	"fmt"

	"sessiondiff/internal/cdc"
	"sessiondiff/internal/core"
)

// Action is a wal2json v2 action tag.
type Action string

const (
	ActionInsert Action = "I"
	ActionUpdate Action = "U"
	ActionDelete Action = "D"
)

// Column is one column value as wal2json reports it.
type Column struct {
	Name  string          `json:"name"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MessageV2 is a single wal2json v2 change, one JSON object per line.
type MessageV2 struct {
	Action   Action   `json:"action"`
	Schema   string   `json:"schema,omitempty"`
	Table    string   `json:"table,omitempty"`
	Columns  []Column `json:"columns,omitempty"`
	Identity []Column `json:"identity,omitempty"`
}

// OldKeys identifies the row a v1 UPDATE/DELETE change applies to.
type OldKeys struct {
	KeyNames  []string          `json:"keynames"`
	KeyTypes  []string          `json:"keytypes"`
	KeyValues []json.RawMessage `json:"keyvalues"`
}

// ChangeV1 is one entry in a wal2json v1 transaction's change array.
type ChangeV1 struct {
	Kind         string            `json:"kind"`
	Schema       string            `json:"schema"`
	Table        string            `json:"table"`
	ColumnNames  []string          `json:"columnnames,omitempty"`
	ColumnTypes  []string          `json:"columntypes,omitempty"`
	ColumnValues []json.RawMessage `json:"columnvalues,omitempty"`
	OldKeys      *OldKeys          `json:"oldkeys,omitempty"`
}

// TransactionV1 is a wal2json v1 transaction: every change it recorded.
type TransactionV1 struct {
	Change []ChangeV1 `json:"change"`
}

// ParseV2 decodes a single wal2json v2 JSON line.
func ParseV2(line []byte) (*MessageV2, error) {
	var msg MessageV2
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, fmt.Errorf("wal2json: decode v2 message: %w", err)
	}
	return &msg, nil
}

// ParseV1 decodes a wal2json v1 transaction document.
func ParseV1(data []byte) (*TransactionV1, error) {
	var tx TransactionV1
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("wal2json: decode v1 transaction: %w", err)
	}
	return &tx, nil
}

func columnsToValues(schema *core.NamedSchema, cols []Column, set func(idx int, v core.Value) error) error {
	for _, c := range cols {
		idx := schema.ColumnIndex(c.Name)
		if idx < 0 {
			return fmt.Errorf("wal2json: table %q: %w: %q", schema.TableName(), core.ErrUnknownColumn, c.Name)
		}
		v, err := cdc.JSONToValue(c.Value)
		if err != nil {
			return err
		}
		if err := set(idx, v); err != nil {
			return err
		}
	}
	return nil
}

func pkFromColumns(schema *core.NamedSchema, cols []Column) ([]core.Value, error) {
	named := make(map[string]json.RawMessage, len(cols))
	for _, c := range cols {
		named[c.Name] = c.Value
	}
	return cdc.PKFromNamed(schema, named)
}

// ToOperation builds the store operation msg describes against schema.
// Insert and Update carry msg.Columns as the new row; Update and Delete
// recover the row's identity (and, for Delete, its full prior row when the
// source's replica identity supplies one) from msg.Identity.
func (msg *MessageV2) ToOperation(schema *core.NamedSchema) (*core.Operation, []core.Value, error) {
	switch msg.Action {
	case ActionInsert:
		op := core.NewInsert(schema, core.Changeset)
		if err := columnsToValues(schema, msg.Columns, op.Set); err != nil {
			return nil, nil, err
		}
		return op, core.ExtractPK(schema, op.Values), nil

	case ActionUpdate:
		pk, err := pkFromColumns(schema, msg.Identity)
		if err != nil {
			return nil, nil, err
		}
		op := core.NewUpdate(schema, core.Changeset)
		if err := columnsToValues(schema, msg.Identity, op.SetOld); err != nil {
			return nil, nil, err
		}
		if err := columnsToValues(schema, msg.Columns, op.SetNew); err != nil {
			return nil, nil, err
		}
		return op, pk, nil

	case ActionDelete:
		pk, err := pkFromColumns(schema, msg.Identity)
		if err != nil {
			return nil, nil, err
		}
		op := core.NewChangesetDelete(schema)
		if err := columnsToValues(schema, msg.Identity, op.Set); err != nil {
			return nil, nil, err
		}
		return op, pk, nil

	default:
		return nil, nil, fmt.Errorf("wal2json: action %q does not produce a store operation", msg.Action)
	}
}

// ToOperation builds the store operation a v1 change describes against
// schema, failing if the change's table name does not match.
func (c *ChangeV1) ToOperation(schema *core.NamedSchema) (*core.Operation, []core.Value, error) {
	if c.Table != schema.TableName() {
		return nil, nil, fmt.Errorf("wal2json: table mismatch: expected %q, got %q", schema.TableName(), c.Table)
	}

	switch c.Kind {
	case "insert":
		op := core.NewInsert(schema, core.Changeset)
		if err := namedColumnsToValues(schema, c.ColumnNames, c.ColumnValues, op.Set); err != nil {
			return nil, nil, err
		}
		return op, core.ExtractPK(schema, op.Values), nil

	case "update":
		op := core.NewUpdate(schema, core.Changeset)
		var pk []core.Value
		if c.OldKeys != nil {
			if err := namedColumnsToValues(schema, c.OldKeys.KeyNames, c.OldKeys.KeyValues, op.SetOld); err != nil {
				return nil, nil, err
			}
			p, err := cdc.PKFromNamed(schema, rawMap(c.OldKeys.KeyNames, c.OldKeys.KeyValues))
			if err != nil {
				return nil, nil, err
			}
			pk = p
		}
		if err := namedColumnsToValues(schema, c.ColumnNames, c.ColumnValues, op.SetNew); err != nil {
			return nil, nil, err
		}
		if pk == nil {
			pk = core.ExtractPK(schema, newValuesOnly(schema, c.ColumnNames, op))
		}
		return op, pk, nil

	case "delete":
		op := core.NewChangesetDelete(schema)
		names, values := c.ColumnNames, c.ColumnValues
		if c.OldKeys != nil {
			names, values = c.OldKeys.KeyNames, c.OldKeys.KeyValues
		}
		if err := namedColumnsToValues(schema, names, values, op.Set); err != nil {
			return nil, nil, err
		}
		pk, err := cdc.PKFromNamed(schema, rawMap(names, values))
		if err != nil {
			return nil, nil, err
		}
		return op, pk, nil

	default:
		return nil, nil, fmt.Errorf("wal2json: change kind %q does not produce a store operation", c.Kind)
	}
}

func namedColumnsToValues(schema *core.NamedSchema, names []string, values []json.RawMessage, set func(idx int, v core.Value) error) error {
	for i, name := range names {
		idx := schema.ColumnIndex(name)
		if idx < 0 {
			return fmt.Errorf("wal2json: table %q: %w: %q", schema.TableName(), core.ErrUnknownColumn, name)
		}
		v, err := cdc.JSONToValue(values[i])
		if err != nil {
			return err
		}
		if err := set(idx, v); err != nil {
			return err
		}
	}
	return nil
}

func rawMap(names []string, values []json.RawMessage) map[string]json.RawMessage {
	m := make(map[string]json.RawMessage, len(names))
	for i, n := range names {
		m[n] = values[i]
	}
	return m
}

// newValuesOnly reads back the New side of an in-progress Update into a
// full row so ExtractPK can run when no oldkeys block was present (the PK
// itself cannot have changed in that case, so the new row's PK is
// authoritative).
func newValuesOnly(schema *core.NamedSchema, names []string, op *core.Operation) []core.Value {
	row := make([]core.Value, schema.ColumnCount())
	for i := range row {
		row[i] = op.Pairs[i].New
	}
	return row
}
