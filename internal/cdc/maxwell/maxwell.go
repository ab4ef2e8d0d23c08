// Package maxwell converts Maxwell (https://maxwells-daemon.io/) MySQL
// binlog CDC messages into sessiondiff changeset operations.
package maxwell

import (
	"encoding/json"
	"fmt"

	"sessiondiff/internal/cdc"
	"sessiondiff/internal/core"
)

// OpType is a Maxwell message's operation type.
type OpType string

const (
	OpInsert OpType = "insert"
	OpUpdate OpType = "update"
	OpDelete OpType = "delete"
)

// Message is a single Maxwell CDC event.
type Message struct {
	Database           string                     `json:"database"`
	Table              string                     `json:"table"`
	OpType             OpType                     `json:"type"`
	TS                 *int64                     `json:"ts,omitempty"`
	XID                *int64                     `json:"xid,omitempty"`
	Commit             *bool                      `json:"commit,omitempty"`
	Position           *string                    `json:"position,omitempty"`
	ServerID           *int64                     `json:"server_id,omitempty"`
	ThreadID           *int64                     `json:"thread_id,omitempty"`
	PrimaryKey         []json.RawMessage          `json:"primary_key,omitempty"`
	PrimaryKeyColumns  []string                   `json:"primary_key_columns,omitempty"`
	Data               map[string]json.RawMessage `json:"data"`
	Old                map[string]json.RawMessage `json:"old,omitempty"`
}

// Parse decodes a single Maxwell JSON message.
func Parse(raw []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("maxwell: decode message: %w", err)
	}
	return &m, nil
}

func mapToValues(schema *core.NamedSchema, data map[string]json.RawMessage, set func(idx int, v core.Value) error) error {
	for name, raw := range data {
		idx := schema.ColumnIndex(name)
		if idx < 0 {
			return fmt.Errorf("maxwell: table %q: %w: %q", schema.TableName(), core.ErrUnknownColumn, name)
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

// pk resolves the row identity: Maxwell's explicit primary_key/
// primary_key_columns pair when present, otherwise the PK columns read
// out of data (valid for Insert/Delete and for Update when the key itself
// did not change).
func (m *Message) pk(schema *core.NamedSchema) ([]core.Value, error) {
	if len(m.PrimaryKeyColumns) > 0 {
		named := make(map[string]json.RawMessage, len(m.PrimaryKeyColumns))
		for i, name := range m.PrimaryKeyColumns {
			if i >= len(m.PrimaryKey) {
				return nil, fmt.Errorf("maxwell: primary_key has fewer entries than primary_key_columns")
			}
			named[name] = m.PrimaryKey[i]
		}
		return cdc.PKFromNamed(schema, named)
	}
	return cdc.PKFromNamed(schema, m.Data)
}

// ToOperation builds the store operation m describes against schema,
// failing if the message's table name does not match.
func (m *Message) ToOperation(schema *core.NamedSchema) (*core.Operation, []core.Value, error) {
	if m.Table != schema.TableName() {
		return nil, nil, fmt.Errorf("maxwell: table mismatch: expected %q, got %q", schema.TableName(), m.Table)
	}

	switch m.OpType {
	case OpInsert:
		if m.Data == nil {
			return nil, nil, fmt.Errorf("maxwell: missing data for insert operation")
		}
		op := core.NewInsert(schema, core.Changeset)
		if err := mapToValues(schema, m.Data, op.Set); err != nil {
			return nil, nil, err
		}
		pk, err := m.pk(schema)
		if err != nil {
			return nil, nil, err
		}
		return op, pk, nil

	case OpUpdate:
		if m.Data == nil {
			return nil, nil, fmt.Errorf("maxwell: missing data for update operation")
		}
		pk, err := m.pk(schema)
		if err != nil {
			return nil, nil, err
		}
		op := core.NewUpdate(schema, core.Changeset)
		if err := mapToValues(schema, m.Data, op.SetNew); err != nil {
			return nil, nil, err
		}
		if m.Old != nil {
			if err := mapToValues(schema, m.Old, op.SetOld); err != nil {
				return nil, nil, err
			}
		}
		return op, pk, nil

	case OpDelete:
		if m.Data == nil {
			return nil, nil, fmt.Errorf("maxwell: missing data for delete operation")
		}
		op := core.NewChangesetDelete(schema)
		if err := mapToValues(schema, m.Data, op.Set); err != nil {
			return nil, nil, err
		}
		pk, err := m.pk(schema)
		if err != nil {
			return nil, nil, err
		}
		return op, pk, nil

	default:
		return nil, nil, fmt.Errorf("maxwell: operation %q cannot be converted to a store operation", m.OpType)
	}
}
