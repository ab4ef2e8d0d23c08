// Package pgwalstream converts pg_walstream
// (https://github.com/isdaniel/pg-walstream) PostgreSQL logical-replication
// events into sessiondiff changeset operations.
package pgwalstream

import (
	"encoding/json"
	"fmt"

	"sessiondiff/internal/cdc"
	"sessiondiff/internal/core"
)

// EventKind is a pg_walstream event's variant tag.
type EventKind string

const (
	EventInsert EventKind = "insert"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
)

// ReplicaIdentity mirrors PostgreSQL's REPLICA IDENTITY setting, which
// determines how much of the old row an Update/Delete event carries.
type ReplicaIdentity string

const (
	ReplicaDefault ReplicaIdentity = "default"
	ReplicaFull    ReplicaIdentity = "full"
	ReplicaIndex   ReplicaIdentity = "index"
	ReplicaNothing ReplicaIdentity = "nothing"
)

// Event is a single pg_walstream logical-replication change. Only the
// fields relevant to Kind are populated.
type Event struct {
	Kind            EventKind                  `json:"kind"`
	Schema          string                     `json:"schema"`
	Table           string                     `json:"table"`
	RelationOID     uint32                     `json:"relation_oid"`
	Data            map[string]json.RawMessage `json:"data,omitempty"`
	OldData         map[string]json.RawMessage `json:"old_data,omitempty"`
	NewData         map[string]json.RawMessage `json:"new_data,omitempty"`
	ReplicaIdentity ReplicaIdentity            `json:"replica_identity,omitempty"`
	KeyColumns      []string                   `json:"key_columns,omitempty"`
}

// ChangeEvent wraps an Event with its WAL log sequence number.
type ChangeEvent struct {
	EventType Event  `json:"event_type"`
	LSN       uint64 `json:"lsn"`
}

// Parse decodes a single pg_walstream event.
func Parse(raw []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("pgwalstream: decode event: %w", err)
	}
	return &e, nil
}

func mapToValues(schema *core.NamedSchema, data map[string]json.RawMessage, set func(idx int, v core.Value) error) error {
	for name, raw := range data {
		idx := schema.ColumnIndex(name)
		if idx < 0 {
			return fmt.Errorf("pgwalstream: table %q: %w: %q", schema.TableName(), core.ErrUnknownColumn, name)
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

func checkTable(e *Event, schema *core.NamedSchema) error {
	if e.Table != schema.TableName() {
		return fmt.Errorf("pgwalstream: table mismatch: expected %q, got %q", schema.TableName(), e.Table)
	}
	return nil
}

// ToOperation converts e into a changeset operation against schema. For an
// Update whose source did not capture old_data (REPLICA IDENTITY NOTHING
// or a narrow index), the resulting Update's Old slots are left Undefined
// for the uncovered columns.
func (e *Event) ToOperation(schema *core.NamedSchema) (*core.Operation, []core.Value, error) {
	if err := checkTable(e, schema); err != nil {
		return nil, nil, err
	}

	switch e.Kind {
	case EventInsert:
		op := core.NewInsert(schema, core.Changeset)
		if err := mapToValues(schema, e.Data, op.Set); err != nil {
			return nil, nil, err
		}
		pk, err := cdc.PKFromNamed(schema, e.Data)
		if err != nil {
			return nil, nil, err
		}
		return op, pk, nil

	case EventUpdate:
		op := core.NewUpdate(schema, core.Changeset)
		if err := mapToValues(schema, e.NewData, op.SetNew); err != nil {
			return nil, nil, err
		}
		if e.OldData != nil {
			if err := mapToValues(schema, e.OldData, op.SetOld); err != nil {
				return nil, nil, err
			}
		}
		pk, err := e.pk(schema)
		if err != nil {
			return nil, nil, err
		}
		return op, pk, nil

	case EventDelete:
		if e.OldData == nil {
			return nil, nil, fmt.Errorf("pgwalstream: missing old_data for delete event")
		}
		op := core.NewChangesetDelete(schema)
		if err := mapToValues(schema, e.OldData, op.Set); err != nil {
			return nil, nil, err
		}
		pk, err := e.pk(schema)
		if err != nil {
			return nil, nil, err
		}
		return op, pk, nil

	default:
		return nil, nil, fmt.Errorf("pgwalstream: event kind %q cannot be converted to a store operation", e.Kind)
	}
}

// ToPatchsetDelete converts a Delete event into a patchset Delete, carrying
// only the primary key recovered via KeyColumns/OldData — mirroring the
// source's narrower PatchDelete conversion for sinks that don't need full
// row fidelity.
func (e *Event) ToPatchsetDelete(schema *core.NamedSchema) (*core.Operation, []core.Value, error) {
	if err := checkTable(e, schema); err != nil {
		return nil, nil, err
	}
	if e.Kind != EventDelete {
		return nil, nil, fmt.Errorf("pgwalstream: event kind %q is not a Delete", e.Kind)
	}
	if e.OldData == nil {
		return nil, nil, fmt.Errorf("pgwalstream: missing old_data for delete event")
	}

	k := core.PKColumnCount(schema)
	pk := make([]core.Value, k)
	filled := make([]bool, k)
	for _, name := range e.KeyColumns {
		idx := schema.ColumnIndex(name)
		if idx < 0 {
			return nil, nil, fmt.Errorf("pgwalstream: table %q: %w: %q", schema.TableName(), core.ErrUnknownColumn, name)
		}
		ord := schema.PKOrdinal(idx)
		if ord == 0 {
			continue
		}
		raw, ok := e.OldData[name]
		if !ok {
			return nil, nil, fmt.Errorf("pgwalstream: old_data missing key column %q", name)
		}
		v, err := cdc.JSONToValue(raw)
		if err != nil {
			return nil, nil, err
		}
		pk[ord-1] = v
		filled[ord-1] = true
	}
	for _, f := range filled {
		if !f {
			return nil, nil, fmt.Errorf("pgwalstream: table %q: key_columns do not cover every primary-key column", schema.TableName())
		}
	}
	return core.NewPatchsetDelete(), pk, nil
}

// pk resolves row identity for Update/Delete via KeyColumns against
// whichever of OldData/NewData covers them, falling back to NewData (or
// OldData for a Delete, which has no new row) when KeyColumns is empty
// (full replica identity with an unlisted key set).
func (e *Event) pk(schema *core.NamedSchema) ([]core.Value, error) {
	if len(e.KeyColumns) == 0 {
		if e.NewData == nil {
			return cdc.PKFromNamed(schema, e.OldData)
		}
		return cdc.PKFromNamed(schema, e.NewData)
	}
	named := make(map[string]json.RawMessage, len(e.KeyColumns))
	for _, name := range e.KeyColumns {
		if raw, ok := e.OldData[name]; ok {
			named[name] = raw
			continue
		}
		if raw, ok := e.NewData[name]; ok {
			named[name] = raw
		}
	}
	return cdc.PKFromNamed(schema, named)
}
