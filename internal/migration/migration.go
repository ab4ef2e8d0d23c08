// Package migration bridges a sessiondiff store to executable SQL: the
// forward statements a dialect generates from its operations, and, for a
// changeset-tagged store, the rollback statements generated by inverting
// it first.
package migration

import (
	"fmt"

	"sessiondiff/internal/core"
	"sessiondiff/internal/dialect"
)

// Migration wraps a parsed diff-set with the dialect used to render it.
type Migration struct {
	Store   *core.DiffSet
	Dialect dialect.Dialect
}

// New builds a Migration for store, rendered with d.
func New(store *core.DiffSet, d dialect.Dialect) *Migration {
	return &Migration{Store: store, Dialect: d}
}

// ForwardStatements renders one DML statement per live operation in the
// store, in table then PK first-seen order.
func (m *Migration) ForwardStatements() ([]string, error) {
	return statementsFor(m.Store, m.Dialect)
}

// RollbackStatements inverts the store and renders the result, undoing
// every forward statement in reverse semantic effect (not necessarily
// reverse order: the store preserves each row's original position).
// Only valid for a changeset-tagged store; for any other store it returns
// the error core.Invert reports.
func (m *Migration) RollbackStatements() ([]string, error) {
	inverted, err := core.Invert(m.Store)
	if err != nil {
		return nil, fmt.Errorf("migration: rollback: %w", err)
	}
	return statementsFor(inverted, m.Dialect)
}

func statementsFor(store *core.DiffSet, d dialect.Dialect) ([]string, error) {
	var out []string
	for _, schema := range store.Tables() {
		named, ok := schema.(*core.NamedSchema)
		if !ok {
			return nil, fmt.Errorf("migration: table %q: SQL generation requires a named schema", schema.TableName())
		}
		for _, entry := range store.Operations(named.TableName()) {
			stmt, err := renderOne(d, named, entry.PK, entry.Op)
			if err != nil {
				return nil, err
			}
			out = append(out, stmt)
		}
	}
	return out, nil
}

func renderOne(d dialect.Dialect, schema *core.NamedSchema, pk []core.Value, op *core.Operation) (string, error) {
	switch op.Kind {
	case core.KindInsert:
		return d.InsertSQL(schema, op)
	case core.KindUpdate:
		return d.UpdateSQL(schema, pk, op)
	case core.KindDelete:
		return d.DeleteSQL(schema, pk, op)
	default:
		return "", fmt.Errorf("migration: unknown operation kind %s", op.Kind)
	}
}
