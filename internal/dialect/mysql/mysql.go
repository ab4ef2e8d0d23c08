// Package mysql implements the sessiondiff dialect.Dialect for MySQL.
package mysql

import (
	"fmt"
	"strings"

	"sessiondiff/internal/core"
	"sessiondiff/internal/dialect"
	"sessiondiff/internal/literal"
)

func init() {
	dialect.RegisterDialect("mysql", func() dialect.Dialect { return &Dialect{} })
}

// Dialect generates MySQL DML from store operations.
type Dialect struct{}

// Name returns "mysql".
func (d *Dialect) Name() string { return "mysql" }

// QuoteIdentifier backtick-quotes name, doubling any embedded backtick.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// InsertSQL renders op as an INSERT ... VALUES (...) statement.
func (d *Dialect) InsertSQL(schema *core.NamedSchema, op *core.Operation) (string, error) {
	if op.Kind != core.KindInsert {
		return "", fmt.Errorf("mysql: InsertSQL requires an Insert operation, got %s", op.Kind)
	}
	cols := make([]string, len(schema.Columns))
	vals := make([]string, len(schema.Columns))
	for i, name := range schema.Columns {
		cols[i] = QuoteIdentifier(name)
		vals[i] = literal.Render(op.Values[i])
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s);",
		QuoteIdentifier(schema.TableName()), strings.Join(cols, ", "), strings.Join(vals, ", ")), nil
}

// UpdateSQL renders op as an UPDATE statement that sets every column with
// a defined new value and matches pk in its WHERE clause.
func (d *Dialect) UpdateSQL(schema *core.NamedSchema, pk []core.Value, op *core.Operation) (string, error) {
	if op.Kind != core.KindUpdate {
		return "", fmt.Errorf("mysql: UpdateSQL requires an Update operation, got %s", op.Kind)
	}
	var sets []string
	for i, name := range schema.Columns {
		if !op.Pairs[i].NewDefined {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = %s", QuoteIdentifier(name), literal.Render(op.Pairs[i].New)))
	}
	if len(sets) == 0 {
		return "", fmt.Errorf("mysql: UpdateSQL: operation changes no columns")
	}
	where, err := pkWhere(schema, pk)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s;",
		QuoteIdentifier(schema.TableName()), strings.Join(sets, ", "), where), nil
}

// DeleteSQL renders op as a DELETE statement. A changeset Delete matches
// every column of the old row; a patchset Delete matches the primary key
// only.
func (d *Dialect) DeleteSQL(schema *core.NamedSchema, pk []core.Value, op *core.Operation) (string, error) {
	if op.Kind != core.KindDelete {
		return "", fmt.Errorf("mysql: DeleteSQL requires a Delete operation, got %s", op.Kind)
	}

	var where string
	if op.Format == core.Changeset {
		conds := make([]string, len(schema.Columns))
		for i, name := range schema.Columns {
			conds[i] = fmt.Sprintf("%s = %s", QuoteIdentifier(name), literal.Render(op.Values[i]))
		}
		where = strings.Join(conds, " AND ")
	} else {
		w, err := pkWhere(schema, pk)
		if err != nil {
			return "", err
		}
		where = w
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s;", QuoteIdentifier(schema.TableName()), where), nil
}

func pkWhere(schema *core.NamedSchema, pk []core.Value) (string, error) {
	names := schema.PrimaryKeyColumns()
	if len(names) != len(pk) {
		return "", fmt.Errorf("mysql: table %q: pk has %d values, schema has %d key columns", schema.TableName(), len(pk), len(names))
	}
	conds := make([]string, len(names))
	for i, name := range names {
		conds[i] = fmt.Sprintf("%s = %s", QuoteIdentifier(name), literal.Render(pk[i]))
	}
	return strings.Join(conds, " AND "), nil
}
