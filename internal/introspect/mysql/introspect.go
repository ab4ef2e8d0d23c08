// Package mysql builds a core.TableSchema for a MySQL table by reading its
// column order and primary-key layout out of INFORMATION_SCHEMA, so a
// caller can build a changeset against a table it never declared a Go or
// TOML schema for.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"sessiondiff/internal/core"
)

// TableSchema reads table's column names (in ordinal position) and
// primary-key ordinals from INFORMATION_SCHEMA and returns a
// core.NamedSchema for it.
func TableSchema(ctx context.Context, db *sql.DB, schemaName, tableName string) (*core.NamedSchema, error) {
	columns, err := columnOrder(ctx, db, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("introspect/mysql: table %q.%q has no columns or does not exist", schemaName, tableName)
	}

	pkOrdinals, err := primaryKeyOrdinals(ctx, db, schemaName, tableName, columns)
	if err != nil {
		return nil, err
	}

	schema, err := core.NewNamedSchema(tableName, columns, pkOrdinals)
	if err != nil {
		return nil, fmt.Errorf("introspect/mysql: table %q.%q: %w", schemaName, tableName, err)
	}
	return schema, nil
}

func columnOrder(ctx context.Context, db *sql.DB, schemaName, tableName string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT COLUMN_NAME
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("introspect/mysql: query columns: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("introspect/mysql: scan column name: %w", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("introspect/mysql: iterate columns: %w", err)
	}
	return columns, nil
}

func primaryKeyOrdinals(ctx context.Context, db *sql.DB, schemaName, tableName string, columns []string) ([]byte, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT COLUMN_NAME, ORDINAL_POSITION
		FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND CONSTRAINT_NAME = 'PRIMARY'
		ORDER BY ORDINAL_POSITION`, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("introspect/mysql: query primary key: %w", err)
	}
	defer rows.Close()

	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}

	ordinals := make([]byte, len(columns))
	for rows.Next() {
		var name string
		var ordinal int
		if err := rows.Scan(&name, &ordinal); err != nil {
			return nil, fmt.Errorf("introspect/mysql: scan key column usage: %w", err)
		}
		i, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("introspect/mysql: primary key column %q not found in column list", name)
		}
		ordinals[i] = byte(ordinal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("introspect/mysql: iterate primary key: %w", err)
	}
	return ordinals, nil
}
