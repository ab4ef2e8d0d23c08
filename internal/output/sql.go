package output

import (
	"sessiondiff/internal/core"
	"sessiondiff/internal/dialect"
	"sessiondiff/internal/migration"
)

// SQL renders store's forward statements in d's dialect.
func SQL(store *core.DiffSet, d dialect.Dialect) ([]string, error) {
	return migration.New(store, d).ForwardStatements()
}
