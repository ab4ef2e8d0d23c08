// Package dialect provides a unified interface for SQL generation back
// ends, so internal/migration and internal/apply never need to know which
// database they are targeting.
package dialect

import (
	"fmt"
	"sync"

	"sessiondiff/internal/core"
)

// Dialect turns a single store operation into the SQL statement that
// applies it.
type Dialect interface {
	// Name identifies the dialect, e.g. "mysql". Also the key under
	// which database/sql drivers are registered for internal/apply.
	Name() string

	// InsertSQL renders op (Kind == core.KindInsert) as an INSERT
	// statement against schema.
	InsertSQL(schema *core.NamedSchema, op *core.Operation) (string, error)

	// UpdateSQL renders op (Kind == core.KindUpdate) as an UPDATE
	// statement against schema, keyed on pk.
	UpdateSQL(schema *core.NamedSchema, pk []core.Value, op *core.Operation) (string, error)

	// DeleteSQL renders op (Kind == core.KindDelete) as a DELETE
	// statement against schema, keyed on pk. A changeset Delete's WHERE
	// clause matches every column of the old row; a patchset Delete's
	// matches the PK only.
	DeleteSQL(schema *core.NamedSchema, pk []core.Value, op *core.Operation) (string, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func() Dialect{}
)

// RegisterDialect adds a dialect constructor to the registry, normally
// called from a dialect subpackage's init().
func RegisterDialect(name string, ctor func() Dialect) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = ctor
}

// Get returns a fresh Dialect instance for name.
func Get(name string) (Dialect, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("dialect: %q is not registered", name)
	}
	return ctor(), nil
}
