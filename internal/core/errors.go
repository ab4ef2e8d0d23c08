package core

import "errors"

// Construction error sentinels (spec.md §7). Wrap with fmt.Errorf("...: %w",
// ErrX) to attach positional/symbolic context; callers match with
// errors.Is.
var (
	// ErrConstruction is the parent sentinel for all builder-time misuse
	// that isn't one of the more specific errors below.
	ErrConstruction = errors.New("construction error")

	// ErrColumnIndexOutOfBounds: Set/SetNew/SetOld called with index >=
	// column count.
	ErrColumnIndexOutOfBounds = errors.New("column index out of bounds")

	// ErrUndefinedValueProvided: Insert.Set (or changeset Delete.Set)
	// given Undefined.
	ErrUndefinedValueProvided = errors.New("undefined value provided")

	// ErrUnknownTable: a name not present in the registered schema set.
	ErrUnknownTable = errors.New("unknown table")

	// ErrUnknownColumn: a name not present in a table's column list.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrMissingWhere: an UPDATE/DELETE lacked a WHERE clause.
	ErrMissingWhere = errors.New("missing WHERE clause")

	// ErrWhereNonPKColumn: a WHERE clause referenced a non-PK column.
	ErrWhereNonPKColumn = errors.New("WHERE clause references a non-primary-key column")

	// ErrDuplicateColumn: a schema definition repeated a column name.
	ErrDuplicateColumn = errors.New("duplicate column")

	// ErrEmptyColumnList: a schema definition had no columns.
	ErrEmptyColumnList = errors.New("empty column list")
)
