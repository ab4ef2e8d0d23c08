package core

import (
	"fmt"
)

// TableSchema is the capability set spec.md §9 asks for in place of a
// trait-polymorphic table type: just enough for the store, serializer and
// parser to do their job, with no assumption about where a concrete schema
// came from (parsed bytes, a TOML file, a live database, or hand-written
// Go).
type TableSchema interface {
	// TableName returns the table's name as it appears in the wire format.
	TableName() string
	// ColumnCount returns the number of columns, 0 < n <= 255.
	ColumnCount() int
	// PKOrdinal returns the 1-based primary-key position of column col
	// (0-indexed), or 0 if the column is not part of the primary key.
	PKOrdinal(col int) int
}

// PKColumnCount returns how many columns of s participate in the primary
// key.
func PKColumnCount(s TableSchema) int {
	n := 0
	for i := 0; i < s.ColumnCount(); i++ {
		if s.PKOrdinal(i) > 0 {
			n++
		}
	}
	return n
}

// WritePKOrdinals fills out (len(out) == s.ColumnCount()) with each
// column's PK ordinal byte, panicking if out has the wrong length — this
// is the one place spec.md §7 calls for a panic on a type-system-unchecked
// invariant breach rather than a returned error.
func WritePKOrdinals(s TableSchema, out []byte) {
	if len(out) != s.ColumnCount() {
		panic(fmt.Sprintf("core: write_pk_flags: out has length %d, want %d", len(out), s.ColumnCount()))
	}
	for i := range out {
		out[i] = byte(s.PKOrdinal(i))
	}
}

// ValidateSchema checks the structural invariant of spec.md §3: PK ordinals
// are a permutation of 1..=k with 0 in the remaining slots.
func ValidateSchema(s TableSchema) error {
	n := s.ColumnCount()
	if n <= 0 || n > 255 {
		return fmt.Errorf("core: table %q: column count %d out of range (0, 255]", s.TableName(), n)
	}
	seen := make(map[int]bool)
	maxOrd := 0
	for i := 0; i < n; i++ {
		ord := s.PKOrdinal(i)
		if ord == 0 {
			continue
		}
		if ord < 0 || ord > n {
			return fmt.Errorf("core: table %q: column %d has out-of-range PK ordinal %d", s.TableName(), i, ord)
		}
		if seen[ord] {
			return fmt.Errorf("core: table %q: PK ordinal %d used by more than one column", s.TableName(), ord)
		}
		seen[ord] = true
		if ord > maxOrd {
			maxOrd = ord
		}
	}
	if len(seen) != maxOrd {
		return fmt.Errorf("core: table %q: PK ordinals are not a contiguous 1..=%d permutation", s.TableName(), maxOrd)
	}
	return nil
}

// SimpleSchema is a compact, name-less-column TableSchema: exactly what the
// binary parser can reconstruct from a table header (table name, column
// count, PK ordinal bytes), with no column names attached.
type SimpleSchema struct {
	Name        string
	NumColumns  int
	PKOrdinals  []byte // len == NumColumns; 0 or 1-based PK position
}

// NewSimpleSchema builds a SimpleSchema, validating the PK-ordinal
// invariant of spec.md §3.
func NewSimpleSchema(name string, numColumns int, pkOrdinals []byte) (*SimpleSchema, error) {
	if len(pkOrdinals) != numColumns {
		return nil, fmt.Errorf("core: NewSimpleSchema(%q): pkOrdinals has length %d, want %d", name, len(pkOrdinals), numColumns)
	}
	cp := make([]byte, numColumns)
	copy(cp, pkOrdinals)
	s := &SimpleSchema{Name: name, NumColumns: numColumns, PKOrdinals: cp}
	if err := ValidateSchema(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SimpleSchema) TableName() string { return s.Name }
func (s *SimpleSchema) ColumnCount() int  { return s.NumColumns }
func (s *SimpleSchema) PKOrdinal(col int) int {
	if col < 0 || col >= len(s.PKOrdinals) {
		return 0
	}
	return int(s.PKOrdinals[col])
}

// NamedSchema is a TableSchema with column names attached, used by the SQL
// ingester and CDC shims to resolve column-name references to ordinals.
type NamedSchema struct {
	Name    string
	Columns []string // column names in row order
	PKOrds  []byte   // parallel to Columns
}

// NewNamedSchema builds a NamedSchema, validating column-name uniqueness
// and the PK-ordinal invariant.
func NewNamedSchema(name string, columns []string, pkOrdinals []byte) (*NamedSchema, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("core: NewNamedSchema(%q): %w", name, ErrEmptyColumnList)
	}
	if len(pkOrdinals) != len(columns) {
		return nil, fmt.Errorf("core: NewNamedSchema(%q): pkOrdinals has length %d, want %d", name, len(pkOrdinals), len(columns))
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c == "" {
			return nil, fmt.Errorf("core: NewNamedSchema(%q): empty column name", name)
		}
		if seen[c] {
			return nil, fmt.Errorf("core: NewNamedSchema(%q): column %q: %w", name, c, ErrDuplicateColumn)
		}
		seen[c] = true
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	ords := make([]byte, len(pkOrdinals))
	copy(ords, pkOrdinals)
	s := &NamedSchema{Name: name, Columns: cols, PKOrds: ords}
	if err := ValidateSchema(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *NamedSchema) TableName() string { return s.Name }
func (s *NamedSchema) ColumnCount() int  { return len(s.Columns) }
func (s *NamedSchema) PKOrdinal(col int) int {
	if col < 0 || col >= len(s.PKOrds) {
		return 0
	}
	return int(s.PKOrds[col])
}

// ColumnIndex returns the 0-based index of the named column, or -1 if the
// schema has no such column.
func (s *NamedSchema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// PrimaryKeyColumns returns the column names that make up the primary key,
// in PK order (ordinal 1 first).
func (s *NamedSchema) PrimaryKeyColumns() []string {
	n := PKColumnCount(s)
	out := make([]string, n)
	for i, ord := range s.PKOrds {
		if ord > 0 {
			out[ord-1] = s.Columns[i]
		}
	}
	return out
}

// ExtractPK pulls the primary-key value sequence out of a full row, taking
// for each PK ordinal 1..=k the value at the column whose ordinal equals
// it, per spec.md §3.
func ExtractPK(s TableSchema, row []Value) []Value {
	k := PKColumnCount(s)
	pk := make([]Value, k)
	for i := 0; i < s.ColumnCount(); i++ {
		if ord := s.PKOrdinal(i); ord > 0 {
			pk[ord-1] = row[i]
		}
	}
	return pk
}

// PKKey renders a PK value sequence into a comparable Go value suitable for
// use as a map key.
func PKKey(pk []Value) any {
	key := make([]any, len(pk))
	for i, v := range pk {
		key[i] = v.HashKey()
	}
	return fmt.Sprint(key)
}
