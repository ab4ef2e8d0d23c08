// Package schemafile reads a TOML file declaring the table schemas a
// sessiondiff run operates against — the programmatic schema registration
// spec.md §4.6 requires of the SQL ingester, and the schema source for the
// CDC shims and CLI when no live database is available to introspect.
package schemafile

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"sessiondiff/internal/core"
)

// document is the top-level TOML shape:
//
//	[[tables]]
//	name = "users"
//
//	  [[tables.columns]]
//	  name = "id"
//	  primary_key = 1
//
//	  [[tables.columns]]
//	  name = "email"
//	  primary_key = 0
type document struct {
	Tables []tomlTable `toml:"tables"`
}

type tomlTable struct {
	Name    string       `toml:"name"`
	Columns []tomlColumn `toml:"columns"`
}

type tomlColumn struct {
	Name string `toml:"name"`
	// PrimaryKey is 0 for a non-key column, or its 1-based position within
	// the table's primary key.
	PrimaryKey int `toml:"primary_key"`
}

// Parser reads sessiondiff TOML schema files.
type Parser struct{}

// NewParser returns a schema-file parser.
func NewParser() *Parser { return &Parser{} }

// ParseFile opens path and parses it as a schema file.
func (p *Parser) ParseFile(path string) ([]*core.NamedSchema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("schemafile: open %q: %w", path, err)
	}
	defer f.Close()
	return p.Parse(f)
}

// Parse reads TOML content from r and returns one core.NamedSchema per
// declared table, in declaration order.
func (p *Parser) Parse(r io.Reader) ([]*core.NamedSchema, error) {
	var doc document
	if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("schemafile: decode: %w", err)
	}

	seen := make(map[string]bool, len(doc.Tables))
	out := make([]*core.NamedSchema, 0, len(doc.Tables))
	for _, t := range doc.Tables {
		if seen[t.Name] {
			return nil, fmt.Errorf("schemafile: table %q declared more than once", t.Name)
		}
		seen[t.Name] = true

		names := make([]string, len(t.Columns))
		ords := make([]byte, len(t.Columns))
		for i, c := range t.Columns {
			if c.PrimaryKey < 0 || c.PrimaryKey > 255 {
				return nil, fmt.Errorf("schemafile: table %q column %q: primary_key %d out of range", t.Name, c.Name, c.PrimaryKey)
			}
			names[i] = c.Name
			ords[i] = byte(c.PrimaryKey)
		}

		schema, err := core.NewNamedSchema(t.Name, names, ords)
		if err != nil {
			return nil, fmt.Errorf("schemafile: table %q: %w", t.Name, err)
		}
		out = append(out, schema)
	}
	return out, nil
}
