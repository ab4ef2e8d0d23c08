// Package output renders a parsed diff-set for humans, for tooling
// (JSON), and as executable SQL.
package output

import (
	"fmt"
	"strings"

	"sessiondiff/internal/core"
	"sessiondiff/internal/literal"
)

// Human renders store as one line per operation, grouped by table in the
// store's insertion order, with a trailing counts summary.
func Human(store *core.DiffSet) string {
	var b strings.Builder
	var inserts, updates, deletes int

	for _, schema := range store.Tables() {
		ops := store.Operations(schema.TableName())
		fmt.Fprintf(&b, "%s (%d)\n", schema.TableName(), len(ops))
		for _, entry := range ops {
			fmt.Fprintf(&b, "  %s\n", humanLine(schema, entry.PK, entry.Op))
			switch entry.Op.Kind {
			case core.KindInsert:
				inserts++
			case core.KindUpdate:
				updates++
			case core.KindDelete:
				deletes++
			}
		}
	}

	fmt.Fprintf(&b, "%d insert(s), %d update(s), %d delete(s)\n", inserts, updates, deletes)
	return b.String()
}

func humanLine(schema core.TableSchema, pk []core.Value, op *core.Operation) string {
	switch op.Kind {
	case core.KindInsert:
		return fmt.Sprintf("INSERT %s -> %s", renderPK(pk), renderValues(op.Values))
	case core.KindDelete:
		if len(op.Values) > 0 {
			return fmt.Sprintf("DELETE %s (row: %s)", renderPK(pk), renderValues(op.Values))
		}
		return fmt.Sprintf("DELETE %s", renderPK(pk))
	case core.KindUpdate:
		return fmt.Sprintf("UPDATE %s SET %s", renderPK(pk), renderPairs(schema, op.Pairs))
	default:
		return fmt.Sprintf("? %s", renderPK(pk))
	}
}

func renderPK(pk []core.Value) string {
	return renderValues(pk)
}

func renderValues(values []core.Value) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = literal.Render(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func renderPairs(schema core.TableSchema, pairs []core.UpdatePair) string {
	var parts []string
	for i, p := range pairs {
		if !p.NewDefined {
			continue
		}
		old := "?"
		if p.OldDefined {
			old = literal.Render(p.Old)
		}
		parts = append(parts, fmt.Sprintf("%s: %s -> %s", columnLabel(schema, i), old, literal.Render(p.New)))
	}
	return strings.Join(parts, ", ")
}

func columnLabel(schema core.TableSchema, col int) string {
	if named, ok := schema.(*core.NamedSchema); ok && col >= 0 && col < len(named.Columns) {
		return named.Columns[col]
	}
	return fmt.Sprintf("col%d", col)
}
