package core

import "fmt"

// Invert returns a new changeset store whose application undoes store's
// application, per spec.md §4.2/§6. Only changeset-format stores are
// invertible; patchsets discard the old row data reverse needs.
//
// The result preserves store's table order and each table's row order
// (reverse involution then holds up to the ordering-preserving permutation
// clause of spec.md §8 property 7 — here it holds exactly, with no
// permutation at all).
func Invert(store *DiffSet) (*DiffSet, error) {
	if store.format != Changeset {
		return nil, fmt.Errorf("core: Invert: only changeset stores are invertible, got %s", store.format)
	}

	out := NewDiffSet(Changeset)
	for _, schema := range store.order {
		te := store.tables[schema.TableName()]
		outTE := &tableEntries{schema: schema, index: make(map[any]*row)}
		out.tables[schema.TableName()] = outTE
		out.order = append(out.order, schema)

		for _, key := range te.order {
			r := te.index[key]
			if r.op == nil {
				outTE.order = append(outTE.order, key)
				outTE.index[key] = &row{pk: r.pk, op: nil, key: key}
				continue
			}
			reversed := r.op.Reverse()
			newPK := reversedPK(schema, r, reversed)
			outTE.order = append(outTE.order, key)
			outTE.index[key] = &row{pk: newPK, op: reversed, key: key}
		}
	}
	return out, nil
}

// reversedPK picks the PK to key the inverted row by. An Insert's reverse
// is a Delete of the same row, a Delete's reverse is an Insert of the same
// row, and an Update's reverse keeps the same (unchanged) PK columns
// unless the update itself changed the PK — in which case the row must be
// re-keyed by the pre-image PK so a later Add against the inverted store
// still lands on the same logical row.
func reversedPK(schema TableSchema, original *row, reversed *Operation) []Value {
	if reversed.Kind != KindUpdate {
		return original.pk
	}
	pk := make([]Value, PKColumnCount(schema))
	for i := 0; i < schema.ColumnCount(); i++ {
		if ord := schema.PKOrdinal(i); ord > 0 {
			pk[ord-1] = reversed.Pairs[i].New
		}
	}
	return pk
}
