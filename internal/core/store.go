package core

import "fmt"

// row is one PK's entry inside a table's ordered PK map: the PK value
// sequence (kept around for reverse lookups and serialization) plus the
// current consolidated operation, or nil if the row was cancelled out by
// the algebra (the table still keeps its schema, the per-row slot is
// simply removed from iteration).
type row struct {
	pk  []Value
	op  *Operation // nil once removed
	key any        // comparable PKKey, cached
}

// tableEntries is the ordered PK map for one table: insertion order is
// preserved via order, keyed lookups via index.
type tableEntries struct {
	schema TableSchema
	order  []any          // PK keys in first-seen order; never shrinks
	index  map[any]*row   // PK key -> row; removed rows stay in order but index entry's op is nil
}

// DiffSet is the ordered table -> ordered PK -> Operation store of spec.md
// §3/§4.3. The zero value is not usable; construct with NewDiffSet.
type DiffSet struct {
	format Format
	order  []TableSchema
	tables map[string]*tableEntries
	frozen bool
}

// NewDiffSet constructs an empty store tagged with the given format. The
// format never changes for the lifetime of the store.
func NewDiffSet(format Format) *DiffSet {
	return &DiffSet{
		format: format,
		tables: make(map[string]*tableEntries),
	}
}

// Format reports whether this store is a changeset or a patchset.
func (d *DiffSet) Format() Format { return d.format }

// Freeze seals the store against further mutation. Add panics if called on
// a frozen store, matching spec.md §3's "frozen (sealed against mutation)"
// lifecycle state — this is a programmer-error invariant, not a
// recoverable one, since a caller controls whether it freezes its own
// store.
func (d *DiffSet) Freeze() { d.frozen = true }

// Frozen reports whether Freeze has been called.
func (d *DiffSet) Frozen() bool { return d.frozen }

// Tables returns the table schemas in first-use insertion order, including
// tables whose every row has been consolidated away (so their header can
// still be serialized, per spec.md §4.4).
func (d *DiffSet) Tables() []TableSchema {
	return append([]TableSchema(nil), d.order...)
}

// Operations returns the live (pk, operation) pairs for table in
// PK first-seen order, skipping rows the consolidation algebra removed.
func (d *DiffSet) Operations(tableName string) []struct {
	PK []Value
	Op *Operation
} {
	te, ok := d.tables[tableName]
	if !ok {
		return nil
	}
	out := make([]struct {
		PK []Value
		Op *Operation
	}, 0, len(te.order))
	for _, key := range te.order {
		r := te.index[key]
		if r.op == nil {
			continue
		}
		out = append(out, struct {
			PK []Value
			Op *Operation
		}{PK: r.pk, Op: r.op})
	}
	return out
}

// Add is the store's single mutation entry point: it inserts op at
// (table, pk) if the slot is empty, or combines it with whatever is
// already there via the consolidation algebra of spec.md §4.3. op must
// match the store's format; pk must match op (callers normally derive pk
// via ExtractPK on the appropriate side of op).
func (d *DiffSet) Add(schema TableSchema, pk []Value, op *Operation) error {
	if d.frozen {
		panic("core: Add called on a frozen DiffSet")
	}
	if op.Format != d.format {
		return fmt.Errorf("core: Add: operation format %s does not match store format %s", op.Format, d.format)
	}

	te, ok := d.tables[schema.TableName()]
	if !ok {
		te = &tableEntries{schema: schema, index: make(map[any]*row)}
		d.tables[schema.TableName()] = te
		d.order = append(d.order, schema)
	}

	key := PKKey(pk)
	existing, seen := te.index[key]
	if !seen {
		r := &row{pk: append([]Value(nil), pk...), op: op.clone(), key: key}
		te.index[key] = r
		te.order = append(te.order, key)
		return nil
	}

	if existing.op == nil {
		// Previously cancelled out; behaves exactly like first-seen.
		existing.op = op.clone()
		return nil
	}

	combined, err := combine(existing.op, op)
	if err != nil {
		return err
	}
	existing.op = combined // nil is a legal result: cancels the row
	return nil
}

// combine implements the consolidation algebra table of spec.md §4.3:
// existing (rows) x new (columns) -> result. Position is always that of
// existing; combine never moves a row within its table's PK order.
func combine(existing, incoming *Operation) (*Operation, error) {
	switch existing.Kind {
	case KindInsert:
		switch incoming.Kind {
		case KindInsert:
			return existing, nil // keep existing, drop new
		case KindUpdate:
			return combineInsertUpdate(existing, incoming), nil
		case KindDelete:
			return nil, nil // insert+delete = no-op
		}
	case KindUpdate:
		switch incoming.Kind {
		case KindInsert:
			return existing, nil // keep existing, drop new
		case KindUpdate:
			return combineUpdateUpdate(existing, incoming), nil
		case KindDelete:
			return combineUpdateDelete(existing, incoming), nil
		}
	case KindDelete:
		switch incoming.Kind {
		case KindInsert:
			return combineDeleteInsert(existing, incoming)
		case KindUpdate, KindDelete:
			return existing, nil // keep existing, drop new
		}
	}
	return nil, fmt.Errorf("core: combine: unreachable operation kind combination")
}

// combineInsertUpdate: keep existing Insert with its value slots
// overwritten by incoming.New where incoming.New is defined.
func combineInsertUpdate(existing, incoming *Operation) *Operation {
	values := append([]Value(nil), existing.Values...)
	for i, p := range incoming.Pairs {
		if p.NewDefined {
			values[i] = p.New
		}
	}
	return &Operation{Kind: KindInsert, Format: existing.Format, Values: values}
}

// combineUpdateUpdate: single Update with Old taken from existing's Old,
// New taken from incoming's New where defined, else existing's New.
func combineUpdateUpdate(existing, incoming *Operation) *Operation {
	pairs := make([]UpdatePair, len(existing.Pairs))
	for i := range pairs {
		p := UpdatePair{
			Old:        existing.Pairs[i].Old,
			OldDefined: existing.Pairs[i].OldDefined,
		}
		if incoming.Pairs[i].NewDefined {
			p.New = incoming.Pairs[i].New
			p.NewDefined = true
		} else {
			p.New = existing.Pairs[i].New
			p.NewDefined = existing.Pairs[i].NewDefined
		}
		pairs[i] = p
	}
	return &Operation{Kind: KindUpdate, Format: existing.Format, Pairs: pairs}
}

// combineUpdateDelete: Delete with the row data existing.Old reconstructs
// (changeset) or empty (patchset).
func combineUpdateDelete(existing, incoming *Operation) *Operation {
	if existing.Format == Patchset {
		return &Operation{Kind: KindDelete, Format: Patchset}
	}
	values := make([]Value, len(existing.Pairs))
	for i, p := range existing.Pairs {
		values[i] = p.Old // Undefined where the update recorded no old value
	}
	return &Operation{Kind: KindDelete, Format: Changeset, Values: values}
}

// combineDeleteInsert: for a changeset, if the incoming Insert's full row
// equals the existing Delete's full row, cancel (return nil, nil);
// otherwise produce an Update with Old = delete's row and New = insert's
// values, keeping every column. A patchset Delete carries no row data, so
// for a patchset the result is always an Update marking every column of
// the Insert as changed: no column is skipped, and an identical row is not
// cancelled.
func combineDeleteInsert(existing, incoming *Operation) (*Operation, error) {
	if existing.Format == Changeset {
		if rowsEqual(existing.Values, incoming.Values) {
			return nil, nil
		}
		pairs := make([]UpdatePair, len(existing.Values))
		for i := range pairs {
			pairs[i] = UpdatePair{
				Old:        existing.Values[i],
				OldDefined: true,
				New:        incoming.Values[i],
				NewDefined: true,
			}
		}
		return &Operation{Kind: KindUpdate, Format: Changeset, Pairs: pairs}, nil
	}

	// Patchset: existing carries no row data (only the PK), so the rows
	// cannot be compared; every column of the new row is recorded as
	// changed.
	pairs := make([]UpdatePair, len(incoming.Values))
	for i, v := range incoming.Values {
		pairs[i] = UpdatePair{NewDefined: true, New: v}
	}
	return &Operation{Kind: KindUpdate, Format: Patchset, Pairs: pairs}, nil
}

func rowsEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
