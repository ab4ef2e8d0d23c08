package codec

import "sessiondiff/internal/core"

const (
	opInsert byte = 0x12
	opDelete byte = 0x09
	opUpdate byte = 0x17
	indirect byte = 0x00
)

// Serialize writes store as a sequence of table sections: spec.md §4.4.
// Every table store.Tables() names gets a header, even one every row of
// which has been consolidated away, so the shape survives a later Freeze
// and reparse (spec.md §8 scenario B).
func Serialize(store *core.DiffSet) []byte {
	var buf []byte
	marker := byte(store.Format())
	for _, schema := range store.Tables() {
		buf = writeTableHeader(buf, marker, schema)
		for _, rec := range store.Operations(schema.TableName()) {
			buf = writeRecord(buf, store.Format(), schema, rec.PK, rec.Op)
		}
	}
	return buf
}

func writeTableHeader(buf []byte, marker byte, schema core.TableSchema) []byte {
	n := schema.ColumnCount()
	buf = append(buf, marker, byte(n))
	ordinals := make([]byte, n)
	core.WritePKOrdinals(schema, ordinals)
	buf = append(buf, ordinals...)
	buf = append(buf, schema.TableName()...)
	return append(buf, 0x00)
}

func writeRecord(buf []byte, format core.Format, schema core.TableSchema, pk []core.Value, op *core.Operation) []byte {
	switch op.Kind {
	case core.KindInsert:
		buf = append(buf, opInsert, indirect)
		for _, v := range op.Values {
			buf = core.EncodeValue(buf, v)
		}
	case core.KindDelete:
		buf = append(buf, opDelete, indirect)
		if format == core.Changeset {
			for _, v := range op.Values {
				buf = core.EncodeValue(buf, v)
			}
		} else {
			for _, v := range pk {
				buf = core.EncodeValue(buf, v)
			}
		}
	case core.KindUpdate:
		buf = append(buf, opUpdate, indirect)
		buf = writeUpdateOld(buf, format, schema, pk, op)
		buf = writeUpdateNew(buf, schema, op)
	}
	return buf
}

// writeUpdateOld writes the n old-value slots. A changeset update writes
// its Old value in every slot, which is Undefined wherever OldDefined is
// false. A patchset update carries no old row data at all, so only PK
// slots get real values — recovered from pk — and the rest are Undefined.
func writeUpdateOld(buf []byte, format core.Format, schema core.TableSchema, pk []core.Value, op *core.Operation) []byte {
	if format == core.Changeset {
		for _, p := range op.Pairs {
			buf = core.EncodeValue(buf, p.Old)
		}
		return buf
	}
	for i := 0; i < schema.ColumnCount(); i++ {
		if ord := schema.PKOrdinal(i); ord > 0 {
			buf = core.EncodeValue(buf, pk[ord-1])
		} else {
			buf = core.EncodeValue(buf, core.Undefined)
		}
	}
	return buf
}

// writeUpdateNew writes the n new-value slots: the changed value where
// NewDefined, otherwise Undefined, except that an unchanged PK column
// carries its Old value. That is the actual PK wherever Old holds it
// (changeset updates, and patchset updates read by the parser); a patchset
// update built with NewUpdate has no Old, so its unchanged PK slots are
// Undefined.
func writeUpdateNew(buf []byte, schema core.TableSchema, op *core.Operation) []byte {
	for i, p := range op.Pairs {
		switch {
		case p.NewDefined:
			buf = core.EncodeValue(buf, p.New)
		case schema.PKOrdinal(i) > 0:
			buf = core.EncodeValue(buf, p.Old)
		default:
			buf = core.EncodeValue(buf, core.Undefined)
		}
	}
	return buf
}
