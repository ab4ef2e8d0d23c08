package codec

import (
	"unicode/utf8"

	"sessiondiff/internal/core"
)

// Parse reads data as a sequence of table sections and returns the
// resulting store, per spec.md §4.5. An empty input parses to an empty
// changeset. Every table header after the first must repeat the first
// header's marker byte; a mismatch is reported as MixedFormats at the
// offending byte.
//
// Parse never panics, indexes out of bounds, or loops without making
// progress: every malformed input returns a *ParseError instead.
func Parse(data []byte) (*core.DiffSet, error) {
	if len(data) == 0 {
		return core.NewDiffSet(core.Changeset), nil
	}

	marker := data[0]
	format, ok := formatFromMarker(marker)
	if !ok {
		return nil, &ParseError{Kind: InvalidTableMarker, Position: 0}
	}
	store := core.NewDiffSet(format)

	pos := 0
	for pos < len(data) {
		if data[pos] != marker {
			if !isTableMarker(data[pos]) {
				return nil, &ParseError{Kind: InvalidTableMarker, Position: pos}
			}
			return nil, &ParseError{Kind: MixedFormats, Position: pos, Expected: marker, Found: data[pos]}
		}

		schema, next, err := parseTableHeader(data, pos)
		if err != nil {
			return nil, err
		}
		pos = next

		for pos < len(data) && !isTableMarker(data[pos]) {
			next, err := parseRecord(data, pos, format, schema, store)
			if err != nil {
				return nil, err
			}
			pos = next
		}
	}
	return store, nil
}

func isTableMarker(b byte) bool {
	return b == byte(core.Changeset) || b == byte(core.Patchset)
}

func formatFromMarker(b byte) (core.Format, bool) {
	switch core.Format(b) {
	case core.Changeset, core.Patchset:
		return core.Format(b), true
	default:
		return 0, false
	}
}

// parseTableHeader reads marker, column count, PK ordinals and the
// null-terminated table name starting at pos, returning the resulting
// schema and the position just past the terminator.
func parseTableHeader(data []byte, pos int) (core.TableSchema, int, error) {
	start := pos
	if pos >= len(data) {
		return nil, 0, eofErr(start)
	}
	pos++ // marker already validated by the caller

	if pos >= len(data) {
		return nil, 0, eofErr(start)
	}
	n := int(data[pos])
	pos++

	if n <= 0 {
		return nil, 0, &ParseError{Kind: InvalidTableHeader, Position: start}
	}
	if pos+n > len(data) {
		return nil, 0, eofErr(start)
	}
	ordinals := append([]byte(nil), data[pos:pos+n]...)
	pos += n

	nameStart := pos
	termAt := -1
	for i := pos; i < len(data); i++ {
		if data[i] == 0x00 {
			termAt = i
			break
		}
	}
	if termAt == -1 {
		return nil, 0, &ParseError{Kind: UnterminatedTableName, Position: nameStart}
	}
	nameBytes := data[nameStart:termAt]
	if !utf8.Valid(nameBytes) {
		return nil, 0, &ParseError{Kind: InvalidTableName, Position: nameStart}
	}
	name := string(nameBytes)
	pos = termAt + 1

	schema, err := core.NewSimpleSchema(name, n, ordinals)
	if err != nil {
		return nil, 0, &ParseError{Kind: InvalidTableHeader, Position: start, Err: err}
	}
	return schema, pos, nil
}

// parseRecord reads one change record starting at pos and adds the
// resulting operation to store, returning the position just past the
// record.
func parseRecord(data []byte, pos int, format core.Format, schema core.TableSchema, store *core.DiffSet) (int, error) {
	start := pos
	if pos+2 > len(data) {
		return 0, eofErr(start)
	}
	opcode := data[pos]
	pos += 2 // opcode + indirect flag (unused, always 0x00 in this library)

	n := schema.ColumnCount()

	switch opcode {
	case opInsert:
		values, next, err := decodeValues(data, pos, n)
		if err != nil {
			return 0, err
		}
		pos = next
		op := &core.Operation{Kind: core.KindInsert, Format: format, Values: values}
		pk := core.ExtractPK(schema, values)
		if err := store.Add(schema, pk, op); err != nil {
			return 0, &ParseError{Kind: InvalidValue, Position: start, Err: err}
		}
		return pos, nil

	case opDelete:
		if format == core.Changeset {
			values, next, err := decodeValues(data, pos, n)
			if err != nil {
				return 0, err
			}
			pos = next
			op := &core.Operation{Kind: core.KindDelete, Format: format, Values: values}
			pk := core.ExtractPK(schema, values)
			if err := store.Add(schema, pk, op); err != nil {
				return 0, &ParseError{Kind: InvalidValue, Position: start, Err: err}
			}
			return pos, nil
		}
		k := core.PKColumnCount(schema)
		pk, next, err := decodeValues(data, pos, k)
		if err != nil {
			return 0, err
		}
		pos = next
		op := &core.Operation{Kind: core.KindDelete, Format: format}
		if err := store.Add(schema, pk, op); err != nil {
			return 0, &ParseError{Kind: InvalidValue, Position: start, Err: err}
		}
		return pos, nil

	case opUpdate:
		oldValues, next, err := decodeValues(data, pos, n)
		if err != nil {
			return 0, err
		}
		pos = next
		newValues, next, err := decodeValues(data, pos, n)
		if err != nil {
			return 0, err
		}
		pos = next

		pairs := make([]core.UpdatePair, n)
		pk := make([]core.Value, core.PKColumnCount(schema))
		for i := 0; i < n; i++ {
			old := oldValues[i]
			nw := newValues[i]
			pairs[i] = core.UpdatePair{
				Old:        old,
				OldDefined: format == core.Changeset,
				New:        nw,
				NewDefined: !nw.IsUndefined(),
			}
			if ord := schema.PKOrdinal(i); ord > 0 {
				pk[ord-1] = old
			}
		}
		op := &core.Operation{Kind: core.KindUpdate, Format: format, Pairs: pairs}
		if err := store.Add(schema, pk, op); err != nil {
			return 0, &ParseError{Kind: InvalidValue, Position: start, Err: err}
		}
		return pos, nil

	default:
		return 0, &ParseError{Kind: InvalidOpCode, Position: start}
	}
}

func decodeValues(data []byte, pos int, n int) ([]core.Value, int, error) {
	values := make([]core.Value, n)
	for i := 0; i < n; i++ {
		if pos >= len(data) {
			return nil, 0, eofErr(pos)
		}
		v, consumed, err := core.DecodeValue(data[pos:])
		if err != nil {
			return nil, 0, &ParseError{Kind: InvalidValue, Position: pos, Err: err}
		}
		values[i] = v
		pos += consumed
	}
	return values, pos, nil
}
