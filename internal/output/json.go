package output

import (
	"encoding/json"
	"fmt"

	"sessiondiff/internal/core"
	"sessiondiff/internal/literal"
)

// operationPayload is one row-operation's JSON shape: the kind, the
// primary-key literal values, and, depending on kind, either the full
// Insert/changeset-Delete row or the Update column transitions.
type operationPayload struct {
	Kind    string             `json:"kind"`
	PK      []string           `json:"pk"`
	Values  []string           `json:"values,omitempty"`
	Columns []columnTransition `json:"columns,omitempty"`
}

type columnTransition struct {
	Column string  `json:"column"`
	Old    *string `json:"old,omitempty"`
	New    *string `json:"new,omitempty"`
}

type tablePayload struct {
	Table      string              `json:"table"`
	Operations []operationPayload `json:"operations"`
}

type diffPayload struct {
	Format string         `json:"format"`
	Tables []tablePayload `json:"tables"`
}

// JSON renders store as a table -> PK -> operation tree for tooling to
// consume, via encoding/json.
func JSON(store *core.DiffSet) ([]byte, error) {
	payload := diffPayload{Format: store.Format().String()}
	for _, schema := range store.Tables() {
		tp := tablePayload{Table: schema.TableName()}
		for _, entry := range store.Operations(schema.TableName()) {
			tp.Operations = append(tp.Operations, operationPayloadFor(schema, entry.PK, entry.Op))
		}
		payload.Tables = append(payload.Tables, tp)
	}

	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("output: marshal json: %w", err)
	}
	return b, nil
}

func operationPayloadFor(schema core.TableSchema, pk []core.Value, op *core.Operation) operationPayload {
	p := operationPayload{Kind: op.Kind.String(), PK: renderStrings(pk)}
	switch op.Kind {
	case core.KindInsert, core.KindDelete:
		if len(op.Values) > 0 {
			p.Values = renderStrings(op.Values)
		}
	case core.KindUpdate:
		for i, pair := range op.Pairs {
			if !pair.NewDefined {
				continue
			}
			ct := columnTransition{Column: columnLabel(schema, i)}
			if pair.OldDefined {
				s := literal.Render(pair.Old)
				ct.Old = &s
			}
			s := literal.Render(pair.New)
			ct.New = &s
			p.Columns = append(p.Columns, ct)
		}
	}
	return p
}

func renderStrings(values []core.Value) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = literal.Render(v)
	}
	return out
}
