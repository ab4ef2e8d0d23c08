package pgwalstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessiondiff/internal/core"
)

func schema(t *testing.T) *core.NamedSchema {
	t.Helper()
	s, err := core.NewNamedSchema("users", []string{"id", "name"}, []byte{1, 0})
	require.NoError(t, err)
	return s
}

func TestParseInsert(t *testing.T) {
	e, err := Parse([]byte(`{"kind":"insert","schema":"public","table":"users","relation_oid":12345,"data":{"id":1,"name":"Alice"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventInsert, e.Kind)

	op, pk, err := e.ToOperation(schema(t))
	require.NoError(t, err)
	assert.Equal(t, core.KindInsert, op.Kind)
	assert.True(t, op.Values[0].Equal(core.Integer(1)))
	assert.True(t, pk[0].Equal(core.Integer(1)))
}

func TestParseUpdateWithOldData(t *testing.T) {
	e, err := Parse([]byte(`{"kind":"update","schema":"public","table":"users","old_data":{"id":1,"name":"Alice"},"new_data":{"id":1,"name":"Bob"},"replica_identity":"full","key_columns":["id"]}`))
	require.NoError(t, err)

	op, pk, err := e.ToOperation(schema(t))
	require.NoError(t, err)
	assert.Equal(t, core.KindUpdate, op.Kind)
	assert.True(t, pk[0].Equal(core.Integer(1)))
	assert.True(t, op.Pairs[1].New.Equal(core.Text("Bob")))
	assert.True(t, op.Pairs[1].Old.Equal(core.Text("Alice")))
}

func TestParseUpdateWithoutOldData(t *testing.T) {
	e, err := Parse([]byte(`{"kind":"update","schema":"public","table":"users","new_data":{"id":1,"name":"Bob"},"replica_identity":"default","key_columns":["id"]}`))
	require.NoError(t, err)

	op, pk, err := e.ToOperation(schema(t))
	require.NoError(t, err)
	assert.True(t, pk[0].Equal(core.Integer(1)))
	assert.False(t, op.Pairs[0].OldDefined)
}

func TestParseDelete(t *testing.T) {
	e, err := Parse([]byte(`{"kind":"delete","schema":"public","table":"users","old_data":{"id":42,"name":"Alice"},"replica_identity":"full","key_columns":["id"]}`))
	require.NoError(t, err)

	op, pk, err := e.ToOperation(schema(t))
	require.NoError(t, err)
	assert.Equal(t, core.KindDelete, op.Kind)
	assert.True(t, pk[0].Equal(core.Integer(42)))
}

func TestPatchsetDelete(t *testing.T) {
	e, err := Parse([]byte(`{"kind":"delete","schema":"public","table":"users","old_data":{"id":42},"replica_identity":"default","key_columns":["id"]}`))
	require.NoError(t, err)

	op, pk, err := e.ToPatchsetDelete(schema(t))
	require.NoError(t, err)
	assert.Equal(t, core.KindDelete, op.Kind)
	assert.Equal(t, core.Patchset, op.Format)
	assert.True(t, pk[0].Equal(core.Integer(42)))
}

func TestPatchsetDeleteMissingKeyColumn(t *testing.T) {
	e, err := Parse([]byte(`{"kind":"delete","schema":"public","table":"users","old_data":{"name":"Alice"},"replica_identity":"nothing","key_columns":["id"]}`))
	require.NoError(t, err)

	_, _, err = e.ToPatchsetDelete(schema(t))
	require.Error(t, err)
}

func TestTableMismatch(t *testing.T) {
	e, err := Parse([]byte(`{"kind":"insert","schema":"public","table":"other","data":{"id":1}}`))
	require.NoError(t, err)

	_, _, err = e.ToOperation(schema(t))
	require.Error(t, err)
}

func TestDeleteMissingOldData(t *testing.T) {
	e := &Event{Kind: EventDelete, Table: "users"}
	_, _, err := e.ToOperation(schema(t))
	require.Error(t, err)
}
