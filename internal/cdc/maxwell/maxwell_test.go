package maxwell

import (
	"encoding/json"
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
	msg, err := Parse([]byte(`{"database":"mydb","table":"users","type":"insert","ts":1477053217,"data":{"id":1,"name":"Alice"}}`))
	require.NoError(t, err)
	assert.Equal(t, OpInsert, msg.OpType)

	op, pk, err := msg.ToOperation(schema(t))
	require.NoError(t, err)
	assert.Equal(t, core.KindInsert, op.Kind)
	assert.True(t, op.Values[0].Equal(core.Integer(1)))
	assert.True(t, op.Values[1].Equal(core.Text("Alice")))
	assert.True(t, pk[0].Equal(core.Integer(1)))
}

func TestParseUpdateWithOld(t *testing.T) {
	msg, err := Parse([]byte(`{"database":"mydb","table":"users","type":"update","data":{"id":1,"name":"Bob"},"old":{"name":"Alice"}}`))
	require.NoError(t, err)

	op, pk, err := msg.ToOperation(schema(t))
	require.NoError(t, err)
	assert.Equal(t, core.KindUpdate, op.Kind)
	assert.True(t, pk[0].Equal(core.Integer(1)))
	assert.True(t, op.Pairs[1].New.Equal(core.Text("Bob")))
	assert.True(t, op.Pairs[1].Old.Equal(core.Text("Alice")))
	assert.False(t, op.Pairs[0].OldDefined)
}

func TestParseDelete(t *testing.T) {
	msg, err := Parse([]byte(`{"database":"mydb","table":"users","type":"delete","data":{"id":9,"name":"Carl"}}`))
	require.NoError(t, err)

	op, pk, err := msg.ToOperation(schema(t))
	require.NoError(t, err)
	assert.Equal(t, core.KindDelete, op.Kind)
	assert.True(t, pk[0].Equal(core.Integer(9)))
	assert.True(t, op.Values[1].Equal(core.Text("Carl")))
}

func TestExplicitPrimaryKey(t *testing.T) {
	msg, err := Parse([]byte(`{"database":"mydb","table":"users","type":"update","data":{"id":2,"name":"Dee"},"primary_key_columns":["id"],"primary_key":[2]}`))
	require.NoError(t, err)

	_, pk, err := msg.ToOperation(schema(t))
	require.NoError(t, err)
	assert.True(t, pk[0].Equal(core.Integer(2)))
}

func TestTableMismatch(t *testing.T) {
	msg, err := Parse([]byte(`{"database":"mydb","table":"other","type":"insert","data":{"id":1}}`))
	require.NoError(t, err)

	_, _, err = msg.ToOperation(schema(t))
	require.Error(t, err)
}

func TestUnsupportedOperation(t *testing.T) {
	msg := &Message{Table: "users", OpType: "bootstrap-insert", Data: map[string]json.RawMessage{"id": json.RawMessage("1")}}
	_, _, err := msg.ToOperation(schema(t))
	require.Error(t, err)
}
