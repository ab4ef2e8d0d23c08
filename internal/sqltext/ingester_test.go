package sqltext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessiondiff/internal/core"
)

func namedSchema(t *testing.T, name string, cols []string, pk []byte) *core.NamedSchema {
	t.Helper()
	s, err := core.NewNamedSchema(name, cols, pk)
	require.NoError(t, err)
	return s
}

func TestIngestInsert(t *testing.T) {
	ing := NewIngester()
	ing.Register(namedSchema(t, "users", []string{"id", "name"}, []byte{1, 0}))

	ops, err := ing.Ingest(`INSERT INTO users (id, name) VALUES (1, 'alice')`)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, core.KindInsert, ops[0].Op.Kind)
	assert.True(t, ops[0].Op.Values[0].Equal(core.Integer(1)))
	assert.True(t, ops[0].Op.Values[1].Equal(core.Text("alice")))
	assert.True(t, ops[0].PK[0].Equal(core.Integer(1)))
}

func TestIngestMultiRowInsert(t *testing.T) {
	ing := NewIngester()
	ing.Register(namedSchema(t, "users", []string{"id", "name"}, []byte{1, 0}))

	ops, err := ing.Ingest(`INSERT INTO users (id, name) VALUES (1, 'a'), (2, 'b')`)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.True(t, ops[1].PK[0].Equal(core.Integer(2)))
}

func TestIngestUpdateRequiresWhere(t *testing.T) {
	ing := NewIngester()
	ing.Register(namedSchema(t, "users", []string{"id", "name"}, []byte{1, 0}))

	_, err := ing.Ingest(`UPDATE users SET name = 'bob'`)
	require.ErrorIs(t, err, core.ErrMissingWhere)
}

func TestIngestUpdateRejectsNonPKWhere(t *testing.T) {
	ing := NewIngester()
	ing.Register(namedSchema(t, "users", []string{"id", "name"}, []byte{1, 0}))

	_, err := ing.Ingest(`UPDATE users SET name = 'bob' WHERE name = 'alice'`)
	require.ErrorIs(t, err, core.ErrWhereNonPKColumn)
}

func TestIngestUpdateByPK(t *testing.T) {
	ing := NewIngester()
	ing.Register(namedSchema(t, "users", []string{"id", "name"}, []byte{1, 0}))

	ops, err := ing.Ingest(`UPDATE users SET name = 'bob' WHERE id = 1`)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, core.KindUpdate, ops[0].Op.Kind)
	assert.True(t, ops[0].PK[0].Equal(core.Integer(1)))
	assert.True(t, ops[0].Op.Pairs[1].New.Equal(core.Text("bob")))
}

func TestIngestDelete(t *testing.T) {
	ing := NewIngester()
	ing.Register(namedSchema(t, "users", []string{"id", "name"}, []byte{1, 0}))

	ops, err := ing.Ingest(`DELETE FROM users WHERE id = 5`)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, core.KindDelete, ops[0].Op.Kind)
	assert.True(t, ops[0].PK[0].Equal(core.Integer(5)))
}

func TestIngestUnknownTable(t *testing.T) {
	ing := NewIngester()
	_, err := ing.Ingest(`DELETE FROM ghosts WHERE id = 1`)
	require.ErrorIs(t, err, core.ErrUnknownTable)
}

func TestIngestRejectsCreateTable(t *testing.T) {
	ing := NewIngester()
	_, err := ing.Ingest(`CREATE TABLE t (id INT PRIMARY KEY)`)
	require.ErrorIs(t, err, ErrUnsupportedStatement)
}

func TestIngestNegatedInt64MinLiteral(t *testing.T) {
	ing := NewIngester()
	ing.Register(namedSchema(t, "t", []string{"id", "v"}, []byte{1, 0}))

	ops, err := ing.Ingest(`INSERT INTO t (id, v) VALUES (1, -9223372036854775808)`)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.True(t, ops[0].Op.Values[1].Equal(core.Integer(-9223372036854775808)))
}

func TestIngestCompositePKWhere(t *testing.T) {
	ing := NewIngester()
	ing.Register(namedSchema(t, "links", []string{"a", "b", "weight"}, []byte{1, 2, 0}))

	ops, err := ing.Ingest(`DELETE FROM links WHERE a = 1 AND b = 2`)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.True(t, ops[0].PK[0].Equal(core.Integer(1)))
	assert.True(t, ops[0].PK[1].Equal(core.Integer(2)))
}
