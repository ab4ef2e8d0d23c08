package mysql

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

func TestInsertSQL(t *testing.T) {
	d := &Dialect{}
	s := schema(t)
	op := core.NewInsert(s, core.Changeset)
	require.NoError(t, op.Set(0, core.Integer(1)))
	require.NoError(t, op.Set(1, core.Text("Alice")))

	sql, err := d.InsertSQL(s, op)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `users` (`id`, `name`) VALUES (1, 'Alice');", sql)
}

func TestUpdateSQLSkipsUnchangedColumns(t *testing.T) {
	d := &Dialect{}
	s := schema(t)
	op := core.NewUpdate(s, core.Changeset)
	require.NoError(t, op.SetNew(1, core.Text("Bob")))

	sql, err := d.UpdateSQL(s, []core.Value{core.Integer(1)}, op)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE `users` SET `name` = 'Bob' WHERE `id` = 1;", sql)
}

func TestUpdateSQLNoChangesErrors(t *testing.T) {
	d := &Dialect{}
	s := schema(t)
	op := core.NewUpdate(s, core.Changeset)

	_, err := d.UpdateSQL(s, []core.Value{core.Integer(1)}, op)
	require.Error(t, err)
}

func TestDeleteSQLChangesetMatchesFullRow(t *testing.T) {
	d := &Dialect{}
	s := schema(t)
	op := core.NewChangesetDelete(s)
	require.NoError(t, op.Set(0, core.Integer(1)))
	require.NoError(t, op.Set(1, core.Text("Alice")))

	sql, err := d.DeleteSQL(s, []core.Value{core.Integer(1)}, op)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM `users` WHERE `id` = 1 AND `name` = 'Alice';", sql)
}

func TestDeleteSQLPatchsetMatchesPKOnly(t *testing.T) {
	d := &Dialect{}
	s := schema(t)
	op := core.NewPatchsetDelete()

	sql, err := d.DeleteSQL(s, []core.Value{core.Integer(7)}, op)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM `users` WHERE `id` = 7;", sql)
}

func TestQuoteIdentifierEscapesBacktick(t *testing.T) {
	assert.Equal(t, "`a``b`", QuoteIdentifier("a`b"))
}

func TestRegisteredUnderMySQLName(t *testing.T) {
	d := &Dialect{}
	assert.Equal(t, "mysql", d.Name())
}
