package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSampleChangeset(t *testing.T) (*DiffSet, TableSchema, TableSchema) {
	t.Helper()
	users := mustSchema(t, "users", 2, []byte{1, 0})
	orders := mustSchema(t, "orders", 1, []byte{1})

	d := NewDiffSet(Changeset)

	ins := NewInsert(users, Changeset)
	require.NoError(t, ins.Set(0, Integer(1)))
	require.NoError(t, ins.Set(1, Text("alice")))
	require.NoError(t, d.Add(users, []Value{Integer(1)}, ins))

	upd := NewUpdate(users, Changeset)
	require.NoError(t, upd.SetOld(0, Integer(2)))
	require.NoError(t, upd.SetNew(0, Integer(2)))
	require.NoError(t, upd.SetOld(1, Text("bob")))
	require.NoError(t, upd.SetNew(1, Text("bobby")))
	require.NoError(t, d.Add(users, []Value{Integer(2)}, upd))

	del := NewChangesetDelete(orders)
	require.NoError(t, del.Set(0, Integer(5)))
	require.NoError(t, d.Add(orders, []Value{Integer(5)}, del))

	return d, users, orders
}

func TestInvertIsInvolution(t *testing.T) {
	d, users, orders := buildSampleChangeset(t)

	inverted, err := Invert(d)
	require.NoError(t, err)

	back, err := Invert(inverted)
	require.NoError(t, err)

	origUserOps := d.Operations(users.TableName())
	backUserOps := back.Operations(users.TableName())
	require.Len(t, origUserOps, len(backUserOps))
	for i := range origUserOps {
		assert.Equal(t, origUserOps[i].Op.Kind, backUserOps[i].Op.Kind)
		if origUserOps[i].Op.Kind == KindInsert {
			for c := range origUserOps[i].Op.Values {
				assert.True(t, origUserOps[i].Op.Values[c].Equal(backUserOps[i].Op.Values[c]))
			}
		} else {
			for c := range origUserOps[i].Op.Pairs {
				assert.True(t, origUserOps[i].Op.Pairs[c].Old.Equal(backUserOps[i].Op.Pairs[c].Old))
				assert.True(t, origUserOps[i].Op.Pairs[c].New.Equal(backUserOps[i].Op.Pairs[c].New))
			}
		}
	}

	origOrderOps := d.Operations(orders.TableName())
	backOrderOps := back.Operations(orders.TableName())
	require.Len(t, origOrderOps, len(backOrderOps))
	assert.True(t, origOrderOps[0].Op.Values[0].Equal(backOrderOps[0].Op.Values[0]))
}

func TestInvertSwapsKinds(t *testing.T) {
	d, users, orders := buildSampleChangeset(t)
	inverted, err := Invert(d)
	require.NoError(t, err)

	userOps := inverted.Operations(users.TableName())
	require.Len(t, userOps, 2)
	assert.Equal(t, KindDelete, userOps[0].Op.Kind)
	assert.Equal(t, KindUpdate, userOps[1].Op.Kind)

	orderOps := inverted.Operations(orders.TableName())
	require.Len(t, orderOps, 1)
	assert.Equal(t, KindInsert, orderOps[0].Op.Kind)
}

func TestInvertPreservesOrder(t *testing.T) {
	d, users, orders := buildSampleChangeset(t)
	inverted, err := Invert(d)
	require.NoError(t, err)

	tables := inverted.Tables()
	require.Len(t, tables, 2)
	assert.Equal(t, users.TableName(), tables[0].TableName())
	assert.Equal(t, orders.TableName(), tables[1].TableName())
}

func TestInvertRejectsPatchset(t *testing.T) {
	d := NewDiffSet(Patchset)
	_, err := Invert(d)
	require.Error(t, err)
}
