package apply

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreflightFlagsUnconditionalDelete(t *testing.T) {
	result := Preflight([]string{"DELETE FROM `users`;"})
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, WarnDanger, result.Warnings[0].Level)
	assert.True(t, HasDangerousWarnings(result))
}

func TestPreflightAllowsDeleteWithWhere(t *testing.T) {
	result := Preflight([]string{"DELETE FROM `users` WHERE `id` = 1;"})
	assert.Empty(t, result.Warnings)
	assert.False(t, HasDangerousWarnings(result))
}

func TestApplyDryRunSkipsExecution(t *testing.T) {
	var out bytes.Buffer
	a := NewApplier("mysql", Options{DryRun: true, Out: &out})

	stmts := []string{"INSERT INTO `users` (`id`) VALUES (1);"}
	err := a.Apply(context.Background(), stmts, Preflight(stmts))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "dry run")
}

func TestApplyRefusesDangerousWithoutUnsafe(t *testing.T) {
	var out bytes.Buffer
	a := NewApplier("mysql", Options{DryRun: true, Out: &out})

	stmts := []string{"DELETE FROM `users`;"}
	err := a.Apply(context.Background(), stmts, Preflight(stmts))
	require.Error(t, err)
}

func TestApplyAllowsDangerousWithUnsafe(t *testing.T) {
	var out bytes.Buffer
	a := NewApplier("mysql", Options{DryRun: true, Unsafe: true, Out: &out})

	stmts := []string{"DELETE FROM `users`;"}
	err := a.Apply(context.Background(), stmts, Preflight(stmts))
	require.NoError(t, err)
}

func TestCloseWithoutConnectIsNoop(t *testing.T) {
	a := NewApplier("mysql", Options{})
	assert.NoError(t, a.Close())
}
