package apply

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
)

func setupMySQLContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcmysql.Run(ctx, "mysql:8.0",
		tcmysql.WithDatabase("testdb"),
		tcmysql.WithUsername("root"),
		tcmysql.WithPassword("testpass"),
	)
	require.NoError(t, err, "failed to start MySQL container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "parseTime=true")
	require.NoError(t, err, "failed to get connection string")
	return dsn
}

func TestApplierConnectIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	dsn := setupMySQLContainer(t)
	ctx := context.Background()

	t.Run("successful connection", func(t *testing.T) {
		a := NewApplier("mysql", Options{DSN: dsn})
		require.NoError(t, a.Connect(ctx))
		require.NoError(t, a.Close())
	})

	t.Run("invalid DSN fails", func(t *testing.T) {
		a := NewApplier("mysql", Options{DSN: "invalid:user@tcp(127.0.0.1:1)/nope"})
		assert.Error(t, a.Connect(ctx))
		assert.NoError(t, a.Close())
	})
}

func TestApplierExecutesStatementsIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	dsn := setupMySQLContainer(t)
	ctx := context.Background()

	a := NewApplier("mysql", Options{DSN: dsn, Transaction: true})
	require.NoError(t, a.Connect(ctx))
	defer a.Close()

	stmts := []string{
		"CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(64));",
		"INSERT INTO users (id, name) VALUES (1, 'Alice');",
		"UPDATE users SET name = 'Bob' WHERE id = 1;",
	}
	require.NoError(t, a.Apply(ctx, stmts, Preflight(stmts)))
}
