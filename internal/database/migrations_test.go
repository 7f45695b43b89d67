package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, db PGXDB, table string) bool {
	t.Helper()

	var exists bool
	err := db.QueryRow(context.Background(), `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = $1
		)
	`, table).Scan(&exists)
	require.NoError(t, err)
	return exists
}

func TestRunMigrations(t *testing.T) {
	pool := TestDB(t)
	ctx := context.Background()

	require.NoError(t, RunMigrations(ctx, pool))

	for _, table := range []string{"contracts", "claims", "attachments", "settings"} {
		require.True(t, tableExists(t, pool, table), table)
	}

	CleanupTables(t, pool)
	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM contracts`).Scan(&n))
	require.Zero(t, n)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	pool := TestDB(t)
	ctx := context.Background()

	require.NoError(t, RunMigrations(ctx, pool))
	require.NoError(t, RunMigrations(ctx, pool))
	require.NoError(t, RunMigrations(ctx, pool))
}

func TestMigrations_ClaimNumberUniquePerContract(t *testing.T) {
	tx := TestTx(t)
	ctx := context.Background()

	_, err := tx.Exec(ctx, `INSERT INTO contracts (id, name, contract_value) VALUES ('k-uniq', 'Depot', 1000)`)
	require.NoError(t, err)

	insert := `INSERT INTO claims (id, contract_id, claim_number, claim_date) VALUES ($1, 'k-uniq', 1, CURRENT_DATE)`
	_, err = tx.Exec(ctx, insert, "c-1")
	require.NoError(t, err)

	sp, err := tx.Begin(ctx)
	require.NoError(t, err)
	_, err = sp.Exec(ctx, insert, "c-2")
	require.Error(t, err, "duplicate claim number must be rejected")
	require.NoError(t, sp.Rollback(ctx))
}

func TestMigrations_SettingsIsSingleton(t *testing.T) {
	tx := TestTx(t)
	ctx := context.Background()

	_, err := tx.Exec(ctx, `INSERT INTO settings (id, admin_password_hash) VALUES ('default', 'x')
		ON CONFLICT (id) DO NOTHING`)
	require.NoError(t, err)

	sp, err := tx.Begin(ctx)
	require.NoError(t, err)
	_, err = sp.Exec(ctx, `INSERT INTO settings (id, admin_password_hash) VALUES ('other', 'x')`)
	require.Error(t, err)
	require.NoError(t, sp.Rollback(ctx))
}
