package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payments-engine/engine"
	"github.com/warp/payments-engine/store/sqlite"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestArchive_WriteSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")

	archive, err := sqlite.Open(path)
	require.NoError(t, err)

	accounts := []engine.Account{
		{Client: 1, Available: dec("1.5"), Held: dec("0"), Locked: false},
		{Client: 2, Available: dec("-50"), Held: dec("0"), Locked: true},
	}
	require.NoError(t, archive.WriteSnapshot(context.Background(), accounts))
	require.NoError(t, archive.Close())

	// Read back with a plain connection to check what actually landed.
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query("SELECT client, available, held, total, locked FROM accounts ORDER BY client")
	require.NoError(t, err)
	defer rows.Close()

	type row struct {
		client                 int
		available, held, total string
		locked                 bool
	}
	var got []row
	for rows.Next() {
		var r row
		require.NoError(t, rows.Scan(&r.client, &r.available, &r.held, &r.total, &r.locked))
		got = append(got, r)
	}
	require.NoError(t, rows.Err())

	require.Len(t, got, 2)
	assert.Equal(t, row{client: 1, available: "1.5000", held: "0.0000", total: "1.5000", locked: false}, got[0])
	assert.Equal(t, row{client: 2, available: "-50.0000", held: "0.0000", total: "-50.0000", locked: true}, got[1])
}

func TestArchive_EmptySnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")

	archive, err := sqlite.Open(path)
	require.NoError(t, err)
	defer archive.Close()

	require.NoError(t, archive.WriteSnapshot(context.Background(), nil))

	var count int
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM accounts").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestArchive_AppendsAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")

	for range 2 {
		archive, err := sqlite.Open(path)
		require.NoError(t, err)
		require.NoError(t, archive.WriteSnapshot(context.Background(), []engine.Account{
			{Client: 1, Available: dec("10"), Held: dec("0")},
		}))
		require.NoError(t, archive.Close())
	}

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM accounts").Scan(&count))
	assert.Equal(t, 2, count, "archive keeps history, one row set per run")
}
