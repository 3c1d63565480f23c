/*
Package sqlite archives account snapshots to a SQLite file.

PURPOSE:
  Batch runs sometimes need their final snapshot somewhere queryable,
  not just on stdout. The archive writes one row per account into an
  accounts table, all inside a single transaction.

NOT LEDGER PERSISTENCE:
  The ledger itself is memory-resident; a restart loses its state.
  This package is a reporting sink for finished snapshots only - it is
  never read back by the engine.

USAGE:
  archive, err := sqlite.Open("./snapshots.db")
  if err != nil { ... }
  defer archive.Close()
  err = archive.WriteSnapshot(ctx, eng.Snapshot())
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/payments-engine/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	client      INTEGER NOT NULL,
	available   TEXT    NOT NULL,
	held        TEXT    NOT NULL,
	total       TEXT    NOT NULL,
	locked      INTEGER NOT NULL,
	archived_at TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_accounts_client ON accounts(client);
`

// Archive is a snapshot sink backed by a SQLite file. Use ":memory:"
// for tests.
type Archive struct {
	db *sql.DB
}

// Open creates or opens the archive database and ensures the schema.
func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate archive schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// WriteSnapshot stores one row per account, atomically. Decimals are
// stored as fixed 4-digit strings so no precision is lost in transit.
func (a *Archive) WriteSnapshot(ctx context.Context, accounts []engine.Account) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO accounts (client, available, held, total, locked, archived_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare archive insert: %w", err)
	}
	defer stmt.Close()

	archivedAt := time.Now().UTC().Format(time.RFC3339)
	for _, acct := range accounts {
		_, err := stmt.ExecContext(ctx,
			uint64(acct.Client),
			acct.Available.StringFixed(4),
			acct.Held.StringFixed(4),
			acct.Total().StringFixed(4),
			acct.Locked,
			archivedAt,
		)
		if err != nil {
			return fmt.Errorf("archive client %d: %w", acct.Client, err)
		}
	}
	return tx.Commit()
}

func (a *Archive) Close() error {
	return a.db.Close()
}
