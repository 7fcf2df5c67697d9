package bsqlitestore

import (
	"context"
	"database/sql"
	"fmt"
)

// Each entry upgrades the schema by one version;
// index i migrates version i to i+1.
// Append only.
var migrations = []func(context.Context, *sql.Tx) error{
	createBlocksSchema,
}

// migrate brings the database schema up to date,
// creating it from scratch on a fresh database.
// The whole upgrade runs in one transaction.
func migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning schema transaction: %w", err)
	}
	defer tx.Rollback()

	version, err := schemaVersion(ctx, tx)
	if err != nil {
		return err
	}
	if version > len(migrations) {
		return fmt.Errorf(
			"database schema version %d is newer than this binary understands (max %d)",
			version, len(migrations),
		)
	}
	if version == len(migrations) {
		// Already up to date.
		return tx.Commit()
	}

	for v := version; v < len(migrations); v++ {
		if err := migrations[v](ctx, tx); err != nil {
			return fmt.Errorf("migrating schema from version %d: %w", v, err)
		}
	}

	if _, err := tx.ExecContext(
		ctx, `UPDATE schema_version SET version = ? WHERE id = 0`, len(migrations),
	); err != nil {
		return fmt.Errorf("recording schema version %d: %w", len(migrations), err)
	}

	// https://sqlite.org/pragma.html#pragma_optimize says all applications
	// should run PRAGMA optimize after a schema change.
	if _, err := tx.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("optimizing after schema change: %w", err)
	}

	return tx.Commit()
}

// schemaVersion reads the current schema version,
// installing the bookkeeping table on a fresh database.
func schemaVersion(ctx context.Context, tx *sql.Tx) (int, error) {
	if _, err := tx.ExecContext(
		ctx,
		`CREATE TABLE IF NOT EXISTS schema_version(
  id INTEGER PRIMARY KEY CHECK (id = 0),
  version INTEGER NOT NULL
);
INSERT OR IGNORE INTO schema_version(id, version) VALUES (0, 0);`,
	); err != nil {
		return 0, fmt.Errorf("preparing schema_version table: %w", err)
	}

	var v int
	if err := tx.QueryRowContext(
		ctx, `SELECT version FROM schema_version WHERE id = 0`,
	).Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}

	return v, nil
}

func createBlocksSchema(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(
		ctx,
		// One row per block.
		// The id column is the raw 32-byte block ID.
		// The payload column is the snappy-compressed JSON encoding
		// of the full signed block.
		// The slot columns are denormalized for range scans by slot.
		`
CREATE TABLE blocks(
  id BLOB PRIMARY KEY NOT NULL CHECK(octet_length(id) = 32),
  slot_period INTEGER NOT NULL,
  slot_thread INTEGER NOT NULL,
  payload BLOB NOT NULL
) WITHOUT ROWID;
CREATE INDEX blocks_by_slot ON blocks(slot_period, slot_thread);`,
	)
	if err != nil {
		return fmt.Errorf("creating blocks table: %w", err)
	}

	return nil
}
